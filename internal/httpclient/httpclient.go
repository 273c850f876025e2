// Package httpclient builds the outbound HTTP clients the scan core
// issues provider probes and avatar fetches through (§4.A).
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// MaxRedirects is the redirect depth cap (§4.A); cross-host redirects
	// are followed but the caller can inspect resp.Request.URL to see
	// where the chain ended.
	MaxRedirects = 5

	// MaxHTMLBodyBytes and MaxJSONBodyBytes are the response body caps
	// (§4.A).
	MaxHTMLBodyBytes = 2 << 20  // 2 MiB
	MaxJSONBodyBytes = 16 << 20 // 16 MiB

	// MaxAvatarBodyBytes is the addon pipeline's avatar download cap (§4.H).
	MaxAvatarBodyBytes = 4 << 20 // 4 MiB

	idleConnTimeout = 30 * time.Second
)

// Factory builds *http.Client values configured per §4.A: per-request
// timeout, redirect cap, connection reuse, and an optional SOCKS5h
// dialer for .onion hosts.
type Factory struct {
	onionProxyURL string
}

// NewFactory constructs a Factory. onionProxyURL may be empty, in which
// case .onion requests fail fast instead of silently going direct.
func NewFactory(onionProxyURL string) *Factory {
	return &Factory{onionProxyURL: onionProxyURL}
}

// Client returns an *http.Client with the given per-request timeout,
// wired to route .onion hosts through the configured SOCKS5h proxy.
func (f *Factory) Client(timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		IdleConnTimeout:     idleConnTimeout,
		MaxIdleConnsPerHost: 4,
		DialContext:         f.dialContext(),
	}

	return &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: checkRedirect,
		Jar:           nil, // cookie jar disabled by default (§4.A)
	}, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", MaxRedirects)
	}
	return nil
}

// dialContext returns a DialContext that routes .onion destinations
// through the configured SOCKS5h proxy and everything else direct
// (§4.A, §6 "Proxy for onion hosts").
func (f *Factory) dialContext() func(ctx context.Context, network, addr string) (net.Conn, error) {
	directDialer := &net.Dialer{}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		if !IsOnionHost(host) {
			return directDialer.DialContext(ctx, network, addr)
		}
		if f.onionProxyURL == "" {
			return nil, fmt.Errorf("httpclient: %s is an onion host but no onion proxy is configured", host)
		}
		dialer, err := onionDialer(f.onionProxyURL)
		if err != nil {
			return nil, err
		}
		// golang.org/x/net/proxy dialers don't take a context; honor
		// cancellation by racing the dial against ctx.Done().
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			ch <- result{conn, err}
		}()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			return r.conn, r.err
		}
	}
}

func onionDialer(proxyURL string) (proxy.Dialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid onion proxy url: %w", err)
	}
	return proxy.FromURL(u, proxy.Direct)
}

// IsOnionHost reports whether host is a Tor hidden-service hostname.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".onion")
}

// HostOf returns the lowercased DNS host of rawURL, the identity used
// by the rate controller and the registry's per-host overrides (§4.B,
// §9 supplemented feature: "per-host identity... same colly/net/url
// host-lowercasing idiom").
func HostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("httpclient: url %q has no host", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

// ReadCapped reads up to limit+1 bytes from r and returns an error if
// the body exceeded limit, enforcing the §4.A response body caps.
func ReadCapped(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return body[:limit], fmt.Errorf("response body exceeded %d byte cap", limit)
	}
	return body, nil
}
