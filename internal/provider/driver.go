// Package provider implements the §4.F provider drivers: the generic
// data-driven driver (URL-template expansion + classify + extract) and
// a handful of bespoke code drivers for providers whose check needs
// more than one request or a non-HTML response shape.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/jmylchreest/usercheck/internal/classifier"
	"github.com/jmylchreest/usercheck/internal/extractor"
	"github.com/jmylchreest/usercheck/internal/httpclient"
	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/jmylchreest/usercheck/internal/ratelimit"
)

// Driver is the contract every provider implementation satisfies
// (§4.F): "same contract (check(username, client) → Result) but may
// issue multiple requests, merge fields, and map source-specific
// errors to the standard status set".
type Driver interface {
	Check(ctx context.Context, username string, p models.Provider) models.Result
}

// Deps are the shared collaborators every driver needs to issue a
// rate-limited, properly-clienting HTTP request (components A and B).
type Deps struct {
	HTTPFactory *httpclient.Factory
	RateLimiter *ratelimit.Controller
}

// fetchResult is the raw outcome of one HTTP round trip, before
// classification.
type fetchResult struct {
	statusCode int
	headers    http.Header
	body       []byte
	elapsed    time.Duration
	transport  error
}

// fetch expands url with the provider's UA profile/headers, acquires
// rate-limit tokens, and issues the request via colly.
func (d Deps) fetch(ctx context.Context, method, url string, p models.Provider, bodyCap int64) fetchResult {
	host, err := httpclient.HostOf(url)
	if err != nil {
		return fetchResult{transport: err}
	}

	release, err := d.RateLimiter.Acquire(ctx, host)
	if err != nil {
		return fetchResult{transport: err}
	}
	defer release()

	client, err := d.HTTPFactory.Client(p.EffectiveTimeout())
	if err != nil {
		return fetchResult{transport: err}
	}

	ua := models.ResolveUAProfile(p.UAProfile)

	c := colly.NewCollector()
	c.SetClient(client)
	c.UserAgent = ua.UserAgent
	// Deliver non-2xx responses to OnResponse so the classifier sees
	// their status code; OnError is left to real transport failures.
	c.ParseHTTPErrorResponse = true

	start := time.Now()
	var result fetchResult

	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if int64(len(body)) > bodyCap {
			body = body[:bodyCap]
		}
		result = fetchResult{
			statusCode: r.StatusCode,
			headers:    *r.Headers,
			body:       body,
			elapsed:    time.Since(start),
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		result = fetchResult{
			statusCode: r.StatusCode,
			elapsed:    time.Since(start),
			transport:  err,
		}
	})

	headers := http.Header{
		"Accept":          []string{ua.Accept},
		"Accept-Language": []string{ua.AcceptLanguage},
	}
	for k, v := range p.Headers {
		headers.Set(k, v)
	}

	visitErr := c.Request(method, url, nil, nil, headers)
	if visitErr != nil && result.transport == nil {
		result = fetchResult{transport: visitErr, elapsed: time.Since(start)}
	}

	return result
}

// Safe wraps a Driver so a panic inside Check is converted into an
// error Result instead of propagating and aborting the job (§4.F
// "Failure isolation: a panic ... yields {status: error, error: <short
// message>} — it does not abort the job").
func Safe(d Driver) Driver {
	return safeDriver{inner: d}
}

type safeDriver struct {
	inner Driver
}

func (s safeDriver) Check(ctx context.Context, username string, p models.Provider) (result models.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = models.Result{
				Provider: p.Name,
				Status:   models.StatusError,
				URL:      p.URL,
				Error:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return s.inner.Check(ctx, username, p)
}

// GenericDriver is the data-driven §4.F driver: expand the URL
// template, fetch, classify, extract.
type GenericDriver struct {
	Deps Deps
}

// Check implements Driver.
func (g GenericDriver) Check(ctx context.Context, username string, p models.Provider) models.Result {
	start := time.Now()
	url := ExpandURL(p.URL, username)

	cap := int64(httpclient.MaxHTMLBodyBytes)
	if p.JSONEndpoint != "" {
		cap = httpclient.MaxJSONBodyBytes
	}

	fr := g.Deps.fetch(ctx, p.EffectiveMethod(), url, p, cap)

	result := models.Result{
		Provider:   p.Name,
		URL:        url,
		HTTPStatus: fr.statusCode,
	}

	var input classifier.Input
	input.Provider = p
	input.StatusCode = fr.statusCode
	input.Body = fr.body
	if fr.transport != nil {
		input.Transport = &classifier.TransportFailed{Err: fr.transport}
	}

	extracted := extractor.FromHTML(fr.body)
	input.HasOGTitle = extracted.HasOGTitle
	result.Profile = extracted.Profile

	if p.JSONEndpoint != "" && fr.transport == nil {
		jfr := g.Deps.fetch(ctx, http.MethodGet, ExpandURL(p.JSONEndpoint, username), p, httpclient.MaxJSONBodyBytes)
		if jfr.transport == nil {
			extractor.MergeJSONEndpoint(jfr.body, &result.Profile)
		}
	}

	status, errStr := classifier.Classify(input)
	result.Status = status
	result.Error = errStr
	result.ElapsedMs = time.Since(start).Milliseconds()

	return result
}

// ExpandURL substitutes the {username} placeholder in a provider's URL
// template (§3).
func ExpandURL(template, username string) string {
	return strings.ReplaceAll(template, "{username}", username)
}
