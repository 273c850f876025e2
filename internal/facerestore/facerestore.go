// Package facerestore is a client for the optional external
// face-restoration/demasking HTTP endpoint (§6): an HMAC-SHA256-signed
// request/response pair, simplified to the one request shape this
// contract needs — there is no per-user billing context in a scanning
// core.
package facerestore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client talks to an external face-restoration service (§6). Secret may
// be empty, in which case requests are sent unsigned.
type Client struct {
	baseURL    string
	secret     []byte
	httpClient *http.Client
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
}

// New constructs a Client. Timeout defaults to 30s.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		secret:     []byte(cfg.Secret),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type restoreRequest struct {
	Image    string  `json:"image"`
	Fidelity float64 `json:"fidelity"`
	Task     string  `json:"task"`
}

type restoreResponse struct {
	Image string `json:"image"`
}

// Restore submits image (raw bytes) with the given fidelity in [0,1] for
// face restoration. Any non-2xx response or a response missing `image`
// is treated as the service being unavailable — it is never retried
// beyond this single attempt (§6).
func (c *Client) Restore(ctx context.Context, image []byte, fidelity float64) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errUnavailable("no endpoint configured")
	}

	reqBody := restoreRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Fidelity: fidelity,
		Task:     "face_restoration",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("facerestore: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("facerestore: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.sign(httpReq, body)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errUnavailable(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errUnavailable(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errUnavailable(fmt.Sprintf("status %d", resp.StatusCode))
	}

	var out restoreResponse
	if err := json.Unmarshal(respBody, &out); err != nil || out.Image == "" {
		return nil, errUnavailable("schema mismatch")
	}

	decoded, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, errUnavailable("invalid base64 image")
	}

	return decoded, nil
}

// sign attaches an HMAC-SHA256 signature (timestamp|bodyHash) over the
// request. A no-op when no secret is configured.
func (c *Client) sign(req *http.Request, body []byte) {
	if len(c.secret) == 0 {
		return
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	bodyHash := sha256.Sum256(body)
	message := timestamp + "|" + hex.EncodeToString(bodyHash[:])

	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(message))
	signature := hex.EncodeToString(h.Sum(nil))

	req.Header.Set("X-Signature", signature)
	req.Header.Set("X-Timestamp", timestamp)
}

// Unavailable is returned by Restore whenever the remote endpoint could
// not be used (transport failure, non-2xx, or schema mismatch).
type Unavailable struct{ Reason string }

func (e *Unavailable) Error() string { return "facerestore: unavailable: " + e.Reason }

func errUnavailable(reason string) error { return &Unavailable{Reason: reason} }
