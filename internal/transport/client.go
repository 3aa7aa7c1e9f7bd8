// Package transport provides the HTTP plumbing used by the REST store
// adapter: an authenticated client with configurable timeout and headers,
// plus JSON response decoding with typed errors.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/driftsync/pkg/errors"
)

// DefaultTimeout is the default timeout for HTTP requests.
const DefaultTimeout = 30 * time.Second

// Client provides HTTP client functionality with authentication.
type Client struct {
	http       *http.Client
	auth       Authenticator
	credential string
	headers    map[string]string
}

// New creates a new transport client with the specified authenticator and
// credential. A zero timeout falls back to DefaultTimeout.
func New(auth Authenticator, credential string, timeout time.Duration, headers map[string]string) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		auth:       auth,
		credential: credential,
		headers:    headers,
	}
}

// Do performs an HTTP request with authentication and configured headers
// applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.credential != "" {
		c.auth.Apply(req, c.credential)
	}

	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	// Set common headers
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+url, err)
	}
	return c.Do(req)
}

// Send performs a request with a JSON body.
func (c *Client) Send(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapIO("create", method+" "+url, err)
	}
	return c.Do(req)
}

// DiscardBody drains and closes a response body so the underlying
// connection can be reused.
func DiscardBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
