// Package api provides the thin HTTP layer shared by every platform client.
//
// The client decodes JSON response bodies into caller-supplied values and
// converts every non-2xx response into a typed *RequestError. Platform
// packages install an ErrorFactory so the error message matches whatever
// shape that platform's error bodies take.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the default HTTP timeout for platform API calls.
const DefaultTimeout = 30 * time.Second

// ErrorFactory builds an error from a non-2xx response body.
// Implementations should return a *RequestError so retry classification works.
type ErrorFactory func(statusCode int, body []byte) error

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout sets a custom HTTP timeout. When combined with WithHTTPClient
// it overrides the supplied client's timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
		c.timeoutSet = true
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithHeaders sets headers applied to every request (e.g. auth tokens)
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithErrorFactory sets the factory used to build errors from non-2xx responses
func WithErrorFactory(factory ErrorFactory) ClientOption {
	return func(c *Client) {
		c.errorFactory = factory
	}
}

// Client is a minimal JSON/multipart HTTP client.
type Client struct {
	httpClient   *http.Client
	timeout      time.Duration
	timeoutSet   bool
	headers      map[string]string
	errorFactory ErrorFactory
}

// NewClient creates a new API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:      DefaultTimeout,
		errorFactory: defaultErrorFactory,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	} else if c.timeoutSet {
		c.httpClient.Timeout = c.timeout
	}

	return c
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, headers, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
// A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, url, body, headers, out)
}

// Patch issues a PATCH request with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPatch, url, body, headers, out)
}

// PostMultipart issues a POST request with a multipart/form-data body built
// from form and decodes the JSON response into out.
func (c *Client) PostMultipart(ctx context.Context, url string, form *Form, headers map[string]string, out interface{}) error {
	body, contentType, err := form.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req, headers, out)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, headers, out)
}

// do sends the request, applying client and per-call headers, and decodes the
// response. Non-2xx responses are converted via the error factory.
func (c *Client) do(req *http.Request, headers map[string]string, out interface{}) error {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return c.errorFactory(resp.StatusCode, body)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
