package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of one delivery attempt. Both outcomes reach the
// same completion step; Result only decides what gets logged.
type Result struct {
	StatusCode int
	Err        error
}

// OK reports a 2xx response.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport delivers a payload. Implementations must not retry.
type Transport interface {
	Send(ctx context.Context, endpoint string, p Payload) Result
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, endpoint string, p Payload) Result

func (f TransportFunc) Send(ctx context.Context, endpoint string, p Payload) Result {
	return f(ctx, endpoint, p)
}

// HTTPTransport POSTs form-encoded payloads.
type HTTPTransport struct {
	client *http.Client
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = c }
}

// WithTimeout sets the per-request timeout. Default: 10s. The client is
// copied first so a shared client such as http.DefaultClient is untouched.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		c := *t.client
		c.Timeout = d
		t.client = &c
	}
}

// NewHTTPTransport returns a transport with a 10 second timeout.
func NewHTTPTransport(opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{client: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *HTTPTransport) Send(ctx context.Context, endpoint string, p Payload) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(p.Encode()))
	if err != nil {
		return Result{Err: fmt.Errorf("capture: new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("capture: post: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{StatusCode: resp.StatusCode, Err: fmt.Errorf("capture: status %d", resp.StatusCode)}
	}
	return Result{StatusCode: resp.StatusCode}
}
