// Package http provides the shared HTTP client used by all source
// adapters: fixed per-request timeout, optional bearer token, a per-host
// rate limiter, and retry with exponential backoff and error
// classification.
package http

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultRequestTimeout is the fixed per-request timeout for adapter calls.
const DefaultRequestTimeout = 30 * time.Second

// UserAgent identifies the tool to remote hosts.
const UserAgent = "aifdocs/1.0"

// Client wraps net/http with the adapter transport policy.
type Client struct {
	client  *http.Client
	token   string
	limiter *HostLimiter
	delays  []time.Duration

	// OnRetry, if set, observes each retry attempt.
	OnRetry func(url string, attempt int, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithToken sets a bearer token for authenticated hosts.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRetryDelays overrides the backoff schedule. Useful in tests.
func WithRetryDelays(delays []time.Duration) Option {
	return func(c *Client) {
		c.delays = delays
	}
}

// WithHostLimiter sets a shared per-host rate limiter.
func WithHostLimiter(l *HostLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a Client with the default transport policy.
func NewClient(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{Timeout: DefaultRequestTimeout},
		delays: DefaultRetryDelays(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenFromEnv reads the git host credential from the environment.
// GITHUB_TOKEN wins over GH_TOKEN; both optional.
func TokenFromEnv() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Get performs a GET with retry, backoff, and rate limiting, and reads the
// full body. Errors are classified into the application taxonomy; see
// retry.go for the policy.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.doWithRetry(ctx, url, func(req *http.Request) {})
}

// GetWithHeaders is Get with extra request headers.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.doWithRetry(ctx, url, func(req *http.Request) {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	})
}

func (c *Client) send(ctx context.Context, url string, prepare func(*http.Request)) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	prepare(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}
