package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultRetryCount   = 2
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryMaxWait = 5 * time.Second
)

// Response is the subset of an HTTP response the fetchers rely on.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client performs HTTP requests with per-call headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Post(ctx context.Context, url string, headers map[string]string, body []byte) (Response, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error)
}

// Option customises the resty client.
type Option func(*resty.Client)

// WithRetry sets the retry count used for transport errors, 429 and 5xx responses.
func WithRetry(count int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(max(count, 0))
	}
}

// WithUserAgent sets a default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) {
		if ua != "" {
			c.SetHeader("User-Agent", ua)
		}
	}
}

// restyClient implements Client on top of resty.
type restyClient struct {
	client *resty.Client
}

// NewRestyClient builds a Client with the given timeout and retry on 429/5xx.
func NewRestyClient(timeout time.Duration, opts ...Option) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(shouldRetry)

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return &restyClient{client: c}
}

// shouldRetry retries on transport errors, rate limiting and server errors.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Get issues a GET request.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers, nil)
}

// Post issues a POST request with the raw body.
func (c *restyClient) Post(ctx context.Context, url string, headers map[string]string, body []byte) (Response, error) {
	return c.Do(ctx, http.MethodPost, url, headers, body)
}

// Do issues a request with an arbitrary method.
func (c *restyClient) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req := c.client.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
