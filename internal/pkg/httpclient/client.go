package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for HTTP requests to the payment gateway and other
// external APIs. It never retries: a replayed STK push would prompt the
// payer twice.
type Client struct {
	r *resty.Client
}

// Response is the raw outcome of a request that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RequestOption customizes a single request.
type RequestOption func(*resty.Request)

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithBaseURL resolves relative request paths against u.
func (c *Client) WithBaseURL(u string) *Client {
	c.r.SetBaseURL(u)
	return c
}

// BasicAuth sets HTTP basic credentials on one request.
func BasicAuth(user, pass string) RequestOption {
	return func(r *resty.Request) {
		r.SetBasicAuth(user, pass)
	}
}

// BearerToken sets an Authorization: Bearer header on one request.
func BearerToken(token string) RequestOption {
	return func(r *resty.Request) {
		r.SetAuthToken(token)
	}
}

// QueryParam adds a query-string parameter to one request.
func QueryParam(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetQueryParam(key, value)
	}
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	req := c.request(ctx, opts)
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

// PostJSON sends a POST request with a JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}, opts ...RequestOption) (*Response, error) {
	req := c.request(ctx, opts).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(url)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

func (c *Client) request(ctx context.Context, opts []RequestOption) *resty.Request {
	req := c.r.R()
	if ctx != nil {
		req.SetContext(ctx)
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}
