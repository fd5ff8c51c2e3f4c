package optimus

import (
	"context"
	"fmt"
	"os"

	"github.com/samvad-hq/optimus/pkg/httpclient"
)

const (
	// DefaultEndpoint is the public Optimus API root.
	DefaultEndpoint = "https://api.optimus.io"

	userAgent    = "Optimus-API"
	acceptHeader = "image/*"
)

// Transport sends one binary POST and returns status, headers and body.
// httpclient.RestyClient satisfies it.
type Transport interface {
	Post(ctx context.Context, url string, headers map[string]string, body []byte) (httpclient.Response, error)
}

// Client talks to the Optimus API on behalf of one account key.
// Configuration must not be changed while a call is in flight.
type Client struct {
	apiKey    string
	endpoint  string
	transport Transport
	log       Logger
}

// ClientOption customizes a Client at construction.
type ClientOption func(*Client)

// WithEndpoint overrides the API base URL. An empty value keeps the default.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithTransport injects the HTTP transport.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(log Logger) ClientOption {
	return func(c *Client) {
		c.log = ensureLogger(log)
	}
}

// New builds a client for apiKey. Without a transport option it uses a resty
// client with certificate verification, no redirect following, no cookie jar
// and no request timeout; bound calls through the context instead.
func New(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		log:      noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = httpclient.NewRestyAPIClient(0)
	}
	return c
}

// APIKey returns the account key used in request URLs.
func (c *Client) APIKey() string { return c.apiKey }

// SetAPIKey replaces the account key and returns c for chaining.
func (c *Client) SetAPIKey(apiKey string) *Client {
	c.apiKey = apiKey
	return c
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// SetEndpoint replaces the API base URL and returns c for chaining.
func (c *Client) SetEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// RequestURL returns the URL Optimize posts to for option.
func (c *Client) RequestURL(option Option) string {
	return c.endpoint + "/" + c.apiKey + "?" + string(option.orDefault())
}

// Optimize uploads image and returns the processed bytes exactly as the
// service sent them. An empty option means OptionOptimize; other values are
// forwarded unchecked. Every failure is an *Error.
func (c *Client) Optimize(ctx context.Context, image []byte, option Option) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	url := c.RequestURL(option)
	headers := map[string]string{
		"User-Agent": userAgent,
		"Accept":     acceptHeader,
	}

	c.log.DebugObj("optimus request", "optimus_request", map[string]any{
		"endpoint":    c.endpoint,
		"option":      string(option.orDefault()),
		"input_bytes": len(image),
	})

	resp, err := c.transport.Post(ctx, url, headers, image)
	if err != nil {
		var body []byte
		status := 0
		if resp != nil {
			body = resp.Body()
			status = resp.StatusCode()
		}
		return nil, c.fail(transportError(status, err, body))
	}

	status := resp.StatusCode()
	body := resp.Body()
	if apiErr := classifyStatus(status, resp.Header(), body); apiErr != nil {
		return nil, c.fail(apiErr)
	}
	if len(body) == 0 {
		return nil, c.fail(transportError(status, nil, body))
	}

	c.log.DebugObj("optimus response", "optimus_response", map[string]any{
		"status":       status,
		"output_bytes": len(body),
	})
	return body, nil
}

// OptimizeFile reads the whole file at path and optimizes it.
func (c *Client) OptimizeFile(ctx context.Context, path string, option Option) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return c.Optimize(ctx, image, option)
}

func (c *Client) fail(e *Error) error {
	c.log.WarnObj("optimus request failed", "optimus_error", map[string]any{
		"kind":   e.Kind.String(),
		"status": e.StatusCode,
		"error":  e.Error(),
	})
	return e
}
