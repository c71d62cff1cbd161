package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts images to a prediction endpoint.
type Client struct {
	// endpoint is the absolute URL receiving the image bytes.
	endpoint string
	// http performs the round-trip.
	http Doer
	// callTimeout bounds a single classification call.
	callTimeout time.Duration
}

// Option configures the client.
type Option func(*Client)

const (
	// DefaultCallTimeout bounds a classification round-trip.
	DefaultCallTimeout = 3 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 4 << 20
)

var (
	// errEndpointRequired is returned when no endpoint is configured.
	errEndpointRequired = errors.New("classification endpoint must be provided")
	// errUnexpectedStatus is wrapped for non-2xx responses.
	errUnexpectedStatus = errors.New("unexpected status")
)

// WithHTTPClient replaces the HTTP implementation.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// New validates the endpoint and returns a client.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrConfig, errEndpointRequired)
	}

	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("%w: invalid classification endpoint: %w", telemetry.ErrConfig, err)
	}

	c := &Client{
		endpoint:    endpoint,
		http:        http.DefaultClient,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Classify posts the image and parses the prediction scores.
func (c *Client) Classify(ctx context.Context, image []byte) (*telemetry.ClassificationResult, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", telemetry.ErrTransport, err)
	}

	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post image: %w", telemetry.ErrTransport, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)

		return nil, fmt.Errorf("%w: %w: %d", telemetry.ErrTransport, errUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", telemetry.ErrTransport, err)
	}

	return ParsePredictions(body)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
