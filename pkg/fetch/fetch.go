// Package fetch is the data-fetch collaborator used by route handlers: GET
// requests for JSON or text against an API root, with retries on transient
// failures.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries a per-request id generated by the client.
const RequestIDHeader = "X-Request-ID"

const (
	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	defaultInitial  = 100 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
	maxErrorBody    = 512
)

// ErrStatus is wrapped by StatusError.
var ErrStatus = errors.New("fetch: unexpected status")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("fetch: GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch: GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Unwrap allows errors.Is(err, ErrStatus).
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetries sets how many times a transient failure is retried. Zero
// disables retries.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = uint64(n)
		}
	}
}

// WithBackoff sets the first and the largest delay between retries.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initial = initial
		c.maxDelay = max
	}
}

// WithBasicAuth sends HTTP basic credentials with every request.
func WithBasicAuth(user, pass string) Option {
	return func(c *Client) {
		c.user, c.pass = user, pass
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client fetches resources below an API root.
type Client struct {
	root     string
	http     *http.Client
	retries  uint64
	initial  time.Duration
	maxDelay time.Duration
	user     string
	pass     string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a client for the API rooted at root (e.g.
// "http://localhost:8080/api").
func New(root string, opts ...Option) *Client {
	c := &Client{
		root:     strings.TrimSuffix(root, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
		retries:  defaultRetries,
		initial:  defaultInitial,
		maxDelay: defaultMaxDelay,
		logger:   slog.Default(),
		tracer:   otel.Tracer("cfsui/fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "fetch")
	return c
}

// Root returns the API root.
func (c *Client) Root() string { return c.root }

// URL returns the absolute URL for path.
func (c *Client) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.root + path
}

// GetJSON fetches path and decodes the JSON body into v. Decoding into a
// *any yields map[string]any and []any values, which templates consume
// directly.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("fetch: decode %s: %w", c.URL(path), err)
	}
	return nil
}

// GetText fetches path and returns the body as a string.
func (c *Client) GetText(ctx context.Context, path string) (string, error) {
	body, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Get fetches path and returns the raw body. Network errors, 429 and 5xx
// responses are retried with exponential backoff; other failures are returned
// immediately.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	url := c.URL(path)
	ctx, span := c.tracer.Start(ctx, "fetch.get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", url)))
	defer span.End()

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := c.do(ctx, url)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initial
	eb.MaxInterval = c.maxDelay
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.retries), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, d time.Duration) {
		c.logger.Warn("fetch retry", "url", url, "attempt", attempt, "delay", d, "error", err)
	})
	span.SetAttributes(attribute.Int("fetch.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.1")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", url, err)
	}
	return body, nil
}
