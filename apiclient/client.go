// Package apiclient is the thin HTTP wrapper over the institute REST API.
//
// Reads are retried on transport failures; writes are sent exactly once with
// a fresh Idempotency-Key header so the API can discard replays.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"eduadmin_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBackoff = 300 * time.Millisecond

	// IdempotencyHeader is attached to every mutating request.
	IdempotencyHeader = "Idempotency-Key"
)

// Client talks to the institute API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	timeout     time.Duration
	readRetries int
	backoff     time.Duration
	token       string
	newKey      func() string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithReadRetries sets how many times a failed GET is retried.
func WithReadRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.readRetries = n
		}
	}
}

// WithBackoff sets the base delay between GET retries; attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithBearer sets the bearer token sent on every request.
func WithBearer(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithKeyGenerator overrides the idempotency key source.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// New creates a client rooted at baseURL (e.g. https://api.example.edu/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     defaultTimeout,
		readRetries: 2,
		backoff:     defaultBackoff,
		newKey:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client that forwards the given bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	return &cp
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get fetches path and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.readRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(attempt)*c.backoff); err != nil {
				return nil, &utils.TransportError{Op: "GET " + path, Err: err}
			}
		}
		body, err := c.do(ctx, fiber.MethodGet, path, query, nil, "")
		if err == nil {
			return body, nil
		}
		if !utils.IsTransport(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		logrus.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
		}).WithError(err).Warn("API read failed")
	}
	return nil, lastErr
}

// Post sends payload as JSON. It is never retried.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.do(ctx, fiber.MethodPost, path, nil, payload, c.newKey())
}

// Put sends payload as JSON. It is never retried.
func (c *Client) Put(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.do(ctx, fiber.MethodPut, path, nil, payload, c.newKey())
}

// Delete removes the resource at path. It is never retried.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, fiber.MethodDelete, path, nil, nil, c.newKey())
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}, idemKey string) ([]byte, error) {
	op := method + " " + path
	if err := ctx.Err(); err != nil {
		return nil, &utils.TransportError{Op: op, Err: err}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(target)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return nil, &utils.TransportError{Op: op, Err: err}
	}

	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if idemKey != "" {
		a.Set(IdempotencyHeader, idemKey)
	}
	if payload != nil {
		a.JSON(payload)
	}
	a.Timeout(c.attemptTimeout(ctx))

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, &utils.TransportError{Op: op, Err: errors.Join(errs...)}
	}
	return body, statusError(op, path, code, body)
}

// attemptTimeout is the configured timeout, shortened to the context deadline.
func (c *Client) attemptTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func statusError(op, path string, code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == fiber.StatusNotFound:
		resource, id := resourceFromPath(path)
		return &utils.NotFoundError{Resource: resource, ID: id}
	case code == fiber.StatusBadRequest || code == fiber.StatusConflict || code == fiber.StatusUnprocessableEntity:
		return utils.NewValidationError(upstreamMessage(body, "request rejected by API"))
	default:
		return &utils.TransportError{Op: op, Status: code, Err: errors.New(upstreamMessage(body, fiber.ErrInternalServerError.Message))}
	}
}

// upstreamMessage pulls a human-readable message out of an error body.
func upstreamMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

// resourceFromPath maps "/students/42" to ("students", "42").
func resourceFromPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch len(parts) {
	case 0:
		return "resource", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
