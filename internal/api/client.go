// Package api implements the client for the remote tournament service.
// All remote operations go through a shared retry loop: transient transport
// failures wait according to a backoff schedule and retry, while service
// and authorization failures surface immediately.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tournauto/tournauto/internal/logfields"
	"github.com/tournauto/tournauto/internal/wait"
)

// RetryObserver receives retry-related metrics events. The metrics package
// provides an implementation; a nil observer is valid and ignored.
type RetryObserver interface {
	IncAPIRetry(operation string)
	IncAPIRetryExhausted(operation string)
}

// Client issues GraphQL queries against the tournament service.
type Client struct {
	baseURL    string
	tournament int
	httpClient *http.Client
	publicID   string
	secretKey  string
	schedule   Schedule
	clock      clockwork.Clock
	log        *slog.Logger
	observer   RetryObserver
}

// Option configures a Client.
type Option func(*Client)

// WithCredentials supplies API credentials for authorized operations.
func WithCredentials(publicID, secretKey string) Option {
	return func(c *Client) {
		c.publicID = publicID
		c.secretKey = secretKey
	}
}

// WithSchedule overrides the default retry backoff schedule.
func WithSchedule(s Schedule) Option {
	return func(c *Client) { c.schedule = s }
}

// WithClock injects the clock used for retry waits (fake clock in tests).
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger overrides the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithRetryObserver wires retry metrics.
func WithRetryObserver(o RetryObserver) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for the given service URL and tournament track.
func New(baseURL string, tournament int, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		tournament: tournament,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		schedule:   DefaultSchedule(),
		clock:      clockwork.NewRealClock(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether API credentials were supplied.
func (c *Client) HasCredentials() bool {
	return c.publicID != "" && c.secretKey != ""
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorDetail   `json:"errors,omitempty"`
}

// rawQuery executes a GraphQL query with retry semantics. If authorized is
// set, credentials must be present; their absence fails immediately with an
// AuthError before any request is sent.
func (c *Client) rawQuery(ctx context.Context, operation, query string, variables map[string]any, authorized bool) (json.RawMessage, error) {
	if authorized && !c.HasCredentials() {
		return nil, &AuthError{Operation: operation}
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal query: %w", operation, err)
	}

	var data json.RawMessage
	err = c.withRetry(ctx, operation, func() error {
		var err error
		data, err = c.post(ctx, operation, body, authorized)
		return err
	})
	return data, err
}

// withRetry runs fn, sleeping schedule[i] before retry i+1 on transient
// failures. Service and authorization errors propagate immediately.
// Exhausting the schedule returns a RetryError wrapping the last failure.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var serviceErr *ServiceError
		var authErr *AuthError
		if errors.As(err, &serviceErr) || errors.As(err, &authErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt >= len(c.schedule) {
			if c.observer != nil {
				c.observer.IncAPIRetryExhausted(operation)
			}
			return &RetryError{Operation: operation, Attempts: attempt + 1, Last: err}
		}

		delay := c.schedule[attempt]
		c.log.Warn("Request failed, retrying",
			logfields.Operation(operation),
			logfields.Attempt(attempt+1),
			logfields.Wait(delay.String()),
			logfields.Error(err))
		if c.observer != nil {
			c.observer.IncAPIRetry(operation)
		}
		if err := wait.For(ctx, c.clock, delay); err != nil {
			return err
		}
	}
}

// post performs a single GraphQL round-trip. Transport failures are returned
// as-is (transient); HTTP and payload errors become ServiceError.
func (c *Client) post(ctx context.Context, operation string, body []byte, authorized bool) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authorized {
		req.Header.Set("Authorization", fmt.Sprintf("Token %s$%s", c.publicID, c.secretKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain a little of the body for diagnostics; the status is the signal.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &ServiceError{Operation: operation, Status: resp.StatusCode}
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, &ServiceError{Operation: operation, Details: gqlResp.Errors}
	}
	return gqlResp.Data, nil
}
