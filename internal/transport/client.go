// Package transport talks to the point store over HTTP.
//
// Every operation reissues the same request until the store answers 200.
// With the default RetryPolicy there is no backoff and no attempt cap, so a
// store that never recovers blocks the call until its context is cancelled;
// with context.Background() it blocks forever. That is the intended policy
// for a trusted local store. RetryPolicy can add backoff and a cap.
package transport

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

	"sketchsync/internal/domain"
	"sketchsync/pkg/response"

	"github.com/google/uuid"
)

var (
	// ErrMalformedPayload is returned when a 200 response cannot be decoded.
	// Such calls are not retried.
	ErrMalformedPayload = errors.New("malformed success payload")

	// ErrRetriesExhausted is returned once RetryPolicy.MaxAttempts is reached.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// RetryPolicy tunes the retry loop. The zero value retries immediately and forever.
type RetryPolicy struct {
	// InitialBackoff is the wait before the second attempt. It doubles per attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubled wait. Zero means uncapped.
	MaxBackoff time.Duration
	// MaxAttempts bounds the number of requests. Zero means unlimited.
	MaxAttempts int
}

func (p RetryPolicy) next(backoff time.Duration) time.Duration {
	backoff *= 2
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

type Client struct {
	baseURL  string
	http     *http.Client
	retry    RetryPolicy
	viewerID string
	logger   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func WithViewerID(id string) Option {
	return func(c *Client) { c.viewerID = id }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		viewerID: uuid.NewString(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "transport")
	return c
}

func (c *Client) ViewerID() string {
	return c.viewerID
}

// Append sends points to the store and returns the subset it accepted.
func (c *Client) Append(ctx context.Context, points domain.PointSequence) (domain.PointSequence, error) {
	if points == nil {
		points = domain.PointSequence{}
	}
	body, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("failed to encode points: %w", err)
	}

	data, err := c.retryUntilSuccess(ctx, http.MethodPost, "/points/add", body)
	if err != nil {
		return nil, err
	}

	var accepted domain.PointSequence
	if err := c.decode(data, "/points/add", &accepted); err != nil {
		return nil, err
	}
	return accepted, nil
}

// List returns every point the store holds.
func (c *Client) List(ctx context.Context) (domain.PointSequence, error) {
	data, err := c.retryUntilSuccess(ctx, http.MethodGet, "/points", nil)
	if err != nil {
		return nil, err
	}

	var points domain.PointSequence
	if err := c.decode(data, "/points", &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Clear wipes the store.
func (c *Client) Clear(ctx context.Context) (*domain.Ack, error) {
	data, err := c.retryUntilSuccess(ctx, http.MethodGet, "/reset", nil)
	if err != nil {
		return nil, err
	}

	var ack domain.Ack
	if err := c.decode(data, "/reset", &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) decode(data []byte, path string, v interface{}) error {
	if err := response.Decode(data, v); err != nil {
		c.logger.Error("malformed success payload", "path", path, "err", err)
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, path, err)
	}
	return nil
}

func (c *Client) retryUntilSuccess(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	backoff := c.retry.InitialBackoff

	for attempt := 1; ; attempt++ {
		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		data, status, err := c.send(req)
		if err == nil && status == http.StatusOK {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		c.logger.Warn("retrying", "method", method, "path", path, "attempt", attempt, "status", status, "err", err)

		if c.retry.MaxAttempts > 0 && attempt >= c.retry.MaxAttempts {
			return nil, fmt.Errorf("%w: %s %s after %d attempts", ErrRetriesExhausted, method, path, attempt)
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
			backoff = c.retry.next(backoff)
		}
	}
}

// newRequest builds a fresh request per attempt so the body reader starts at zero.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(domain.ViewerIDHeader, c.viewerID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) send(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}
