// Package httpx is the JSON-over-HTTP client shared by external service
// adapters. Every call goes through a circuit breaker and is retried with
// exponential backoff on transient failures.
package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"NewsLens/internal/metrics"
)

const maxErrorBody = 512

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	Name       string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
	// RatePerSecond caps outgoing requests; 0 disables the limiter.
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// HTTPStatusCode reports the response status.
func (e *StatusError) HTTPStatusCode() int {
	return e.Code
}

// Client posts JSON to one base URL.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	logger     *slog.Logger
}

// New builds a Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	logger := opts.Logger.With("client", opts.Name)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	return &Client{
		name:       opts.Name,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		http:       &http.Client{Timeout: opts.Timeout},
		breaker:    breaker,
		limiter:    limiter,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		logger:     logger,
	}
}

// PostJSON sends payload to path and decodes the response into out (if non-nil).
func (c *Client) PostJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	raw, err := c.do(ctx, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, body []byte) ([]byte, error) {
	backoff := c.backoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				metrics.ExternalRequests.WithLabelValues(c.name, "rate_limited").Inc()
				return nil, fmt.Errorf("%s: rate limit: %w", c.name, err)
			}
		}

		var resp *http.Response
		raw, err := c.breaker.Execute(func() ([]byte, error) {
			var (
				b   []byte
				err error
			)
			resp, b, err = c.once(ctx, path, body)
			return b, err
		})
		if err == nil {
			metrics.ExternalRequests.WithLabelValues(c.name, "ok").Inc()
			return raw, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ExternalRequests.WithLabelValues(c.name, "breaker_open").Inc()
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		if !IsRetryable(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			metrics.ExternalRequests.WithLabelValues(c.name, "error").Inc()
			return nil, fmt.Errorf("%s %s: %w", c.name, path, err)
		}

		wait := jitter(retryAfter(resp, backoff, c.maxBackoff))
		metrics.ExternalRequests.WithLabelValues(c.name, "retry").Inc()
		c.logger.Warn("request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", wait.String(),
			"error", err,
		)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

func (c *Client) once(ctx context.Context, path string, body []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	raw, readErr := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return resp, nil, fmt.Errorf("read response: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return resp, nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(msg)}
	}
	return resp, raw, nil
}

// IsRetryable reports whether err is a transient transport or server failure.
// Cancellation of the caller's context is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func retryAfter(resp *http.Response, fallback, limit time.Duration) time.Duration {
	wait := fallback
	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
	}
	return min(wait, limit)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	delta := float64(d) * 0.2
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
