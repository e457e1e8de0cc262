// Package resilience provides retry with exponential backoff for provider
// calls. The experiment runner deliberately does not retry (a retried
// generation would distort the measured latency), but bulk operations like
// corpus seeding use it to survive transient provider failures.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted is returned (wrapped around the last error) when every
// attempt fails.
var ErrRetriesExhausted = errors.New("resilience: retries exhausted")

// RetryConfig configures a [Retrier].
type RetryConfig struct {
	// Name identifies the operation in log output.
	Name string

	// MaxAttempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. Each further
	// attempt doubles it, capped at MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts. Zero means no cap.
	MaxBackoff time.Duration
}

// DefaultRetryConfig is tuned for rate-limited API calls: three attempts
// with a 1s/2s backoff.
func DefaultRetryConfig(name string) RetryConfig {
	return RetryConfig{
		Name:           name,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// Retrier executes operations with retry and exponential backoff.
// It is stateless and safe for concurrent use.
type Retrier struct {
	cfg RetryConfig
}

// NewRetrier creates a [Retrier] with the given config.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retrier{cfg: cfg}
}

// Execute runs fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. Context errors abort immediately and are returned as-is;
// they never count as retryable failures.
func (r *Retrier) Execute(ctx context.Context, fn func(context.Context) error) error {
	backoff := r.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		if attempt == r.cfg.MaxAttempts {
			break
		}
		slog.Warn("operation failed, retrying",
			"op", r.cfg.Name, "attempt", attempt, "max", r.cfg.MaxAttempts,
			"backoff", backoff, "error", err)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, r.cfg.Name, lastErr)
}

// ExecuteWithResult runs fn with retry and returns its result. This is a
// package-level function because Go does not support method-level type
// parameters.
func ExecuteWithResult[R any](ctx context.Context, r *Retrier, fn func(context.Context) (R, error)) (R, error) {
	var result R
	err := r.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}
