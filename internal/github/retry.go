package github

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryOptions configures retry behavior for forge calls.
type RetryOptions struct {
	MaxAttempts int           // Total attempts including the first (default: 3)
	BaseDelay   time.Duration // Initial delay between attempts (default: 500ms)
	Factor      int           // Backoff multiplier per attempt (default: 2)
	Jitter      float64       // Fraction of the delay randomized both ways (default: 0.5)
}

// DefaultRetryOptions returns the middleware defaults: three attempts with
// exponential backoff from 0.5s and ±50% jitter.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Factor:      2,
		Jitter:      0.5,
	}
}

// WithRetry executes a forge operation with exponential backoff. Connection
// failures, 5xx, and 429 responses are retried; on quota exhaustion the
// result is a *RateLimitError carrying the reset time so the control loop
// can sleep instead of hammering the API.
func WithRetry[T any](ctx context.Context, op func() (T, error), opts RetryOptions) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		result, lastErr = op()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) {
			return result, translateRateLimit(lastErr)
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(opts, attempt)
		if ra := retryAfterHint(lastErr); ra > 0 {
			delay = ra
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
	}

	return result, translateRateLimit(lastErr)
}

// WithRetryVoid is WithRetry for operations without a result value.
func WithRetryVoid(ctx context.Context, op func() error, opts RetryOptions) error {
	_, err := WithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, opts)
	return err
}

// backoffDelay computes base * factor^attempt with symmetric jitter.
func backoffDelay(opts RetryOptions, attempt int) time.Duration {
	delay := opts.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= time.Duration(opts.Factor)
	}
	if opts.Jitter > 0 {
		spread := float64(delay) * opts.Jitter
		delay += time.Duration((rand.Float64()*2 - 1) * spread)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// isRetryable reports whether an error is transient: network failures
// (anything that is not a typed API error), 5xx, and 429.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		// No HTTP status: connection refused, reset, timeout, DNS.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
}

// retryAfterHint extracts the server-provided Retry-After, if any.
func retryAfterHint(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// translateRateLimit converts an exhausted-quota API error into the
// dedicated RateLimitError kind.
func translateRateLimit(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		reset := apiErr.RateLimitReset
		if reset.IsZero() {
			reset = time.Now().Add(60 * time.Second)
		}
		return &RateLimitError{Reset: reset}
	}
	return err
}
