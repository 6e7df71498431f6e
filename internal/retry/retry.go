// Package retry implements the bounded exponential backoff shared by every
// store-facing cache operation. The policy is deliberately small: attempt
// count, base delay, doubling, and a classifier deciding which errors are
// worth another round-trip.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded retry loop with exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts (first try included).
	// Values < 1 behave as 1.
	MaxAttempts int

	// BaseDelay is slept after the first failed attempt; each further
	// failure doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. 0 disables the cap.
	MaxDelay time.Duration

	// Retryable classifies errors. A nil classifier retries everything.
	// Non-retryable errors abort the loop immediately.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, attempts are exhausted, the error is
// classified non-retryable, or ctx is done. It returns the number of
// attempts actually made alongside the last error.
func (p Policy) Do(ctx context.Context, fn func() error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		lastErr = fn()
		if lastErr == nil {
			return i + 1, nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return i + 1, lastErr
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return i + 1, ctx.Err()
		case <-time.After(p.backoff(i)):
		}
	}
	return attempts, lastErr
}

// backoff returns BaseDelay * 2^attempt, capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
