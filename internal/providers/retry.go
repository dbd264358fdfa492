package providers

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often and how slowly a failing call is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns 5 attempts with delays capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
	}
}

// Backoff returns the full-jitter delay before the retry that follows the
// given 0-based attempt: a uniform value in [0, min(MaxDelay, BaseDelay*2^n)).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	ceiling := p.MaxDelay
	if attempt < 32 {
		if d := p.BaseDelay << uint(attempt); d > 0 && (ceiling <= 0 || d < ceiling) {
			ceiling = d
		}
	}
	if ceiling <= 0 {
		return 0
	}
	return rand.N(ceiling)
}

// Retry calls fn until it succeeds, returns a non-transient error, or the
// policy's attempts are used up. fn receives the 1-based attempt number.
// Only TransientError results are retried; the last error is returned as is.
func Retry(ctx context.Context, p RetryPolicy, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(attempt + 1)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
