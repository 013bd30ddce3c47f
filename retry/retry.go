// Package retry wraps single provider exchanges with a bounded retry
// policy. It deliberately wraps one network exchange at a time, never a
// whole function-calling loop, so an already executed callback is never
// re-invoked by a retry.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Defaults applied by NewPolicy when not overridden.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
)

// Policy retries an operation on retryable failures with linear backoff.
// The zero value performs exactly one attempt.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration
	// Retryable classifies errors; nil retries nothing.
	Retryable func(error) bool
}

func NewPolicy(maxAttempts int, backoff time.Duration, retryable func(error) bool) Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return Policy{MaxAttempts: maxAttempts, Backoff: backoff, Retryable: retryable}
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempt budget is spent, or ctx is cancelled. The last error surfaces
// unchanged.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		slog.Warn("exchange retry", "attempt", attempt, "error", err)
		select {
		case <-time.After(p.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
