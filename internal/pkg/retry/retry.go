/*
Package retry provides a bounded, fixed-delay retry policy for short operations
whose failures are expected to be transient.

The policy is intentionally minimal: a fixed number of attempts with a constant
inter-attempt delay. It is used to guard the reaction aggregation sequence, which
can race with concurrent mutations of the same message.
*/
package retry

import (
	"context"
	"time"
)

// Policy defines how many times an operation is attempted and how long to wait
// between attempts.
type Policy struct {
	// Attempts is the total number of tries, including the first one. Values
	// below 1 are treated as 1.
	Attempts int

	// Delay is the fixed pause between consecutive attempts.
	Delay time.Duration
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is cancelled.
// It returns nil on the first success, the context error on cancellation, and
// the last operation error on exhaustion.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return lastErr
}
