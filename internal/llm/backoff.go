package llm

import (
	"context"
	"math/rand"
	"time"
)

// Backoff holds bounded exponential backoff parameters for provider calls.
// There is deliberately no per-attempt timeout: slow calls are allowed to
// finish, and cancellation is cooperative through the context.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultBackoff returns the standard backoff used for provider calls.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
	}
}

// Retry invokes fn up to MaxRetries+1 times with exponential backoff and
// jitter between attempts. It returns the last error when all attempts fail,
// or the context error if cancelled while waiting.
func (b Backoff) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.delayFor(attempt)):
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}

	return lastErr
}

// delayFor computes the jittered wait before the given attempt. MaxDelay is a
// hard ceiling, enforced again after jittering.
func (b Backoff) delayFor(attempt int) time.Duration {
	delay := b.BaseDelay << (attempt - 1)
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	// Full jitter keeps concurrent passes from retrying in lockstep.
	delay = time.Duration(rand.Int63n(int64(delay)) + int64(delay)/2)
	if delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return delay
}
