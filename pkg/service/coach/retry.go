package coach

import (
	"context"
	"time"
)

// RetryPolicy is an explicit bounded-retry policy: a fixed number of attempts
// with a fixed backoff between them, independent of any call site.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy performs the original attempt plus exactly one retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Backoff:     800 * time.Millisecond,
	}
}

// Do runs fn until it succeeds or attempts are exhausted, returning the last
// error. Context cancellation aborts the backoff wait.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && p.Backoff > 0 {
			timer := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
