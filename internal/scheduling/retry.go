package scheduling

import (
	"context"
	"time"

	"telehealth-server/internal/apperr"
)

const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// retryRead runs an idempotent read up to attempts times, doubling the pause
// after each retryable failure. Writes must never go through here.
func retryRead[T any](ctx context.Context, attempts int, backoff time.Duration, read func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for i := 0; i < attempts; i++ {
		out, err = read(ctx)
		if err == nil || !apperr.IsRetryable(err) || i == attempts-1 {
			return out, err
		}
		select {
		case <-ctx.Done():
			return out, apperr.Dependency("read", ctx.Err())
		case <-time.After(backoff << i):
		}
	}
	return out, err
}
