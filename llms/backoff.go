package llms

import (
	"context"
	"math"
	"time"
)

// WithRetry invokes fn up to maxAttempts times, applying exponential backoff
// between attempts, and gives up immediately on a fatal (non-retryable)
// error. It is shared across every provider client through the opaque
// Client contract instead of being provider-specific.
func WithRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() (Response, error)) (Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return Response{}, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := time.Duration(math.Pow(2, float64(attempt))) * baseDelay
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	return Response{}, lastErr
}
