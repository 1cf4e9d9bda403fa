package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// retryPolicy controls how transient provider failures are retried.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{maxAttempts: 3, baseDelay: 5 * time.Second}
}

// do runs fn up to maxAttempts times, sleeping between attempts on
// retryable errors. A success with empty response text counts as a
// transient failure. Context cancellation aborts the wait.
func (p retryPolicy) do(ctx context.Context, operation string, fn func() (*Response, error)) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		resp, err := fn()
		if err == nil {
			if resp.Text != "" {
				return resp, nil
			}
			err = fmt.Errorf("%s: %w", operation, errEmptyResponse)
		}
		lastErr = err

		if !isRetryable(err) || attempt == p.maxAttempts-1 {
			break
		}

		delay := p.delay(err, attempt)
		slog.Debug("retrying transient provider error",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", p.maxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// delay picks the wait before the next attempt: the provider's own
// Retry-After hint when present, else exponential backoff on baseDelay.
func (p retryPolicy) delay(err error, attempt int) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter
	}
	return p.baseDelay << attempt
}
