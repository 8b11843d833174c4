package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Backoff computes the wait before the next attempt of a failed request.
type Backoff struct {
	// RetryDelay is the wait after the first failure. It doubles with
	// every further failure.
	RetryDelay time.Duration

	// RateLimitDelay is the wait after a rate-limited response,
	// regardless of the attempt number.
	RateLimitDelay time.Duration
}

// Delay returns the wait after the given 1-based failed attempt.
func (b Backoff) Delay(attempt int, err error) time.Duration {
	if lawdoc.ErrorCode(err) == lawdoc.ERATELIMIT {
		return b.RateLimitDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	return b.RetryDelay << (attempt - 1)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d. Returns the context's error if it is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchFunc issues one request.
type FetchFunc func(ctx context.Context, req *lawdoc.Request) ([]byte, error)

// RetryFunc is called before waiting for the next attempt.
type RetryFunc func(attempt int, err error, delay time.Duration)

// FetchWithRetry issues req up to attempts times. Only retryable errors
// are retried; the last error is returned once the attempts are used up.
func FetchWithRetry(ctx context.Context, req *lawdoc.Request, fetch FetchFunc, attempts int, backoff Backoff, sleep SleepFunc, onRetry RetryFunc) ([]byte, error) {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := fetch(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == attempts || !lawdoc.IsRetryable(err) || ctx.Err() != nil {
			break
		}

		delay := backoff.Delay(attempt, err)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
