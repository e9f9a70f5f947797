package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/models"
)

// retryFetcher wraps another fetcher with bounded exponential backoff.
// NotFound is never retried; it is an answer, not a failure.
type retryFetcher struct {
	inner       DiffFetcher
	maxAttempts int
	baseBackoff time.Duration
}

// WithRetry decorates a fetcher with bounded retries for rate-limit and
// transient failures.
func WithRetry(inner DiffFetcher, maxAttempts int, baseBackoff time.Duration) DiffFetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	return &retryFetcher{inner: inner, maxAttempts: maxAttempts, baseBackoff: baseBackoff}
}

func (r *retryFetcher) FetchDiff(ctx context.Context, src models.SourceRef) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		diffText, err := r.inner.FetchDiff(ctx, src)
		if err == nil {
			return diffText, nil
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err

		wait := r.baseBackoff << uint(attempt)
		var rl *RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		log.Debug().
			Str("source", src.String()).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Retrying source diff fetch")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}
