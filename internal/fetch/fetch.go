package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/provguard/provguard/internal/models"
)

// DiffFetcher is the abstract capability Layer 2 validation depends on:
// resolve a source identifier to its authoritative diff text. Concrete
// implementations (GitHub API, caches, test stubs) are substituted
// without touching matching logic.
type DiffFetcher interface {
	FetchDiff(ctx context.Context, src models.SourceRef) (string, error)
}

// FetcherFunc adapts a plain function to the DiffFetcher interface.
type FetcherFunc func(ctx context.Context, src models.SourceRef) (string, error)

func (f FetcherFunc) FetchDiff(ctx context.Context, src models.SourceRef) (string, error) {
	return f(ctx, src)
}

// NotFoundError means the source identifier no longer resolves (deleted
// or rebased away). It is a benign, expected outcome: the candidate is
// simply not a match. It must never surface as an aggregate failure.
type NotFoundError struct {
	Source models.SourceRef
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s not found", e.Source)
}

// RateLimitedError means the upstream API refused the request; retry
// after the indicated delay.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// TransientError wraps 5xx responses and network failures that are worth
// retrying.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient fetch failure: %v", e.Err)
	}
	return fmt.Sprintf("transient fetch failure: status %d", e.Status)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a benign missing-source outcome.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var rl *RateLimitedError
	var tr *TransientError
	return errors.As(err, &rl) || errors.As(err, &tr)
}
