package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provguard/provguard/internal/models"
)

var testSrc = models.SourceRef{Kind: models.SourceKindPR, ID: "42"}

func TestWithRetryRecoversFromTransientFailures(t *testing.T) {
	calls := 0
	inner := FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		calls++
		if calls < 3 {
			return "", &TransientError{Status: 502}
		}
		return "diff content", nil
	})

	f := WithRetry(inner, 5, time.Millisecond)
	got, err := f.FetchDiff(context.Background(), testSrc)
	require.NoError(t, err)
	assert.Equal(t, "diff content", got)
	assert.Equal(t, 3, calls)
}

func TestWithRetryNeverRetriesNotFound(t *testing.T) {
	calls := 0
	inner := FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		calls++
		return "", &NotFoundError{Source: src}
	})

	f := WithRetry(inner, 5, time.Millisecond)
	_, err := f.FetchDiff(context.Background(), testSrc)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	inner := FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		calls++
		return "", &RateLimitedError{RetryAfter: time.Millisecond}
	})

	f := WithRetry(inner, 3, time.Millisecond)
	_, err := f.FetchDiff(context.Background(), testSrc)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, calls)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	inner := FetcherFunc(func(ctx context.Context, src models.SourceRef) (string, error) {
		return "", &TransientError{Status: 503}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := WithRetry(inner, 5, time.Hour)
	_, err := f.FetchDiff(ctx, testSrc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsNotFound(&NotFoundError{Source: testSrc}))
	assert.False(t, IsNotFound(&TransientError{Status: 500}))

	assert.True(t, IsRetryable(&RateLimitedError{}))
	assert.True(t, IsRetryable(&TransientError{Status: 500}))
	assert.False(t, IsRetryable(&NotFoundError{Source: testSrc}))
	assert.False(t, IsRetryable(context.Canceled))
}
