package fetch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/models"
)

const cacheKeyPrefix = "provguard:diff:"

// cachedFetcher caches fetched source diffs in Redis. Backtests and
// repeated checks against the same candidates hit the cache instead of
// the GitHub API. Cache failures degrade to a direct fetch.
type cachedFetcher struct {
	inner  DiffFetcher
	client *redis.Client
	ttl    time.Duration
}

// WithCache decorates a fetcher with a Redis diff cache.
func WithCache(inner DiffFetcher, client *redis.Client, ttl time.Duration) DiffFetcher {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &cachedFetcher{inner: inner, client: client, ttl: ttl}
}

func (c *cachedFetcher) FetchDiff(ctx context.Context, src models.SourceRef) (string, error) {
	key := cacheKeyPrefix + src.String()

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		log.Debug().Str("source", src.String()).Msg("Diff cache hit")
		return cached, nil
	}
	if err != redis.Nil {
		log.Warn().Err(err).Str("source", src.String()).Msg("Diff cache read failed, fetching directly")
	}

	diffText, err := c.inner.FetchDiff(ctx, src)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, diffText, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("source", src.String()).Msg("Diff cache write failed")
	}
	return diffText, nil
}
