package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// rateCacheEntry is the JSON document stored in Redis, carrying the
// fetch timestamp so Get can distinguish fresh from stale entries.
type rateCacheEntry struct {
	Rate     TreasuryRate `json:"rate"`
	CachedAt time.Time    `json:"cached_at"`
}

// Cache is a Redis-backed cache of treasury rates with a fresh window
// (ttl) and a longer stale-tolerance window during which an entry is
// still served (annotated stale) if a live refetch fails.
type Cache struct {
	client         *redis.Client
	ttl            time.Duration
	staleTolerance time.Duration
}

// NewCache builds a Cache. A nil client disables caching entirely; Get
// always misses and Set is a no-op, matching the teacher's "optional
// Redis support" pattern.
func NewCache(client *redis.Client, ttl, staleTolerance time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, staleTolerance: staleTolerance}
}

func (c *Cache) buildKey(pair string) string {
	return fmt.Sprintf("fxengine:rate:%s", pair)
}

// Get returns the cached rate for pair and whether it is stale (past
// ttl but within staleTolerance). A miss returns ok=false.
func (c *Cache) Get(ctx context.Context, pair string) (rate TreasuryRate, stale bool, ok bool) {
	if c == nil || c.client == nil {
		return TreasuryRate{}, false, false
	}

	cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	cached, err := c.client.Get(cacheCtx, c.buildKey(pair)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("pair", pair).Msg("rate cache get error, treating as miss")
		}
		return TreasuryRate{}, false, false
	}

	var entry rateCacheEntry
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		log.Warn().Err(err).Str("pair", pair).Msg("failed to unmarshal cached rate")
		return TreasuryRate{}, false, false
	}

	age := time.Since(entry.CachedAt)
	if age > c.ttl+c.staleTolerance {
		return TreasuryRate{}, false, false
	}
	return entry.Rate, age > c.ttl, true
}

// Set stores rate under pair with the cache's ttl+staleTolerance as the
// Redis TTL (the entry's own CachedAt timestamp governs the fresh/stale
// boundary within that window). Writes are fire-and-forget, mirroring
// the teacher's async cache-write pattern: a cache failure never fails
// the caller's request.
func (c *Cache) Set(ctx context.Context, rate TreasuryRate) {
	if c == nil || c.client == nil {
		return
	}

	entry := rateCacheEntry{Rate: rate, CachedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("pair", rate.Pair).Msg("failed to marshal rate for cache")
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.client.Set(cacheCtx, c.buildKey(rate.Pair), data, c.ttl+c.staleTolerance).Err(); err != nil {
			log.Warn().Err(err).Str("pair", rate.Pair).Msg("failed to cache rate")
		}
	}()
}
