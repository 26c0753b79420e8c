package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/ranking"
)

// RankingCache caches computed rankings per limit.
//
// Keys:
//   - String "ranking:gen" is the generation counter
//   - String "ranking:top:{gen}:{limit}" holds the entries as JSON
//
// Invalidate bumps the generation, which orphans every cached ranking in one
// round trip; orphans expire through their TTL.
type RankingCache struct {
	cache *Cache
	ttl   time.Duration
}

const keyRankingGeneration = PrefixRanking + "gen"

// NewRankingCache creates a RankingCache. A non-positive ttl means TTLRanking.
func NewRankingCache(cache *Cache, ttl time.Duration) *RankingCache {
	if ttl <= 0 {
		ttl = TTLRanking
	}
	return &RankingCache{cache: cache, ttl: ttl}
}

// RankingKey returns the key of a ranking for a generation and limit.
func RankingKey(generation int64, limit int) string {
	return fmt.Sprintf("%stop:%d:%d", PrefixRanking, generation, limit)
}

type cachedRanking struct {
	Entries  []ranking.Entry `json:"entries"`
	CachedAt time.Time       `json:"cached_at"`
}

// Generation returns the current generation. Callers read it before
// computing a ranking and pass it to Set.
func (c *RankingCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.cache.Int(ctx, keyRankingGeneration)
	if err != nil {
		return 0, fmt.Errorf("ranking_cache: read generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached ranking for limit. ok is false on a miss.
func (c *RankingCache) Get(ctx context.Context, limit int) ([]ranking.Entry, bool, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}

	var v cachedRanking
	if err := c.cache.Get(ctx, RankingKey(gen, limit), &v); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ranking_cache: get: %w", err)
	}
	if v.Entries == nil {
		v.Entries = []ranking.Entry{}
	}
	return v.Entries, true, nil
}

// Set stores the ranking for limit under generation.
func (c *RankingCache) Set(ctx context.Context, generation int64, limit int, entries []ranking.Entry) error {
	return c.cache.Set(ctx, RankingKey(generation, limit), cachedRanking{Entries: entries, CachedAt: time.Now().UTC()}, c.ttl)
}

// Invalidate drops every cached ranking.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	if _, err := c.cache.Incr(ctx, keyRankingGeneration); err != nil {
		return fmt.Errorf("ranking_cache: invalidate: %w", err)
	}
	return nil
}
