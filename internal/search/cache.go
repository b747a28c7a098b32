package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/cache"
)

const (
	maxCachedQuery   = 256
	cacheCallTimeout = 250 * time.Millisecond
)

// CachedSearcher serves repeated queries from Redis. Keys include the
// catalog version, so a new snapshot never serves stale results. Any cache
// failure falls through to the index.
type CachedSearcher struct {
	index  *Index
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSearcher wraps index. A nil client disables caching.
func NewCachedSearcher(index *Index, client *redis.Client, ttl time.Duration) *CachedSearcher {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSearcher{index: index, client: client, ttl: ttl}
}

// Index returns the wrapped index.
func (c *CachedSearcher) Index() *Index {
	return c.index
}

// Search behaves like Index.Search.
func (c *CachedSearcher) Search(ctx context.Context, query string) []Entry {
	q := Normalize(query)
	if q == "" {
		return []Entry{}
	}
	if c.client == nil || len(q) > maxCachedQuery {
		return c.index.Search(q)
	}

	key := cache.Key("search", c.index.Version(), q)
	if cached, ok := c.get(ctx, key); ok {
		return cached
	}

	results := c.index.Search(q)
	c.set(ctx, key, results)
	return results
}

func (c *CachedSearcher) get(ctx context.Context, key string) ([]Entry, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("search cache read failed", "error", err)
		}
		return nil, false
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Debug("search cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return entries, true
}

func (c *CachedSearcher) set(ctx context.Context, key string, entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheCallTimeout)
	defer cancel()
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Debug("search cache write failed", "error", err)
	}
}
