package dating

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/imadgeboyega/kiekky-match/internal/common/cache"
	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
)

// FeedCache holds ranked candidate lists keyed by (user, filter hash).
// Implementations treat backend failures as misses.
type FeedCache interface {
	Get(ctx context.Context, userID, filterHash string) ([]*ScoredCandidate, bool)
	Set(ctx context.Context, userID, filterHash string, items []*ScoredCandidate)
	Invalidate(ctx context.Context, userID string)
}

type noopFeedCache struct{}

// NewNoopFeedCache disables feed caching.
func NewNoopFeedCache() FeedCache { return noopFeedCache{} }

func (noopFeedCache) Get(context.Context, string, string) ([]*ScoredCandidate, bool) {
	return nil, false
}
func (noopFeedCache) Set(context.Context, string, string, []*ScoredCandidate) {}
func (noopFeedCache) Invalidate(context.Context, string)                      {}

// memoryFeedCache keeps ranked lists in a process-local LRU. Cached slices
// are shared between readers and must not be modified.
type memoryFeedCache struct {
	lru *cache.LRU[[]*ScoredCandidate]
}

func NewMemoryFeedCache(size int, ttl time.Duration) FeedCache {
	return &memoryFeedCache{lru: cache.NewLRU[[]*ScoredCandidate](size, ttl)}
}

func (c *memoryFeedCache) Get(_ context.Context, userID, filterHash string) ([]*ScoredCandidate, bool) {
	items, ok := c.lru.Get(userID + "|" + filterHash)
	recordFeedCache(ok)
	return items, ok
}

func (c *memoryFeedCache) Set(_ context.Context, userID, filterHash string, items []*ScoredCandidate) {
	c.lru.Add(userID+"|"+filterHash, items)
}

func (c *memoryFeedCache) Invalidate(_ context.Context, userID string) {
	c.lru.RemovePrefix(userID + "|")
}

// redisFeedCache shares ranked lists across instances. Each user has a
// generation counter; bumping it orphans every entry of the old generation,
// which then expires on its own TTL.
type redisFeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFeedCache(client *redis.Client, ttl time.Duration) FeedCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisFeedCache{client: client, ttl: ttl}
}

func generationKey(userID string) string {
	return "dating:feedgen:" + userID
}

func (c *redisFeedCache) entryKey(ctx context.Context, userID, filterHash string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if err == redis.Nil {
		gen = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("dating:feed:%s:%s:%s", userID, strconv.FormatInt(gen, 10), filterHash), nil
}

func (c *redisFeedCache) Get(ctx context.Context, userID, filterHash string) ([]*ScoredCandidate, bool) {
	key, err := c.entryKey(ctx, userID, filterHash)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("feed cache generation lookup failed")
		recordFeedCache(false)
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("feed cache read failed")
		}
		recordFeedCache(false)
		return nil, false
	}

	var items []*ScoredCandidate
	if err := json.Unmarshal(data, &items); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("discarding corrupt feed cache entry")
		recordFeedCache(false)
		return nil, false
	}
	recordFeedCache(true)
	return items, true
}

func (c *redisFeedCache) Set(ctx context.Context, userID, filterHash string, items []*ScoredCandidate) {
	key, err := c.entryKey(ctx, userID, filterHash)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("feed cache generation lookup failed")
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("feed cache write failed")
	}
}

func (c *redisFeedCache) Invalidate(ctx context.Context, userID string) {
	key := generationKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	// the counter must outlive every entry written under it
	pipe.Expire(ctx, key, 24*time.Hour+c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("feed cache invalidation failed")
	}
}
