package dating

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-match/internal/common/database"
)

func newRedisFeedCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, FeedCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := database.NewRedisClientFromURL(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisFeedCache(client, ttl)
}

func rankedIDs(items []*ScoredCandidate) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Profile.UserID
	}
	return ids
}

func TestRedisFeedCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisFeedCache(t, time.Minute)

	items := []*ScoredCandidate{
		{Profile: testProfile("B"), Score: 9, Reason: "shares your community"},
		{Profile: testProfile("C"), Score: 0.5},
	}
	c.Set(ctx, "A", "h1", items)

	got, ok := c.Get(ctx, "A", "h1")
	require.True(t, ok)
	assert.Equal(t, []string{"B", "C"}, rankedIDs(got))
	assert.Equal(t, 9.0, got[0].Score)
	assert.Equal(t, "shares your community", got[0].Reason)
	assert.True(t, got[0].Profile.UpdatedAt.Equal(baseTime))

	assert.Equal(t, time.Minute, mr.TTL("dating:feed:A:0:h1"))

	_, ok = c.Get(ctx, "A", "other-filters")
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "A", "h1")
	assert.False(t, ok, "entries expire with their ttl")
}

func TestRedisFeedCache_InvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisFeedCache(t, time.Minute)

	items := []*ScoredCandidate{{Profile: testProfile("B"), Score: 1}}
	c.Set(ctx, "A", "h1", items)
	c.Set(ctx, "A10", "h1", items)

	c.Invalidate(ctx, "A")

	gen, err := mr.Get("dating:feedgen:A")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	assert.Greater(t, mr.TTL("dating:feedgen:A"), 24*time.Hour)

	_, ok := c.Get(ctx, "A", "h1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "A10", "h1")
	assert.True(t, ok, "invalidating A must not touch A10")

	// new entries land under the new generation
	c.Set(ctx, "A", "h1", items)
	assert.True(t, mr.Exists("dating:feed:A:1:h1"))
	_, ok = c.Get(ctx, "A", "h1")
	assert.True(t, ok)
}

func TestRedisFeedCache_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisFeedCache(t, time.Minute)

	require.NoError(t, mr.Set("dating:feed:A:0:h1", "{not json"))
	_, ok := c.Get(ctx, "A", "h1")
	assert.False(t, ok)
}

func TestRedisFeedCache_BackendDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr, c := newRedisFeedCache(t, time.Minute)
	c.Set(ctx, "A", "h1", []*ScoredCandidate{{Profile: testProfile("B")}})

	mr.Close()

	_, ok := c.Get(ctx, "A", "h1")
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		c.Set(ctx, "A", "h1", nil)
		c.Invalidate(ctx, "A")
	})
}

func TestRedisFeedCache_ServesTheFeed(t *testing.T) {
	ctx := context.Background()
	_, c := newRedisFeedCache(t, time.Minute)

	store := NewMemoryStore()
	seedProfiles(t, store, testProfile("me"), testProfile("u1"), testProfile("u2"))
	svc := NewService(store, Options{Cache: c})

	first, err := svc.GetFeed(ctx, "me", nil, intPtr(1), "")
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)

	// a profile added after ranking stays out until the cache is invalidated
	seedProfiles(t, store, testProfile("u3", func(p *Profile) { p.UpdatedAt = baseTime.Add(time.Hour) }))
	second, err := svc.GetFeed(ctx, "me", nil, intPtr(10), *first.NextCursor)
	require.NoError(t, err)
	assert.NotContains(t, feedIDs(second), "u3")

	_, err = svc.RecordSwipe(ctx, "me", "u1", DecisionPass)
	require.NoError(t, err)
	fresh, err := svc.GetFeed(ctx, "me", nil, intPtr(10), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u2"}, feedIDs(fresh))
}
