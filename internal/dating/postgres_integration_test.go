//go:build integration

package dating

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imadgeboyega/kiekky-match/internal/common/database"
	"github.com/imadgeboyega/kiekky-match/internal/testinfra"
)

// Usage:
//   go test -tags integration -run TestPostgres ./internal/dating/...

func newPostgresStore(t *testing.T) (Store, *sqlx.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Skipf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() { testinfra.CleanupContainer(t, context.Background(), pg.Container) })

	db, err := database.NewPostgresDBFromURL(ctx, pg.URL, database.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// migrations are re-run on every start
	require.NoError(t, Migrate(ctx, db))

	return NewPostgresRepository(db, BreakerConfig{Failures: 5, Timeout: time.Second}), db
}

func TestPostgres_Store(t *testing.T) {
	store, db := newPostgresStore(t)
	ctx := context.Background()

	t.Run("ledger keeps the latest decision per target", func(t *testing.T) {
		for i, d := range []Decision{DecisionLike, DecisionPass, DecisionLike} {
			require.NoError(t, store.AppendSwipe(ctx, &Swipe{
				ID: fmt.Sprintf("s%d", i), ActorID: "ledger-a", TargetID: "ledger-b",
				Decision: d, CreatedAt: baseTime,
			}))
		}
		require.NoError(t, store.AppendSwipe(ctx, &Swipe{
			ID: "s3", ActorID: "ledger-b", TargetID: "ledger-a", Decision: DecisionPass, CreatedAt: baseTime,
		}))

		latest, err := store.LatestDecisions(ctx, "ledger-a")
		require.NoError(t, err)
		assert.Equal(t, map[string]Decision{"ledger-b": DecisionLike}, latest)

		lo, hi, err := store.PairDecisions(ctx, NewPairKey("ledger-b", "ledger-a"))
		require.NoError(t, err)
		assert.Equal(t, DecisionLike, lo)
		assert.Equal(t, DecisionPass, hi)

		history, err := store.SwipeHistory(ctx, "ledger-a", "ledger-b")
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "s0", history[0].ID)
		assert.Equal(t, "s2", history[2].ID)
	})

	t.Run("blocks are read from the ledger", func(t *testing.T) {
		require.NoError(t, store.AppendSwipe(ctx, &Swipe{ID: "b1", ActorID: "blk-a", TargetID: "blk-b", Decision: DecisionBlock, CreatedAt: baseTime}))
		require.NoError(t, store.AppendSwipe(ctx, &Swipe{ID: "b2", ActorID: "blk-a", TargetID: "blk-b", Decision: DecisionLike, CreatedAt: baseTime}))

		blocked, err := store.PairEverBlocked(ctx, NewPairKey("blk-b", "blk-a"))
		require.NoError(t, err)
		assert.True(t, blocked)

		blocked, err = store.PairEverBlocked(ctx, NewPairKey("ledger-a", "ledger-b"))
		require.NoError(t, err)
		assert.False(t, blocked)

		partners, err := store.BlockedPartners(ctx, "blk-b")
		require.NoError(t, err)
		assert.Equal(t, []string{"blk-a"}, partners)
	})

	t.Run("candidates page by recency with a keyset cursor", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.UpsertProfile(ctx, testProfile(fmt.Sprintf("cand-%d", i), func(p *Profile) {
				p.Country = "CA"
				p.UpdatedAt = baseTime.Add(time.Duration(i/2) * time.Minute)
			})))
		}

		q := &CandidateQuery{Country: "ca", ExcludeIDs: []string{"cand-4"}, Limit: 2, Now: baseTime}
		var ids []string
		for pages := 0; pages < 5; pages++ {
			batch, next, err := store.FindCandidates(ctx, "cand-0", q)
			require.NoError(t, err)
			for _, p := range batch {
				ids = append(ids, p.UserID)
			}
			if next == nil {
				break
			}
			q.After = next
		}
		assert.Equal(t, []string{"cand-3", "cand-2", "cand-1"}, ids)
	})

	t.Run("match writes are conditional", func(t *testing.T) {
		m := &Match{
			ID: "m1", LoUserID: "mw-a", HiUserID: "mw-b", LoDecision: DecisionLike,
			Status: StatusLiked, Version: 1, CreatedAt: baseTime, UpdatedAt: baseTime,
		}
		require.NoError(t, store.InsertMatch(ctx, m))

		dup := *m
		dup.ID = "m2"
		assert.Equal(t, KindConflict, KindOf(store.InsertMatch(ctx, &dup)))

		next := *m
		next.HiDecision = DecisionLike
		next.Status = StatusMatched
		next.Version = 2
		require.NoError(t, store.UpdateMatch(ctx, &next, 1))
		assert.Equal(t, KindConflict, KindOf(store.UpdateMatch(ctx, &next, 1)))

		got, err := store.GetMatch(ctx, m.Key())
		require.NoError(t, err)
		assert.Equal(t, StatusMatched, got.Status)
		assert.Equal(t, int64(2), got.Version)

		matches, err := store.ListMatches(ctx, "mw-b", StatusMatched)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "mw-a", matches[0].Partner("mw-b"))
	})

	t.Run("pair order follows byte order", func(t *testing.T) {
		key := NewPairKey("amy", "Zed")
		require.Equal(t, "Zed", key.Lo)
		require.NoError(t, store.InsertMatch(ctx, &Match{
			ID: "m-case", LoUserID: key.Lo, HiUserID: key.Hi, Status: StatusNew,
			Version: 1, CreatedAt: baseTime, UpdatedAt: baseTime,
		}))

		var collation string
		require.NoError(t, db.GetContext(ctx, &collation, `
            SELECT collation_name FROM information_schema.columns
            WHERE table_name = 'dating_matches' AND column_name = 'lo_user_id'
        `))
		assert.Equal(t, "C", collation)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := store.Stats(ctx, baseTime.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(5), stats.TotalProfiles)
		assert.Equal(t, int64(6), stats.TotalSwipes)
		assert.Equal(t, int64(6), stats.SwipesLastDay)
		assert.Equal(t, int64(1), stats.MatchesByStatus[StatusMatched])
	})
}

func TestPostgres_ServiceEndToEnd(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()

	for _, p := range []*Profile{testProfile("Zed"), testProfile("amy"), testProfile("bob")} {
		require.NoError(t, store.UpsertProfile(ctx, p))
	}
	notifier := &recordingNotifier{}
	svc := NewService(store, Options{Notifier: notifier})

	_, err := svc.RecordSwipe(ctx, "amy", "Zed", DecisionLike)
	require.NoError(t, err)
	res, err := svc.RecordSwipe(ctx, "Zed", "amy", DecisionLike)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, 1, notifier.count())

	// a block on someone without a profile survives their later likes
	res, err = svc.RecordSwipe(ctx, "bob", "newcomer", DecisionBlock)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, res.Status)
	require.NoError(t, store.UpsertProfile(ctx, testProfile("newcomer")))
	res, err = svc.RecordSwipe(ctx, "newcomer", "bob", DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, res.Status)

	page, err := svc.GetFeed(ctx, "newcomer", nil, nil, "")
	require.NoError(t, err)
	assert.NotContains(t, feedIDs(page), "bob")
}
