package dating

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MatchWritesAreConditional(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	m := &Match{ID: "m1", LoUserID: "a", HiUserID: "b", Status: StatusLiked, Version: 1}
	require.NoError(t, store.InsertMatch(ctx, m))

	dup := *m
	dup.ID = "m2"
	assert.Equal(t, KindConflict, KindOf(store.InsertMatch(ctx, &dup)))

	next := *m
	next.Status = StatusMatched
	next.Version = 2
	require.NoError(t, store.UpdateMatch(ctx, &next, 1))

	stale := *m
	stale.Status = StatusPass
	stale.Version = 2
	assert.Equal(t, KindConflict, KindOf(store.UpdateMatch(ctx, &stale, 1)))

	got, err := store.GetMatch(ctx, NewPairKey("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, got.Status)
	assert.Equal(t, "m1", got.ID)

	got.Status = StatusBlocked
	again, err := store.GetMatch(ctx, NewPairKey("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, again.Status, "reads return copies")
}

func TestMemoryStore_LatestDecisionWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, d := range []Decision{DecisionLike, DecisionPass, DecisionLike} {
		require.NoError(t, store.AppendSwipe(ctx, &Swipe{
			ID: string(rune('1' + i)), ActorID: "b", TargetID: "a", Decision: d,
		}))
	}
	require.NoError(t, store.AppendSwipe(ctx, &Swipe{ID: "x", ActorID: "a", TargetID: "b", Decision: DecisionPass}))

	lo, hi, err := store.PairDecisions(ctx, NewPairKey("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, DecisionPass, lo)
	assert.Equal(t, DecisionLike, hi)

	latest, err := store.LatestDecisions(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]Decision{"a": DecisionLike}, latest)

	history, err := store.SwipeHistory(ctx, "b", "a")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestMemoryStore_FindCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	yes, no := true, false

	seedProfiles(t, store,
		testProfile("me"),
		testProfile("young", func(p *Profile) { p.BirthDate = baseTime.AddDate(-20, 0, 0) }),
		testProfile("old", func(p *Profile) { p.BirthDate = baseTime.AddDate(-50, 0, 0) }),
		testProfile("photo", func(p *Profile) { p.HasPhoto = true }),
		testProfile("male", func(p *Profile) { p.Gender = "male" }),
		testProfile("tlv", func(p *Profile) { p.City = "Tel Aviv" }),
		testProfile("reform", func(p *Profile) { p.JudaismDirection = "reform"; p.Goal = GoalSerious }),
	)

	tests := []struct {
		name  string
		query CandidateQuery
		want  []string
	}{
		{"age range", CandidateQuery{AgeMin: 25, AgeMax: 40, Gender: "female", City: "haifa", HasPhoto: &no}, []string{"reform"}},
		{"age max is inclusive", CandidateQuery{AgeMin: 50, AgeMax: 50}, []string{"old"}},
		{"min age excludes younger", CandidateQuery{AgeMin: 21, AgeMax: 21}, nil},
		{"photo", CandidateQuery{HasPhoto: &yes}, []string{"photo"}},
		{"gender", CandidateQuery{Gender: "male"}, []string{"male"}},
		{"city is case-insensitive", CandidateQuery{City: "TEL AVIV", Country: "il"}, []string{"tlv"}},
		{"denomination and goal", CandidateQuery{Denominations: []string{"reform"}, Goals: []Goal{GoalSerious}}, []string{"reform"}},
		{"exclusions", CandidateQuery{Country: "IL", ExcludeIDs: []string{"young", "old", "photo", "male", "tlv"}}, []string{"reform"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Now = baseTime
			q.Limit = 100
			got, next, err := store.FindCandidates(ctx, "me", &q)
			require.NoError(t, err)
			assert.Nil(t, next)

			var ids []string
			for _, p := range got {
				ids = append(ids, p.UserID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_FindCandidatesPages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedProfiles(t, store,
		testProfile("a", func(p *Profile) { p.UpdatedAt = baseTime.Add(2 * time.Minute) }),
		testProfile("b", func(p *Profile) { p.UpdatedAt = baseTime.Add(time.Minute) }),
		testProfile("c", func(p *Profile) { p.UpdatedAt = baseTime.Add(time.Minute) }),
		testProfile("d"),
	)

	q := &CandidateQuery{Now: baseTime, Limit: 2}
	first, next, err := store.FindCandidates(ctx, "nobody", q)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "a", first[0].UserID)
	assert.Equal(t, "c", first[1].UserID)

	q.After = next
	second, next, err := store.FindCandidates(ctx, "nobody", q)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, second, 2)
	assert.Equal(t, "b", second[0].UserID)
	assert.Equal(t, "d", second[1].UserID)
}

func TestMemoryStore_BlockedPartners(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	swipes := []*Swipe{
		{ID: "1", ActorID: "a", TargetID: "b", Decision: DecisionBlock},
		{ID: "2", ActorID: "a", TargetID: "b", Decision: DecisionLike},
		{ID: "3", ActorID: "c", TargetID: "a", Decision: DecisionBlock},
		{ID: "4", ActorID: "a", TargetID: "d", Decision: DecisionLike},
	}
	for _, sw := range swipes {
		require.NoError(t, store.AppendSwipe(ctx, sw))
	}

	// a later like does not erase the block from the ledger
	blocked, err := store.BlockedPartners(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, blocked)

	blocked, err = store.BlockedPartners(ctx, "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, blocked)

	for key, want := range map[PairKey]bool{
		NewPairKey("b", "a"): true,
		NewPairKey("a", "c"): true,
		NewPairKey("a", "d"): false,
	} {
		got, err := store.PairEverBlocked(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key.String())
	}
}

func TestMemoryStore_ListMatches(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.InsertMatch(ctx, &Match{ID: "1", LoUserID: "a", HiUserID: "b", Status: StatusBlocked, Version: 1}))
	require.NoError(t, store.InsertMatch(ctx, &Match{ID: "2", LoUserID: "a", HiUserID: "c", Status: StatusMatched, Version: 1}))

	matched, err := store.ListMatches(ctx, "a", StatusMatched)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "c", matched[0].Partner("a"))
}
