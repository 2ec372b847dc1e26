package dating

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
)

// MatchNotifier is told when a pair becomes matched.
type MatchNotifier interface {
	NotifyMatch(m *Match)
}

type noopNotifier struct{}

func (noopNotifier) NotifyMatch(*Match) {}

// MatchMachine owns every write to Match documents. It never locks: each
// attempt reads the document, re-derives the state from the ledger and
// writes conditionally on the version it read.
type MatchMachine struct {
	store      Store
	scorer     *Scorer
	notifier   MatchNotifier
	maxRetries int
	now        func() time.Time
}

func NewMatchMachine(store Store, scorer *Scorer, notifier MatchNotifier, maxRetries int) *MatchMachine {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &MatchMachine{
		store:      store,
		scorer:     scorer,
		notifier:   notifier,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Apply brings the pair's Match document in line with the ledger. It returns
// the resulting document and whether this call wrote it.
func (mm *MatchMachine) Apply(ctx context.Context, key PairKey) (*Match, bool, error) {
	for attempt := 0; attempt < mm.maxRetries; attempt++ {
		m, changed, err := mm.attempt(ctx, key)
		if IsKind(err, KindConflict) {
			recordConflictRetry()
			continue
		}
		return m, changed, err
	}

	logging.Ctx(ctx).Warn().Str("pair", key.String()).Int("attempts", mm.maxRetries).
		Msg("match update kept conflicting")
	return nil, false, unavailable("RecordSwipe", fmt.Errorf("pair %s still contended after %d attempts", key, mm.maxRetries))
}

func (mm *MatchMachine) attempt(ctx context.Context, key PairKey) (*Match, bool, error) {
	// The document is read before the ledger so that a concurrent writer
	// holding newer decisions always bumps the version we condition on.
	existing, err := mm.store.GetMatch(ctx, key)
	if err != nil && !IsKind(err, KindNotFound) {
		return nil, false, err
	}
	if existing != nil && existing.Status == StatusBlocked {
		return existing, false, nil
	}

	lo, hi, err := mm.store.PairDecisions(ctx, key)
	if err != nil {
		return nil, false, err
	}
	status := DeriveStatus(lo, hi)
	if status != StatusBlocked {
		// a later like or pass never lifts an earlier block
		blocked, err := mm.store.PairEverBlocked(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if blocked {
			status = StatusBlocked
		}
	}
	now := mm.now()

	if existing == nil {
		m := &Match{
			ID:         uuid.NewString(),
			LoUserID:   key.Lo,
			HiUserID:   key.Hi,
			LoDecision: lo,
			HiDecision: hi,
			Status:     status,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if m.Score, err = mm.score(ctx, key); err != nil {
			return nil, false, err
		}
		if err := mm.store.InsertMatch(ctx, m); err != nil {
			return nil, false, err
		}
		mm.transitioned(ctx, StatusNew, m)
		return m, true, nil
	}

	if existing.LoDecision == lo && existing.HiDecision == hi && existing.Status == status {
		return existing, false, nil
	}

	updated := *existing
	updated.LoDecision = lo
	updated.HiDecision = hi
	updated.Status = status
	updated.Version = existing.Version + 1
	updated.UpdatedAt = now
	if status != existing.Status && (status == StatusLiked || status == StatusMatched) {
		if updated.Score, err = mm.score(ctx, key); err != nil {
			return nil, false, err
		}
	}

	if err := mm.store.UpdateMatch(ctx, &updated, existing.Version); err != nil {
		return nil, false, err
	}
	mm.transitioned(ctx, existing.Status, &updated)
	return &updated, true, nil
}

// score loads both profiles. A missing profile contributes nothing.
func (mm *MatchMachine) score(ctx context.Context, key PairKey) (float64, error) {
	lo, err := mm.optionalProfile(ctx, key.Lo)
	if err != nil {
		return 0, err
	}
	hi, err := mm.optionalProfile(ctx, key.Hi)
	if err != nil {
		return 0, err
	}
	score, _ := mm.scorer.Score(lo, hi)
	recordCompatibilityScore(score)
	return score, nil
}

func (mm *MatchMachine) optionalProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := mm.store.GetProfile(ctx, userID)
	if IsKind(err, KindNotFound) {
		return nil, nil
	}
	return p, err
}

func (mm *MatchMachine) transitioned(ctx context.Context, from Status, m *Match) {
	if from == m.Status {
		return
	}
	recordTransition(m.Status)
	if m.Status == StatusMatched {
		recordMatch()
		logging.Ctx(ctx).Debug().Str("lo", m.LoUserID).Str("hi", m.HiUserID).Msg("pair matched")
		mm.notifier.NotifyMatch(m)
	}
}
