package dating

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
)

// SwipeHook runs after a swipe has been appended to the ledger.
type SwipeHook func(ctx context.Context, s *Swipe)

// Ledger records swipes and drives the match state machine for the pair.
type Ledger struct {
	store   Store
	machine *MatchMachine
	hooks   []SwipeHook
	now     func() time.Time
}

func NewLedger(store Store, machine *MatchMachine, hooks ...SwipeHook) *Ledger {
	return &Ledger{
		store:   store,
		machine: machine,
		hooks:   hooks,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordSwipe validates, appends and then re-evaluates the pair. A missing
// target profile does not fail the call: the swipe stays in the ledger and the
// result carries a warning instead of a Match document. A block on a missing
// profile still reports blocked.
func (l *Ledger) RecordSwipe(ctx context.Context, actorID, targetID string, decision Decision) (*SwipeResult, error) {
	const op = "RecordSwipe"

	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	switch {
	case actorID == "":
		return nil, invalidInput(op, "actor_id", "actor id is required")
	case targetID == "":
		return nil, invalidInput(op, "target_id", "target id is required")
	case actorID == targetID:
		return nil, invalidInput(op, "target_id", "cannot swipe on yourself")
	case !decision.Valid():
		return nil, invalidInput(op, "decision", "unknown decision %q", decision)
	}

	targetMissing := false
	if _, err := l.store.GetProfile(ctx, targetID); err != nil {
		if !IsKind(err, KindNotFound) {
			return nil, err
		}
		targetMissing = true
	}

	swipe := &Swipe{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		TargetID:  targetID,
		Decision:  decision,
		CreatedAt: l.now(),
	}
	if err := l.store.AppendSwipe(ctx, swipe); err != nil {
		return nil, wrap(op, err)
	}
	recordSwipe(decision)

	for _, hook := range l.hooks {
		hook(ctx, swipe)
	}

	if targetMissing {
		logging.Ctx(ctx).Warn().Str("actor_id", actorID).Str("target_id", targetID).
			Msg("swipe recorded for missing profile")
		status := StatusNew
		if decision == DecisionBlock {
			// enforced from the ledger when the pair is next evaluated
			status = StatusBlocked
		}
		return &SwipeResult{
			Swipe:   swipe,
			Status:  status,
			Warning: "target profile not found; swipe recorded without a match",
		}, nil
	}

	m, changed, err := l.machine.Apply(ctx, NewPairKey(actorID, targetID))
	if err != nil {
		return nil, wrap(op, err)
	}

	return &SwipeResult{
		Swipe:   swipe,
		Status:  m.Status,
		Matched: m.Status == StatusMatched,
		Changed: changed,
	}, nil
}

// History returns every swipe actorID made on targetID, oldest first.
func (l *Ledger) History(ctx context.Context, actorID, targetID string) ([]*Swipe, error) {
	if actorID == "" || targetID == "" {
		return nil, invalidInput("SwipeHistory", "target_id", "both user ids are required")
	}
	swipes, err := l.store.SwipeHistory(ctx, actorID, targetID)
	return swipes, wrap("SwipeHistory", err)
}
