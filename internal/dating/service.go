// internal/dating/service.go

package dating

import (
	"context"
	"strings"
	"time"
)

// Service is the match engine as seen by transports.
type Service interface {
	// Recommendation engine
	GetFeed(ctx context.Context, userID string, filters *FeedFilters, pageSize *int, cursor string) (*FeedPage, error)
	GetRecommendations(ctx context.Context, userID string, count int) (*Recommendations, error)

	// Swipe ledger
	RecordSwipe(ctx context.Context, actorID, targetID string, decision Decision) (*SwipeResult, error)
	SwipeHistory(ctx context.Context, actorID, targetID string) ([]*Swipe, error)

	// Matches
	GetMatch(ctx context.Context, userID, otherID string) (*Match, error)
	IsMatched(ctx context.Context, userID, otherID string) (bool, error)
	ListMatches(ctx context.Context, userID string) ([]*Match, error)

	Stats(ctx context.Context) (*EngineStats, error)
}

// Options wires the optional collaborators of the service.
type Options struct {
	Weights    Weights
	Feed       FeedOptions
	MaxRetries int
	Cache      FeedCache
	Notifier   MatchNotifier
}

type service struct {
	store  Store
	ledger *Ledger
	engine *RecommendationEngine
}

func NewService(store Store, opts Options) Service {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	scorer := NewScorer(opts.Weights)
	engine := NewRecommendationEngine(store, scorer, opts.Cache, opts.Feed)
	machine := NewMatchMachine(store, scorer, opts.Notifier, opts.MaxRetries)

	return &service{
		store:  store,
		ledger: NewLedger(store, machine, engine.InvalidateOnSwipe),
		engine: engine,
	}
}

func (s *service) GetFeed(ctx context.Context, userID string, filters *FeedFilters, pageSize *int, cursor string) (*FeedPage, error) {
	return s.engine.GetFeed(ctx, userID, filters, pageSize, cursor)
}

func (s *service) GetRecommendations(ctx context.Context, userID string, count int) (*Recommendations, error) {
	return s.engine.GetRecommendations(ctx, userID, count)
}

func (s *service) RecordSwipe(ctx context.Context, actorID, targetID string, decision Decision) (*SwipeResult, error) {
	return s.ledger.RecordSwipe(ctx, actorID, targetID, decision)
}

func (s *service) SwipeHistory(ctx context.Context, actorID, targetID string) ([]*Swipe, error) {
	return s.ledger.History(ctx, actorID, targetID)
}

// GetMatch returns the pair document. A pair that never swiped is reported
// as a fresh document in status new rather than NotFound.
func (s *service) GetMatch(ctx context.Context, userID, otherID string) (*Match, error) {
	key, err := pairKeyFor("GetMatch", userID, otherID)
	if err != nil {
		return nil, err
	}

	m, err := s.store.GetMatch(ctx, key)
	if IsKind(err, KindNotFound) {
		status := StatusNew
		blocked, err := s.store.PairEverBlocked(ctx, key)
		if err != nil {
			return nil, wrap("GetMatch", err)
		}
		if blocked {
			status = StatusBlocked
		}
		return &Match{LoUserID: key.Lo, HiUserID: key.Hi, Status: status}, nil
	}
	if err != nil {
		return nil, wrap("GetMatch", err)
	}
	return m, nil
}

func (s *service) IsMatched(ctx context.Context, userID, otherID string) (bool, error) {
	m, err := s.GetMatch(ctx, userID, otherID)
	if err != nil {
		return false, err
	}
	return m.Status == StatusMatched, nil
}

func (s *service) ListMatches(ctx context.Context, userID string) ([]*Match, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalidInput("ListMatches", "user_id", "user id is required")
	}
	matches, err := s.store.ListMatches(ctx, userID, StatusMatched)
	if err != nil {
		return nil, wrap("ListMatches", err)
	}
	return matches, nil
}

// Stats reports population totals; "last day" is the 24h before the call.
func (s *service) Stats(ctx context.Context) (*EngineStats, error) {
	now := time.Now().UTC()
	stats, err := s.store.Stats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, wrap("Stats", err)
	}
	stats.LastUpdated = now
	return stats, nil
}

func pairKeyFor(op, a, b string) (PairKey, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return PairKey{}, invalidInput(op, "user_id", "both user ids are required")
	}
	if a == b {
		return PairKey{}, invalidInput(op, "user_id", "a user cannot pair with themselves")
	}
	return NewPairKey(a, b), nil
}
