package dating

import (
	"context"
	"time"
)

// CandidateQuery is a conjunction of optional predicates over profiles.
// Zero values mean "no constraint".
type CandidateQuery struct {
	Country       string
	City          string
	Gender        string
	Goals         []Goal
	Denominations []string
	HasPhoto      *bool
	AgeMin        int
	AgeMax        int
	Now           time.Time // reference point for age bounds
	ExcludeIDs    []string
	Limit         int
	After         *ProfileCursor
}

// ProfileCursor is the store-level resume key: results are ordered by
// (updatedAt, userId) descending and resume strictly after it.
type ProfileCursor struct {
	UpdatedAt time.Time
	UserID    string
}

// ProfileStore is read-only to the engine. Upserts exist for seeding and for
// the profile-editing flow that owns these documents.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	// FindCandidates never returns forUser or any excluded id. The returned
	// cursor is nil once the population is exhausted.
	FindCandidates(ctx context.Context, forUser string, q *CandidateQuery) ([]*Profile, *ProfileCursor, error)
	UpsertProfile(ctx context.Context, p *Profile) error
	UpsertPreferences(ctx context.Context, p *Preferences) error
}

// SwipeStore is the append-only ledger.
type SwipeStore interface {
	AppendSwipe(ctx context.Context, s *Swipe) error
	// LatestDecisions maps every target the actor decided on to the latest decision.
	LatestDecisions(ctx context.Context, actorID string) (map[string]Decision, error)
	// PairDecisions returns the latest decision of each side of the pair.
	PairDecisions(ctx context.Context, key PairKey) (lo, hi Decision, err error)
	SwipeHistory(ctx context.Context, actorID, targetID string) ([]*Swipe, error)
	// PairEverBlocked reports whether either side of the pair has ever
	// blocked the other. A block is terminal whatever follows it.
	PairEverBlocked(ctx context.Context, key PairKey) (bool, error)
	// BlockedPartners lists everyone userID blocked or was blocked by.
	BlockedPartners(ctx context.Context, userID string) ([]string, error)
}

// MatchStore persists Match documents. Inserts that hit the unique pair and
// updates whose expected version is stale fail with KindConflict.
type MatchStore interface {
	GetMatch(ctx context.Context, key PairKey) (*Match, error)
	InsertMatch(ctx context.Context, m *Match) error
	UpdateMatch(ctx context.Context, m *Match, expectedVersion int64) error
	ListMatches(ctx context.Context, userID string, status Status) ([]*Match, error)
}

type Store interface {
	ProfileStore
	SwipeStore
	MatchStore
	StatsStore
}

// ageBounds converts an inclusive age range into birth date bounds:
// born on or before latest, and strictly after earliest.
func ageBounds(now time.Time, ageMin, ageMax int) (latest, earliest time.Time) {
	if ageMin > 0 {
		latest = now.AddDate(-ageMin, 0, 0)
	}
	if ageMax > 0 {
		earliest = now.AddDate(-(ageMax + 1), 0, 0)
	}
	return latest, earliest
}
