package dating

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local development and tests. It
// mirrors the Postgres semantics: unique pairs, versioned conditional
// updates and an append-only ledger. Values are copied on the way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]*Profile
	preferences map[string]*Preferences
	swipes      []*Swipe
	latest      map[string]map[string]Decision // actor -> target -> decision
	matches     map[PairKey]*Match
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]*Profile),
		preferences: make(map[string]*Preferences),
		latest:      make(map[string]map[string]Decision),
		matches:     make(map[PairKey]*Match),
	}
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, notFound("GetProfile", "profile %s not found", userID)
	}
	return copyProfile(p), nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyProfile(p)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	s.profiles[p.UserID] = cp
	return nil
}

func (s *MemoryStore) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[userID]
	if !ok {
		return nil, notFound("GetPreferences", "preferences for %s not found", userID)
	}
	return copyPreferences(p), nil
}

func (s *MemoryStore) UpsertPreferences(ctx context.Context, p *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences[p.UserID] = copyPreferences(p)
	return nil
}

func (s *MemoryStore) FindCandidates(ctx context.Context, forUser string, q *CandidateQuery) ([]*Profile, *ProfileCursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, unavailable("FindCandidates", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]bool, len(q.ExcludeIDs)+1)
	excluded[forUser] = true
	for _, id := range q.ExcludeIDs {
		excluded[id] = true
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	latest, earliest := ageBounds(now, q.AgeMin, q.AgeMax)

	var matched []*Profile
	for id, p := range s.profiles {
		if excluded[id] || !matchesQuery(p, q, latest, earliest) {
			continue
		}
		if q.After != nil && !profileAfter(p, q.After) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].UserID > matched[j].UserID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var next *ProfileCursor
	if len(matched) > limit {
		matched = matched[:limit]
		last := matched[len(matched)-1]
		next = &ProfileCursor{UpdatedAt: last.UpdatedAt, UserID: last.UserID}
	}

	out := make([]*Profile, len(matched))
	for i, p := range matched {
		out[i] = copyProfile(p)
	}
	return out, next, nil
}

func matchesQuery(p *Profile, q *CandidateQuery, latest, earliest time.Time) bool {
	if q.Country != "" && !strings.EqualFold(p.Country, q.Country) {
		return false
	}
	if q.City != "" && !strings.EqualFold(p.City, q.City) {
		return false
	}
	if q.Gender != "" && p.Gender != q.Gender {
		return false
	}
	if len(q.Goals) > 0 && !containsGoal(q.Goals, p.Goal) {
		return false
	}
	if len(q.Denominations) > 0 && !containsString(q.Denominations, p.JudaismDirection) {
		return false
	}
	if q.HasPhoto != nil && p.HasPhoto != *q.HasPhoto {
		return false
	}
	if !latest.IsZero() && p.BirthDate.After(latest) {
		return false
	}
	if !earliest.IsZero() && !p.BirthDate.After(earliest) {
		return false
	}
	return true
}

// profileAfter reports whether p sorts strictly after the cursor in
// (updatedAt desc, userId desc) order.
func profileAfter(p *Profile, c *ProfileCursor) bool {
	if !p.UpdatedAt.Equal(c.UpdatedAt) {
		return p.UpdatedAt.Before(c.UpdatedAt)
	}
	return p.UserID < c.UserID
}

func (s *MemoryStore) AppendSwipe(ctx context.Context, sw *Swipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sw
	s.swipes = append(s.swipes, &cp)
	targets, ok := s.latest[sw.ActorID]
	if !ok {
		targets = make(map[string]Decision)
		s.latest[sw.ActorID] = targets
	}
	targets[sw.TargetID] = sw.Decision
	return nil
}

func (s *MemoryStore) LatestDecisions(ctx context.Context, actorID string) (map[string]Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Decision, len(s.latest[actorID]))
	for target, d := range s.latest[actorID] {
		out[target] = d
	}
	return out, nil
}

func (s *MemoryStore) PairDecisions(ctx context.Context, key PairKey) (Decision, Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latest[key.Lo][key.Hi], s.latest[key.Hi][key.Lo], nil
}

func (s *MemoryStore) SwipeHistory(ctx context.Context, actorID, targetID string) ([]*Swipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Swipe
	for _, sw := range s.swipes {
		if sw.ActorID == actorID && sw.TargetID == targetID {
			cp := *sw
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) PairEverBlocked(ctx context.Context, key PairKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sw := range s.swipes {
		if sw.Decision == DecisionBlock && NewPairKey(sw.ActorID, sw.TargetID) == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) BlockedPartners(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, sw := range s.swipes {
		if sw.Decision != DecisionBlock {
			continue
		}
		var partner string
		switch userID {
		case sw.ActorID:
			partner = sw.TargetID
		case sw.TargetID:
			partner = sw.ActorID
		default:
			continue
		}
		if !seen[partner] {
			seen[partner] = true
			ids = append(ids, partner)
		}
	}
	return ids, nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, key PairKey) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[key]
	if !ok {
		return nil, notFound("GetMatch", "no match document for %s", key)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) InsertMatch(ctx context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.Key()
	if _, exists := s.matches[key]; exists {
		return errConflict
	}
	cp := *m
	s.matches[key] = &cp
	return nil
}

func (s *MemoryStore) UpdateMatch(ctx context.Context, m *Match, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.Key()
	current, ok := s.matches[key]
	if !ok || current.Version != expectedVersion {
		return errConflict
	}
	cp := *m
	cp.ID = current.ID
	cp.CreatedAt = current.CreatedAt
	s.matches[key] = &cp
	return nil
}

func (s *MemoryStore) ListMatches(ctx context.Context, userID string, status Status) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Match
	for _, m := range s.matches {
		if m.Status == status && m.Involves(userID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyProfile(p *Profile) *Profile {
	cp := *p
	cp.Languages = append([]string(nil), p.Languages...)
	return &cp
}

func copyPreferences(p *Preferences) *Preferences {
	cp := *p
	cp.Denominations = append([]string(nil), p.Denominations...)
	cp.Goals = append([]Goal(nil), p.Goals...)
	return &cp
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsGoal(goals []Goal, g Goal) bool {
	for _, x := range goals {
		if x == g {
			return true
		}
	}
	return false
}
