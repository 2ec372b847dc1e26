// internal/dating/recommendations.go

package dating

import (
	"context"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
)

// FeedOptions bound feed pages and the ranked population.
type FeedOptions struct {
	DefaultPageSize int
	MaxPageSize     int
	// MaxCandidates caps how deep a feed goes: the whole filtered population
	// is scored and the best MaxCandidates make up the ranking.
	MaxCandidates int
}

func DefaultFeedOptions() FeedOptions {
	return FeedOptions{DefaultPageSize: 20, MaxPageSize: 100, MaxCandidates: 2000}
}

const candidateBatchSize = 500

type RecommendationEngine struct {
	store  Store
	scorer *Scorer
	cache  FeedCache
	opts   FeedOptions
	now    func() time.Time
}

func NewRecommendationEngine(store Store, scorer *Scorer, cache FeedCache, opts FeedOptions) *RecommendationEngine {
	def := DefaultFeedOptions()
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = def.DefaultPageSize
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = max(def.MaxPageSize, opts.DefaultPageSize)
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = def.MaxCandidates
	}
	if cache == nil {
		cache = NewNoopFeedCache()
	}
	return &RecommendationEngine{
		store:  store,
		scorer: scorer,
		cache:  cache,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// feedContext is everything about the caller a feed depends on.
type feedContext struct {
	profile  *Profile
	prefs    *Preferences
	excluded map[string]bool
}

// GetFeed returns one page of candidates ranked by score, then recency, then
// id. Pages are all-or-nothing: any store failure fails the whole call.
func (e *RecommendationEngine) GetFeed(ctx context.Context, userID string, filters *FeedFilters, pageSize *int, cursor string) (*FeedPage, error) {
	const op = "GetFeed"
	start := time.Now()
	defer func() { recordFeedLatency(time.Since(start)) }()

	if strings.TrimSpace(userID) == "" {
		return nil, invalidInput(op, "user_id", "caller id is required")
	}
	if filters == nil {
		filters = &FeedFilters{}
	}
	if err := utils.ValidateStruct(filters); err != nil {
		return nil, validationError(op, err)
	}
	size, err := e.resolvePageSize(op, "page_size", pageSize)
	if err != nil {
		return nil, err
	}

	var after *feedCursor
	if cursor != "" {
		if after, err = decodeCursor(cursor); err != nil {
			return nil, err
		}
	}

	fc, err := e.loadFeedContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	query, ok := buildCandidateQuery(filters, fc.prefs)
	if !ok {
		return &FeedPage{Items: []*ScoredCandidate{}}, nil
	}

	hash := filterHash(query)
	ranked, hit := e.cache.Get(ctx, userID, hash)
	if !hit {
		if ranked, err = e.rank(ctx, userID, fc, query); err != nil {
			return nil, err
		}
		e.cache.Set(ctx, userID, hash, ranked)
	}

	return paginate(ranked, fc.excluded, after, size), nil
}

// GetRecommendations is GetFeed with only the caller's saved preferences.
func (e *RecommendationEngine) GetRecommendations(ctx context.Context, userID string, count int) (*Recommendations, error) {
	if count <= 0 {
		return nil, invalidInput("GetRecommendations", "count", "count must be positive")
	}

	page, err := e.GetFeed(ctx, userID, nil, &count, "")
	if err != nil {
		return nil, err
	}

	recs := &Recommendations{Items: page.Items}
	if len(recs.Items) == 0 {
		recs.Reason = "No one new matches your preferences right now"
	}
	return recs, nil
}

// Invalidate drops every cached ranking of userID.
func (e *RecommendationEngine) Invalidate(ctx context.Context, userID string) {
	e.cache.Invalidate(ctx, userID)
}

// InvalidateOnSwipe is a SwipeHook: a swipe changes the exclusion set of the
// actor and, for blocks, of the target.
func (e *RecommendationEngine) InvalidateOnSwipe(ctx context.Context, s *Swipe) {
	e.Invalidate(ctx, s.ActorID)
	e.Invalidate(ctx, s.TargetID)
}

func (e *RecommendationEngine) resolvePageSize(op, field string, pageSize *int) (int, error) {
	if pageSize == nil {
		return e.opts.DefaultPageSize, nil
	}
	if *pageSize <= 0 {
		return 0, invalidInput(op, field, "%s must be positive", field)
	}
	if *pageSize > e.opts.MaxPageSize {
		return e.opts.MaxPageSize, nil
	}
	return *pageSize, nil
}

func (e *RecommendationEngine) loadFeedContext(ctx context.Context, userID string) (*feedContext, error) {
	fc := &feedContext{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := e.store.GetProfile(gctx, userID)
		if err != nil {
			if IsKind(err, KindNotFound) {
				return notFound("GetFeed", "caller profile %s not found", userID)
			}
			return err
		}
		fc.profile = p
		return nil
	})

	g.Go(func() error {
		prefs, err := e.store.GetPreferences(gctx, userID)
		if IsKind(err, KindNotFound) {
			prefs, err = DefaultPreferences(userID), nil
		}
		fc.prefs = prefs
		return err
	})

	g.Go(func() error {
		excluded, err := e.exclusionSet(gctx, userID)
		fc.excluded = excluded
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, wrap("GetFeed", err)
	}
	return fc, nil
}

// exclusionSet is the caller, every target the caller decided on and anyone
// on either side of a block with the caller, read from the ledger.
func (e *RecommendationEngine) exclusionSet(ctx context.Context, userID string) (map[string]bool, error) {
	decided, err := e.store.LatestDecisions(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := e.store.BlockedPartners(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(decided)+len(blocked)+1)
	excluded[userID] = true
	for target := range decided {
		excluded[target] = true
	}
	for _, id := range blocked {
		excluded[id] = true
	}
	return excluded, nil
}

// buildCandidateQuery intersects explicit filters with saved preferences.
// It reports false when the intersection is empty.
func buildCandidateQuery(f *FeedFilters, prefs *Preferences) (*CandidateQuery, bool) {
	q := &CandidateQuery{
		Country:       strings.TrimSpace(f.Country),
		City:          strings.TrimSpace(f.City),
		Gender:        f.Gender,
		HasPhoto:      f.HasPhoto,
		AgeMin:        prefs.AgeMin,
		AgeMax:        prefs.AgeMax,
		Denominations: prefs.Denominations,
	}

	switch {
	case f.Goal != "" && len(prefs.Goals) > 0:
		if !containsGoal(prefs.Goals, f.Goal) {
			return nil, false
		}
		q.Goals = []Goal{f.Goal}
	case f.Goal != "":
		q.Goals = []Goal{f.Goal}
	default:
		q.Goals = prefs.Goals
	}

	if q.AgeMin > 0 && q.AgeMax > 0 && q.AgeMin > q.AgeMax {
		return nil, false
	}
	return q, true
}

func (e *RecommendationEngine) rank(ctx context.Context, userID string, fc *feedContext, q *CandidateQuery) ([]*ScoredCandidate, error) {
	q.Now = e.now()
	q.ExcludeIDs = make([]string, 0, len(fc.excluded))
	for id := range fc.excluded {
		q.ExcludeIDs = append(q.ExcludeIDs, id)
	}
	sort.Strings(q.ExcludeIDs)

	// Every filtered profile is scored; only the best MaxCandidates are kept.
	var ranked []*ScoredCandidate
	scanned, dropped := 0, 0
	q.Limit = candidateBatchSize
	for {
		batch, next, err := e.store.FindCandidates(ctx, userID, q)
		if err != nil {
			return nil, wrap("GetFeed", err)
		}
		scanned += len(batch)
		for _, c := range batch {
			score, factors := e.scorer.Score(fc.profile, c)
			ranked = append(ranked, &ScoredCandidate{
				Profile: c,
				Score:   score,
				Factors: factors,
				Reason:  e.scorer.Reason(factors, c),
			})
		}
		if len(ranked) > e.opts.MaxCandidates {
			sortRanked(ranked)
			dropped += len(ranked) - e.opts.MaxCandidates
			ranked = ranked[:e.opts.MaxCandidates]
		}
		if next == nil {
			break
		}
		q.After = next
	}

	sortRanked(ranked)
	if dropped > 0 {
		logging.Ctx(ctx).Debug().Str("user_id", userID).Int("scanned", scanned).Int("dropped", dropped).
			Int("max_candidates", e.opts.MaxCandidates).Msg("feed ranking truncated")
	}
	return ranked, nil
}

func sortRanked(ranked []*ScoredCandidate) {
	sort.Slice(ranked, func(i, j int) bool {
		return rankedBefore(cursorOf(ranked[i]), cursorOf(ranked[j]))
	})
}

// paginate resumes strictly after the cursor and skips anyone excluded since
// the ranking was built.
func paginate(ranked []*ScoredCandidate, excluded map[string]bool, after *feedCursor, size int) *FeedPage {
	items := make([]*ScoredCandidate, 0, size)
	hasMore := false

	for _, item := range ranked {
		if after != nil && !rankedBefore(*after, cursorOf(item)) {
			continue
		}
		if excluded[item.Profile.UserID] {
			continue
		}
		if len(items) == size {
			hasMore = true
			break
		}
		items = append(items, item)
	}

	page := &FeedPage{Items: items}
	if hasMore {
		next := encodeCursor(cursorOf(items[len(items)-1]))
		page.NextCursor = &next
	}
	return page
}

// filterHash identifies the candidate population a query selects.
func filterHash(q *CandidateQuery) string {
	goals := make([]string, len(q.Goals))
	for i, g := range q.Goals {
		goals[i] = string(g)
	}
	sort.Strings(goals)
	denoms := append([]string(nil), q.Denominations...)
	sort.Strings(denoms)

	photo := "any"
	if q.HasPhoto != nil {
		photo = strconv.FormatBool(*q.HasPhoto)
	}

	h := fnv.New64a()
	for _, part := range []string{
		strings.ToLower(q.Country),
		strings.ToLower(q.City),
		q.Gender,
		strings.Join(goals, ","),
		strings.Join(denoms, ","),
		photo,
		strconv.Itoa(q.AgeMin),
		strconv.Itoa(q.AgeMax),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func validationError(op string, err error) error {
	var field string
	if ve, ok := err.(*utils.ValidationError); ok {
		field = ve.Field
	}
	return &Error{Kind: KindInvalidInput, Op: op, Field: field, Err: err}
}
