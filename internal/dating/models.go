package dating

import (
	"time"
)

// Decision is what one user decided about another.
type Decision string

const (
	DecisionNone  Decision = ""
	DecisionLike  Decision = "like"
	DecisionPass  Decision = "pass"
	DecisionBlock Decision = "block"
)

func (d Decision) Valid() bool {
	return d == DecisionLike || d == DecisionPass || d == DecisionBlock
}

// Status is the derived state of a pair.
type Status string

const (
	StatusNew     Status = "new"
	StatusLiked   Status = "liked"
	StatusPass    Status = "pass"
	StatusMatched Status = "matched"
	StatusBlocked Status = "blocked"
)

type Goal string

const (
	GoalSerious    Goal = "serious"
	GoalMarriage   Goal = "marriage"
	GoalFriendship Goal = "friendship"
)

func (g Goal) Valid() bool {
	return g == GoalSerious || g == GoalMarriage || g == GoalFriendship
}

// Profile is the read-only view of a user that the engine filters and scores.
type Profile struct {
	UserID           string    `json:"user_id" db:"user_id"`
	DisplayName      string    `json:"display_name" db:"display_name"`
	BirthDate        time.Time `json:"birth_date" db:"birth_date"`
	Gender           string    `json:"gender" db:"gender"`
	Country          string    `json:"country" db:"country"`
	City             string    `json:"city" db:"city"`
	Languages        []string  `json:"languages" db:"languages"`
	JudaismDirection string    `json:"judaism_direction" db:"judaism_direction"`
	KashrutLevel     string    `json:"kashrut_level" db:"kashrut_level"`
	ShabbatLevel     string    `json:"shabbat_level" db:"shabbat_level"`
	Goal             Goal      `json:"goal" db:"goal"`
	HasPhoto         bool      `json:"has_photo" db:"has_photo"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Age returns the completed years between BirthDate and now.
func (p *Profile) Age(now time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	years := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

// Preferences narrow the population a user is shown.
type Preferences struct {
	UserID        string   `json:"user_id" db:"user_id"`
	AgeMin        int      `json:"age_min" db:"age_min"`
	AgeMax        int      `json:"age_max" db:"age_max"`
	DistanceKm    float64  `json:"distance_km" db:"distance_km"`
	Denominations []string `json:"denominations" db:"denominations"`
	Goals         []Goal   `json:"goals" db:"goals"`
}

// DefaultPreferences are used for users who never saved any.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{UserID: userID, AgeMin: 18, AgeMax: 120}
}

// Swipe is one immutable ledger event.
type Swipe struct {
	ID        string    `json:"id" db:"id"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Decision  Decision  `json:"decision" db:"decision"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Match is the single relationship document of an unordered pair.
type Match struct {
	ID         string    `json:"id" db:"id"`
	LoUserID   string    `json:"lo_user_id" db:"lo_user_id"`
	HiUserID   string    `json:"hi_user_id" db:"hi_user_id"`
	LoDecision Decision  `json:"lo_decision,omitempty" db:"lo_decision"`
	HiDecision Decision  `json:"hi_decision,omitempty" db:"hi_decision"`
	Score      float64   `json:"score" db:"score"`
	Status     Status    `json:"status" db:"status"`
	Version    int64     `json:"version" db:"version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Match) Key() PairKey {
	return PairKey{Lo: m.LoUserID, Hi: m.HiUserID}
}

// Partner returns the other member of the pair.
func (m *Match) Partner(userID string) string {
	if m.LoUserID == userID {
		return m.HiUserID
	}
	return m.LoUserID
}

func (m *Match) Involves(userID string) bool {
	return m.LoUserID == userID || m.HiUserID == userID
}

type CompatibilityFactors struct {
	SharedLanguages  int  `json:"shared_languages"`
	SameDenomination bool `json:"same_denomination"`
	SameGoal         bool `json:"same_goal"`
	SameKashrut      bool `json:"same_kashrut"`
	SameShabbat      bool `json:"same_shabbat"`
	SameCity         bool `json:"same_city"`
}

type ScoredCandidate struct {
	Profile *Profile              `json:"profile"`
	Score   float64               `json:"score"`
	Factors *CompatibilityFactors `json:"factors,omitempty"`
	Reason  string                `json:"reason"`
}

// FeedPage is one page of ranked candidates. NextCursor is nil on the last page.
type FeedPage struct {
	Items      []*ScoredCandidate `json:"items"`
	NextCursor *string            `json:"next_cursor"`
}

type Recommendations struct {
	Items  []*ScoredCandidate `json:"items"`
	Reason string             `json:"reason,omitempty"`
}

// SwipeResult reports the ledger event and the post-transition pair state.
type SwipeResult struct {
	Swipe   *Swipe `json:"swipe"`
	Status  Status `json:"status"`
	Matched bool   `json:"matched"`
	// Changed is true when the Match document was written by this swipe.
	Changed bool   `json:"-"`
	Warning string `json:"warning,omitempty"`
}
