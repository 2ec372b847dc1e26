package dating

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
)

// BreakerConfig tunes the circuit breaker in front of Postgres.
type BreakerConfig struct {
	Failures uint32
	Timeout  time.Duration
}

type postgresRepository struct {
	db *sqlx.DB
	cb *gobreaker.CircuitBreaker[any]
}

// NewPostgresRepository returns a Store backed by Postgres.
func NewPostgresRepository(db *sqlx.DB, cfg BreakerConfig) Store {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "dating-postgres",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("store circuit breaker changed state")
		},
		// domain outcomes are not store failures
		IsSuccessful: func(err error) bool {
			return err == nil || IsKind(err, KindNotFound) || IsKind(err, KindConflict)
		},
	})
	return &postgresRepository{db: db, cb: cb}
}

// exec runs fn behind the breaker and classifies what comes out.
func (r *postgresRepository) exec(ctx context.Context, op string, fn func() error) error {
	_, err := r.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return unavailable(op, err)
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return unavailable(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return unavailable(op, err)
	}
	return wrap(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Profiles

type profileRow struct {
	UserID           string         `db:"user_id"`
	DisplayName      string         `db:"display_name"`
	BirthDate        time.Time      `db:"birth_date"`
	Gender           string         `db:"gender"`
	Country          string         `db:"country"`
	City             string         `db:"city"`
	Languages        pq.StringArray `db:"languages"`
	JudaismDirection string         `db:"judaism_direction"`
	KashrutLevel     string         `db:"kashrut_level"`
	ShabbatLevel     string         `db:"shabbat_level"`
	Goal             string         `db:"goal"`
	HasPhoto         bool           `db:"has_photo"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row *profileRow) toProfile() *Profile {
	return &Profile{
		UserID:           row.UserID,
		DisplayName:      row.DisplayName,
		BirthDate:        row.BirthDate,
		Gender:           row.Gender,
		Country:          row.Country,
		City:             row.City,
		Languages:        []string(row.Languages),
		JudaismDirection: row.JudaismDirection,
		KashrutLevel:     row.KashrutLevel,
		ShabbatLevel:     row.ShabbatLevel,
		Goal:             Goal(row.Goal),
		HasPhoto:         row.HasPhoto,
		UpdatedAt:        row.UpdatedAt,
	}
}

const profileColumns = `user_id, display_name, birth_date, gender, country, city, languages,
        judaism_direction, kashrut_level, shabbat_level, goal, has_photo, updated_at`

func (r *postgresRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var row profileRow
	err := r.exec(ctx, "GetProfile", func() error {
		err := r.db.GetContext(ctx, &row, `SELECT `+profileColumns+` FROM dating_profiles WHERE user_id = $1`, userID)
		if err == sql.ErrNoRows {
			return notFound("GetProfile", "profile %s not found", userID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return row.toProfile(), nil
}

func (r *postgresRepository) UpsertProfile(ctx context.Context, p *Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO dating_profiles (` + profileColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (user_id) DO UPDATE SET
            display_name = EXCLUDED.display_name,
            birth_date = EXCLUDED.birth_date,
            gender = EXCLUDED.gender,
            country = EXCLUDED.country,
            city = EXCLUDED.city,
            languages = EXCLUDED.languages,
            judaism_direction = EXCLUDED.judaism_direction,
            kashrut_level = EXCLUDED.kashrut_level,
            shabbat_level = EXCLUDED.shabbat_level,
            goal = EXCLUDED.goal,
            has_photo = EXCLUDED.has_photo,
            updated_at = EXCLUDED.updated_at
    `
	return r.exec(ctx, "UpsertProfile", func() error {
		_, err := r.db.ExecContext(ctx, query,
			p.UserID, p.DisplayName, p.BirthDate, p.Gender, p.Country, p.City,
			pq.Array(p.Languages), p.JudaismDirection, p.KashrutLevel, p.ShabbatLevel,
			string(p.Goal), p.HasPhoto, p.UpdatedAt,
		)
		return err
	})
}

func (r *postgresRepository) FindCandidates(ctx context.Context, forUser string, q *CandidateQuery) ([]*Profile, *ProfileCursor, error) {
	where := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "user_id <> "+arg(forUser))
	if len(q.ExcludeIDs) > 0 {
		where = append(where, "NOT (user_id = ANY("+arg(pq.Array(q.ExcludeIDs))+"))")
	}
	if q.Country != "" {
		where = append(where, "LOWER(country) = LOWER("+arg(q.Country)+")")
	}
	if q.City != "" {
		where = append(where, "LOWER(city) = LOWER("+arg(q.City)+")")
	}
	if q.Gender != "" {
		where = append(where, "gender = "+arg(q.Gender))
	}
	if len(q.Goals) > 0 {
		goals := make([]string, len(q.Goals))
		for i, g := range q.Goals {
			goals[i] = string(g)
		}
		where = append(where, "goal = ANY("+arg(pq.Array(goals))+")")
	}
	if len(q.Denominations) > 0 {
		where = append(where, "judaism_direction = ANY("+arg(pq.Array(q.Denominations))+")")
	}
	if q.HasPhoto != nil {
		where = append(where, "has_photo = "+arg(*q.HasPhoto))
	}

	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	latest, earliest := ageBounds(now, q.AgeMin, q.AgeMax)
	if !latest.IsZero() {
		where = append(where, "birth_date <= "+arg(latest))
	}
	if !earliest.IsZero() {
		where = append(where, "birth_date > "+arg(earliest))
	}
	if q.After != nil {
		where = append(where, "(updated_at, user_id) < ("+arg(q.After.UpdatedAt)+", "+arg(q.After.UserID)+")")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + profileColumns + ` FROM dating_profiles WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, user_id DESC LIMIT ` + arg(limit+1)

	var rows []profileRow
	err := r.exec(ctx, "FindCandidates", func() error {
		return r.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, nil, err
	}

	var next *ProfileCursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &ProfileCursor{UpdatedAt: last.UpdatedAt, UserID: last.UserID}
	}

	profiles := make([]*Profile, len(rows))
	for i := range rows {
		profiles[i] = rows[i].toProfile()
	}
	return profiles, next, nil
}

// Preferences

type preferencesRow struct {
	UserID        string         `db:"user_id"`
	AgeMin        int            `db:"age_min"`
	AgeMax        int            `db:"age_max"`
	DistanceKm    float64        `db:"distance_km"`
	Denominations pq.StringArray `db:"denominations"`
	Goals         pq.StringArray `db:"goals"`
}

func (r *postgresRepository) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var row preferencesRow
	err := r.exec(ctx, "GetPreferences", func() error {
		err := r.db.GetContext(ctx, &row, `
            SELECT user_id, age_min, age_max, distance_km, denominations, goals
            FROM dating_preferences WHERE user_id = $1
        `, userID)
		if err == sql.ErrNoRows {
			return notFound("GetPreferences", "preferences for %s not found", userID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	prefs := &Preferences{
		UserID:        row.UserID,
		AgeMin:        row.AgeMin,
		AgeMax:        row.AgeMax,
		DistanceKm:    row.DistanceKm,
		Denominations: []string(row.Denominations),
	}
	for _, g := range row.Goals {
		prefs.Goals = append(prefs.Goals, Goal(g))
	}
	return prefs, nil
}

func (r *postgresRepository) UpsertPreferences(ctx context.Context, p *Preferences) error {
	goals := make([]string, len(p.Goals))
	for i, g := range p.Goals {
		goals[i] = string(g)
	}
	query := `
        INSERT INTO dating_preferences (user_id, age_min, age_max, distance_km, denominations, goals)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id) DO UPDATE SET
            age_min = EXCLUDED.age_min,
            age_max = EXCLUDED.age_max,
            distance_km = EXCLUDED.distance_km,
            denominations = EXCLUDED.denominations,
            goals = EXCLUDED.goals
    `
	return r.exec(ctx, "UpsertPreferences", func() error {
		_, err := r.db.ExecContext(ctx, query,
			p.UserID, p.AgeMin, p.AgeMax, p.DistanceKm, pq.Array(p.Denominations), pq.Array(goals))
		return err
	})
}

// Swipe ledger

func (r *postgresRepository) AppendSwipe(ctx context.Context, s *Swipe) error {
	query := `
        INSERT INTO dating_swipes (id, actor_id, target_id, decision, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	return r.exec(ctx, "AppendSwipe", func() error {
		_, err := r.db.ExecContext(ctx, query, s.ID, s.ActorID, s.TargetID, string(s.Decision), s.CreatedAt)
		return err
	})
}

func (r *postgresRepository) LatestDecisions(ctx context.Context, actorID string) (map[string]Decision, error) {
	var rows []struct {
		TargetID string `db:"target_id"`
		Decision string `db:"decision"`
	}
	err := r.exec(ctx, "LatestDecisions", func() error {
		return r.db.SelectContext(ctx, &rows, `
            SELECT DISTINCT ON (target_id) target_id, decision
            FROM dating_swipes
            WHERE actor_id = $1
            ORDER BY target_id, seq DESC
        `, actorID)
	})
	if err != nil {
		return nil, err
	}

	decisions := make(map[string]Decision, len(rows))
	for _, row := range rows {
		decisions[row.TargetID] = Decision(row.Decision)
	}
	return decisions, nil
}

func (r *postgresRepository) PairDecisions(ctx context.Context, key PairKey) (Decision, Decision, error) {
	var rows []struct {
		ActorID  string `db:"actor_id"`
		Decision string `db:"decision"`
	}
	err := r.exec(ctx, "PairDecisions", func() error {
		return r.db.SelectContext(ctx, &rows, `
            SELECT DISTINCT ON (actor_id) actor_id, decision
            FROM dating_swipes
            WHERE (actor_id = $1 AND target_id = $2) OR (actor_id = $2 AND target_id = $1)
            ORDER BY actor_id, seq DESC
        `, key.Lo, key.Hi)
	})
	if err != nil {
		return DecisionNone, DecisionNone, err
	}

	var lo, hi Decision
	for _, row := range rows {
		if row.ActorID == key.Lo {
			lo = Decision(row.Decision)
		} else {
			hi = Decision(row.Decision)
		}
	}
	return lo, hi, nil
}

func (r *postgresRepository) SwipeHistory(ctx context.Context, actorID, targetID string) ([]*Swipe, error) {
	var swipes []*Swipe
	err := r.exec(ctx, "SwipeHistory", func() error {
		return r.db.SelectContext(ctx, &swipes, `
            SELECT id, actor_id, target_id, decision, created_at
            FROM dating_swipes
            WHERE actor_id = $1 AND target_id = $2
            ORDER BY seq ASC
        `, actorID, targetID)
	})
	return swipes, err
}

func (r *postgresRepository) PairEverBlocked(ctx context.Context, key PairKey) (bool, error) {
	var blocked bool
	err := r.exec(ctx, "PairEverBlocked", func() error {
		return r.db.GetContext(ctx, &blocked, `
            SELECT EXISTS (
                SELECT 1 FROM dating_swipes
                WHERE decision = 'block'
                  AND ((actor_id = $1 AND target_id = $2) OR (actor_id = $2 AND target_id = $1))
            )
        `, key.Lo, key.Hi)
	})
	return blocked, err
}

func (r *postgresRepository) BlockedPartners(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.exec(ctx, "BlockedPartners", func() error {
		return r.db.SelectContext(ctx, &ids, `
            SELECT DISTINCT CASE WHEN actor_id = $1 THEN target_id ELSE actor_id END
            FROM dating_swipes
            WHERE decision = 'block' AND (actor_id = $1 OR target_id = $1)
        `, userID)
	})
	return ids, err
}

// Matches

const matchColumns = `id, lo_user_id, hi_user_id, lo_decision, hi_decision, score, status, version, created_at, updated_at`

func (r *postgresRepository) GetMatch(ctx context.Context, key PairKey) (*Match, error) {
	var m Match
	err := r.exec(ctx, "GetMatch", func() error {
		err := r.db.GetContext(ctx, &m,
			`SELECT `+matchColumns+` FROM dating_matches WHERE lo_user_id = $1 AND hi_user_id = $2`,
			key.Lo, key.Hi)
		if err == sql.ErrNoRows {
			return notFound("GetMatch", "no match document for %s", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresRepository) InsertMatch(ctx context.Context, m *Match) error {
	query := `
        INSERT INTO dating_matches (` + matchColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	return r.exec(ctx, "InsertMatch", func() error {
		_, err := r.db.ExecContext(ctx, query,
			m.ID, m.LoUserID, m.HiUserID, string(m.LoDecision), string(m.HiDecision),
			m.Score, string(m.Status), m.Version, m.CreatedAt, m.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return errConflict
		}
		return err
	})
}

func (r *postgresRepository) UpdateMatch(ctx context.Context, m *Match, expectedVersion int64) error {
	query := `
        UPDATE dating_matches
        SET lo_decision = $3, hi_decision = $4, score = $5, status = $6,
            version = $7, updated_at = $8
        WHERE lo_user_id = $1 AND hi_user_id = $2 AND version = $9
    `
	return r.exec(ctx, "UpdateMatch", func() error {
		res, err := r.db.ExecContext(ctx, query,
			m.LoUserID, m.HiUserID, string(m.LoDecision), string(m.HiDecision),
			m.Score, string(m.Status), m.Version, m.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return errConflict
		}
		return nil
	})
}

func (r *postgresRepository) ListMatches(ctx context.Context, userID string, status Status) ([]*Match, error) {
	var matches []*Match
	err := r.exec(ctx, "ListMatches", func() error {
		return r.db.SelectContext(ctx, &matches, `
            SELECT `+matchColumns+`
            FROM dating_matches
            WHERE (lo_user_id = $1 OR hi_user_id = $1) AND status = $2
            ORDER BY updated_at DESC, id
        `, userID, string(status))
	})
	return matches, err
}
