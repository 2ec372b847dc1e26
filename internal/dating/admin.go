// internal/dating/admin.go

package dating

import (
	"context"
	"time"
)

// EngineStats is an operational snapshot of the engine's data.
type EngineStats struct {
	TotalProfiles     int64            `json:"total_profiles"`
	TotalSwipes       int64            `json:"total_swipes"`
	SwipesLastDay     int64            `json:"swipes_last_day"`
	MatchesByStatus   map[Status]int64 `json:"matches_by_status"`
	AverageMatchScore float64          `json:"average_match_score"`
	LastUpdated       time.Time        `json:"last_updated"`
}

// StatsStore aggregates over the whole population.
type StatsStore interface {
	Stats(ctx context.Context, since time.Time) (*EngineStats, error)
}

func (r *postgresRepository) Stats(ctx context.Context, since time.Time) (*EngineStats, error) {
	stats := &EngineStats{MatchesByStatus: make(map[Status]int64)}

	err := r.exec(ctx, "Stats", func() error {
		// Get ledger and profile totals
		totalsQuery := `
			SELECT
				(SELECT COUNT(*) FROM dating_profiles) AS total_profiles,
				COUNT(*) AS total_swipes,
				COUNT(CASE WHEN created_at > $1 THEN 1 END) AS swipes_last_day
			FROM dating_swipes
		`
		if err := r.db.QueryRowxContext(ctx, totalsQuery, since).Scan(
			&stats.TotalProfiles,
			&stats.TotalSwipes,
			&stats.SwipesLastDay,
		); err != nil {
			return err
		}

		// Get match distribution
		var rows []struct {
			Status   string  `db:"status"`
			Count    int64   `db:"count"`
			AvgScore float64 `db:"avg_score"`
		}
		statusQuery := `
			SELECT status, COUNT(*) AS count, COALESCE(AVG(score), 0) AS avg_score
			FROM dating_matches
			GROUP BY status
		`
		if err := r.db.SelectContext(ctx, &rows, statusQuery); err != nil {
			return err
		}

		var total int64
		var scoreSum float64
		for _, row := range rows {
			stats.MatchesByStatus[Status(row.Status)] = row.Count
			total += row.Count
			scoreSum += row.AvgScore * float64(row.Count)
		}
		if total > 0 {
			stats.AverageMatchScore = scoreSum / float64(total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*EngineStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &EngineStats{
		TotalProfiles:   int64(len(s.profiles)),
		TotalSwipes:     int64(len(s.swipes)),
		MatchesByStatus: make(map[Status]int64),
	}
	for _, sw := range s.swipes {
		if sw.CreatedAt.After(since) {
			stats.SwipesLastDay++
		}
	}

	var scoreSum float64
	for _, m := range s.matches {
		stats.MatchesByStatus[m.Status]++
		scoreSum += m.Score
	}
	if len(s.matches) > 0 {
		stats.AverageMatchScore = scoreSum / float64(len(s.matches))
	}
	return stats, nil
}
