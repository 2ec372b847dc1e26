package dating

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// User ids compare byte-wise everywhere, matching NewPairKey and the
// keyset cursor, so every id column uses the "C" collation.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS dating_profiles (
        user_id           TEXT COLLATE "C" PRIMARY KEY,
        display_name      TEXT NOT NULL DEFAULT '',
        birth_date        DATE NOT NULL,
        gender            TEXT NOT NULL DEFAULT '',
        country           TEXT NOT NULL DEFAULT '',
        city              TEXT NOT NULL DEFAULT '',
        languages         TEXT[] NOT NULL DEFAULT '{}',
        judaism_direction TEXT NOT NULL DEFAULT '',
        kashrut_level     TEXT NOT NULL DEFAULT '',
        shabbat_level     TEXT NOT NULL DEFAULT '',
        goal              TEXT NOT NULL DEFAULT '',
        has_photo         BOOLEAN NOT NULL DEFAULT FALSE,
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_dating_profiles_feed ON dating_profiles (updated_at DESC, user_id DESC)`,
	`CREATE TABLE IF NOT EXISTS dating_preferences (
        user_id       TEXT COLLATE "C" PRIMARY KEY,
        age_min       INT NOT NULL DEFAULT 18,
        age_max       INT NOT NULL DEFAULT 120,
        distance_km   DOUBLE PRECISION NOT NULL DEFAULT 0,
        denominations TEXT[] NOT NULL DEFAULT '{}',
        goals         TEXT[] NOT NULL DEFAULT '{}'
    )`,
	`CREATE TABLE IF NOT EXISTS dating_swipes (
        seq        BIGSERIAL PRIMARY KEY,
        id         TEXT NOT NULL UNIQUE,
        actor_id   TEXT COLLATE "C" NOT NULL,
        target_id  TEXT COLLATE "C" NOT NULL,
        decision   TEXT NOT NULL CHECK (decision IN ('like', 'pass', 'block')),
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CHECK (actor_id <> target_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_dating_swipes_pair ON dating_swipes (actor_id, target_id, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS dating_matches (
        id          TEXT PRIMARY KEY,
        lo_user_id  TEXT COLLATE "C" NOT NULL,
        hi_user_id  TEXT COLLATE "C" NOT NULL,
        lo_decision TEXT NOT NULL DEFAULT '',
        hi_decision TEXT NOT NULL DEFAULT '',
        score       DOUBLE PRECISION NOT NULL DEFAULT 0,
        status      TEXT NOT NULL,
        version     BIGINT NOT NULL DEFAULT 1,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (lo_user_id, hi_user_id),
        CHECK (lo_user_id COLLATE "C" < hi_user_id COLLATE "C")
    )`,
	`CREATE INDEX IF NOT EXISTS idx_dating_matches_lo ON dating_matches (lo_user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_dating_matches_hi ON dating_matches (hi_user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_dating_swipes_blocks ON dating_swipes (target_id) WHERE decision = 'block'`,
	// tables created before ids were collated
	`ALTER TABLE dating_profiles ALTER COLUMN user_id TYPE TEXT COLLATE "C"`,
	`ALTER TABLE dating_preferences ALTER COLUMN user_id TYPE TEXT COLLATE "C"`,
	`ALTER TABLE dating_swipes ALTER COLUMN actor_id TYPE TEXT COLLATE "C", ALTER COLUMN target_id TYPE TEXT COLLATE "C"`,
	`ALTER TABLE dating_matches ALTER COLUMN lo_user_id TYPE TEXT COLLATE "C", ALTER COLUMN hi_user_id TYPE TEXT COLLATE "C"`,
}

// Migrate creates the dating tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
