// Package db opens the PostgreSQL connection and owns schema creation.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/goldenstat/goldenstat/config"
	"github.com/goldenstat/goldenstat/models"
)

// Setup opens a PostgreSQL connection using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Player)(nil),
		(*models.PlayerAlias)(nil),
		(*models.Tournament)(nil),
		(*models.Participant)(nil),
		(*models.ParticipantPlayer)(nil),
		(*models.Match)(nil),
		(*models.PlayerOverride)(nil),
		(*models.Leg)(nil),
		(*models.Throw)(nil),
		(*models.PendingReview)(nil),
		(*models.Correction)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	// The uniqueness constraints below are what make driver re-runs idempotent:
	// a match is keyed by its deterministic tmid, a participant by its source
	// tpid, an alias by its source player, an override by (tournament, raw name).
	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'matches_no_dupes') THEN ALTER TABLE matches ADD CONSTRAINT matches_no_dupes UNIQUE (tournament_id, tmid); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'participants_no_dupes') THEN ALTER TABLE participants ADD CONSTRAINT participants_no_dupes UNIQUE (tournament_id, tpid); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'participant_players_no_dupes') THEN ALTER TABLE participant_players ADD CONSTRAINT participant_players_no_dupes UNIQUE (participant_id, player_id); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'overrides_no_dupes') THEN ALTER TABLE player_overrides ADD CONSTRAINT overrides_no_dupes UNIQUE (tournament_id, raw_name); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'legs_no_dupes') THEN ALTER TABLE legs ADD CONSTRAINT legs_no_dupes UNIQUE (match_id, leg_number); END IF; END $$`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("constraint: %v", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_players_name_lower ON players (LOWER(name))`,
		`CREATE INDEX IF NOT EXISTS idx_matches_detail_state ON matches (tournament_id, detail_state)`,
		`CREATE INDEX IF NOT EXISTS idx_throws_leg ON throws (leg_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_reviews_status ON pending_reviews (status)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("index: %v", err)
		}
	}

	return nil
}
