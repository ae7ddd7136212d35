// cmd/migrate/main.go
// Migrates the legacy MySQL stats database into the local PostgreSQL
// database. One-shot; re-runs skip rows that already exist.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/goldenstat?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/goldenstat/goldenstat/config"
	bundb "github.com/goldenstat/goldenstat/db"
	"github.com/goldenstat/goldenstat/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/goldenstat?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB := bundb.Setup(cfg)
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	// Create tables (idempotent)
	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	// Disable FK enforcement so we can load in bulk without strict ordering
	if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'replica'"); err != nil {
		log.Fatalf("disable FK: %v", err)
	}
	defer func() {
		if _, err := pgDB.ExecContext(ctx, "SET session_replication_role = 'origin'"); err != nil {
			log.Printf("re-enable FK: %v", err)
		}
	}()

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"users", func() (int, error) { return migrateUsers(ctx, myDB, pgDB) }},
		{"players", func() (int, error) { return migratePlayers(ctx, myDB, pgDB) }},
		{"player_aliases", func() (int, error) { return migrateAliases(ctx, myDB, pgDB) }},
		{"tournaments", func() (int, error) { return migrateTournaments(ctx, myDB, pgDB) }},
		{"participants", func() (int, error) { return migrateParticipants(ctx, myDB, pgDB) }},
		{"participant_players", func() (int, error) { return migrateParticipantPlayers(ctx, myDB, pgDB) }},
		{"matches", func() (int, error) { return migrateMatches(ctx, myDB, pgDB) }},
		{"legs", func() (int, error) { return migrateLegs(ctx, myDB, pgDB) }},
		{"throws", func() (int, error) { return migrateThrows(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-20s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, pgDB)
	log.Println("migration complete")
}

// --- helpers ---

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// migrateTable streams a query into the destination in batches.
func migrateTable[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var batch []T
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), rows.Err()
}

// --- per-table migrations ---

func migrateUsers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		"SELECT id, username, password FROM users",
		func(rows *sql.Rows) (models.User, error) {
			var r models.User
			err := rows.Scan(&r.ID, &r.Username, &r.Password)
			return r, err
		})
}

func migratePlayers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		"SELECT id, name, created_at FROM players",
		func(rows *sql.Rows) (models.Player, error) {
			var r models.Player
			err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt)
			return r, err
		})
}

func migrateAliases(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		`SELECT id, alias_player_id, canonical_player_id, alias_name, canonical_name, reason, created_at
		 FROM player_aliases`,
		func(rows *sql.Rows) (models.PlayerAlias, error) {
			var r models.PlayerAlias
			err := rows.Scan(&r.ID, &r.AliasPlayerID, &r.CanonicalPlayerID,
				&r.AliasName, &r.CanonicalName, &r.Reason, &r.CreatedAt)
			return r, err
		})
}

func migrateTournaments(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		`SELECT id, tdid, title, tournament_date, status, team_games, lgid, start_score, created_at
		 FROM tournaments`,
		func(rows *sql.Rows) (models.Tournament, error) {
			var r models.Tournament
			var date sql.NullTime
			err := rows.Scan(&r.ID, &r.TDID, &r.Title, &date, &r.Status,
				&r.TeamGames, &r.LGID, &r.StartScore, &r.CreatedAt)
			if date.Valid {
				r.TournamentDate = &date.Time
			}
			return r, err
		})
}

func migrateParticipants(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		`SELECT id, tournament_id, tpid, name, club, start_score, average FROM participants`,
		func(rows *sql.Rows) (models.Participant, error) {
			var r models.Participant
			var startScore sql.NullInt64
			var average sql.NullFloat64
			err := rows.Scan(&r.ID, &r.TournamentID, &r.TPID, &r.Name, &r.Club, &startScore, &average)
			r.StartScore = nullInt(startScore)
			r.Average = nullFloat(average)
			return r, err
		})
}

func migrateParticipantPlayers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		"SELECT id, participant_id, player_id FROM participant_players",
		func(rows *sql.Rows) (models.ParticipantPlayer, error) {
			var r models.ParticipantPlayer
			err := rows.Scan(&r.ID, &r.ParticipantID, &r.PlayerID)
			return r, err
		})
}

func migrateMatches(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		`SELECT id, tournament_id, phase, phase_index, participant1_id, participant2_id,
		        p1_legs_won, p2_legs_won, p1_average, p2_average, tmid, detail_state
		 FROM matches`,
		func(rows *sql.Rows) (models.Match, error) {
			var r models.Match
			var a1, a2 sql.NullFloat64
			err := rows.Scan(&r.ID, &r.TournamentID, &r.Phase, &r.PhaseIndex,
				&r.Participant1ID, &r.Participant2ID,
				&r.P1LegsWon, &r.P2LegsWon, &a1, &a2, &r.TMID, &r.DetailState)
			r.P1Average = nullFloat(a1)
			r.P2Average = nullFloat(a2)
			return r, err
		})
}

func migrateLegs(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		"SELECT id, match_id, leg_number, winner_side, first_side, total_rounds FROM legs",
		func(rows *sql.Rows) (models.Leg, error) {
			var r models.Leg
			err := rows.Scan(&r.ID, &r.MatchID, &r.LegNumber, &r.WinnerSide, &r.FirstSide, &r.TotalRounds)
			return r, err
		})
}

func migrateThrows(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return migrateTable(ctx, myDB, pgDB,
		"SELECT id, leg_id, side, round_number, score, remaining, darts_used FROM throws",
		func(rows *sql.Rows) (models.Throw, error) {
			var r models.Throw
			err := rows.Scan(&r.ID, &r.LegID, &r.Side, &r.RoundNumber, &r.Score, &r.Remaining, &r.DartsUsed)
			return r, err
		})
}

// resetSequences bumps every serial past the migrated ids.
func resetSequences(ctx context.Context, pgDB *bun.DB) {
	tables := []string{
		"users", "players", "player_aliases", "tournaments", "participants",
		"participant_players", "matches", "legs", "throws",
	}
	for _, t := range tables {
		q := `SELECT setval(pg_get_serial_sequence('` + t + `', 'id'), COALESCE(MAX(id), 1)) FROM ` + t
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Printf("reset sequence %s: %v", t, err)
		}
	}
}
