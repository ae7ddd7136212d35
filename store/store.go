// Package store is the canonical identity store and the persistence layer
// for imported tournaments. All multi-row writes run in transactions; the
// uniqueness constraints created in db.CreateTables make every import write
// idempotent.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goldenstat/goldenstat/models"
	"github.com/goldenstat/goldenstat/resolve"
)

// Store wraps the bun connection with the identity and import operations.
type Store struct {
	db  *bun.DB
	log *zap.Logger
}

// New creates a Store.
func New(db *bun.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// DB exposes the underlying connection for the HTTP handlers.
func (s *Store) DB() *bun.DB { return s.db }

// PlayerByName returns the player with this exact name, or nil.
func (s *Store) PlayerByName(ctx context.Context, name string) (*models.Player, error) {
	p := new(models.Player)
	err := s.db.NewSelect().Model(p).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("player by name %q: %w", name, err)
	}
	return p, nil
}

// PlayerByID returns the player with the given id.
func (s *Store) PlayerByID(ctx context.Context, id int) (*models.Player, error) {
	p := new(models.Player)
	if err := s.db.NewSelect().Model(p).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("player %d: %w", id, err)
	}
	return p, nil
}

// FoldedMatches returns every player whose name equals the given one
// case-insensitively, ordered by participation volume descending.
func (s *Store) FoldedMatches(ctx context.Context, name string) ([]resolve.PlayerHit, error) {
	var hits []resolve.PlayerHit
	err := s.db.NewSelect().
		Model((*models.Player)(nil)).
		ColumnExpr("p.*").
		ColumnExpr("(SELECT COUNT(*) FROM participant_players pp WHERE pp.player_id = p.id) AS participations").
		Where("LOWER(p.name) = LOWER(?)", name).
		OrderExpr("participations DESC, p.id").
		Scan(ctx, &hits)
	if err != nil {
		return nil, fmt.Errorf("folded matches for %q: %w", name, err)
	}
	return hits, nil
}

// CreatePlayer inserts a new identity with the given (already normalized)
// name. Fails if the name is taken.
func (s *Store) CreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	p := &models.Player{Name: name}
	if _, err := s.db.NewInsert().Model(p).Returning("id, created_at").Exec(ctx); err != nil {
		return nil, fmt.Errorf("create player %q: %w", name, err)
	}
	return p, nil
}

// GetOrCreatePlayer returns the identity with the given name, creating it if
// absent. The insert is conflict-safe so two concurrent drivers observing the
// same new name cannot create duplicates.
func (s *Store) GetOrCreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	p := &models.Player{Name: name}
	_, err := s.db.NewInsert().Model(p).
		On("CONFLICT (name) DO UPDATE SET name = EXCLUDED.name").
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("get or create player %q: %w", name, err)
	}
	return p, nil
}

// SearchPlayers returns player names matching a substring, for the curation
// API.
func (s *Store) SearchPlayers(ctx context.Context, pattern string, limit int) ([]models.Player, error) {
	var players []models.Player
	err := s.db.NewSelect().Model(&players).
		Where("name ILIKE ?", "%"+pattern+"%").
		Order("name").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search players %q: %w", pattern, err)
	}
	return players, nil
}

// UserByUsername returns the curator account for sign-in.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := new(models.User)
	if err := s.db.NewSelect().Model(u).Where("username = ?", username).Scan(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// ResolverSnapshot preloads the context the resolution pipeline consults:
// every alias (chain-followed to its sink), this tournament's overrides and
// the club-separated variant table.
func (s *Store) ResolverSnapshot(ctx context.Context, tournamentID int) (*resolve.ResolverContext, error) {
	rc := resolve.NewResolverContext(tournamentID)

	var aliases []models.PlayerAlias
	if err := s.db.NewSelect().Model(&aliases).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}
	for _, a := range aliases {
		sinkID, err := s.aliasSink(ctx, a.CanonicalPlayerID)
		if err != nil {
			return nil, err
		}
		sink, err := s.PlayerByID(ctx, sinkID)
		if err != nil {
			return nil, err
		}
		source, err := s.PlayerByID(ctx, a.AliasPlayerID)
		if err != nil {
			return nil, err
		}
		rc.Aliases[resolve.NameKey(a.AliasName)] = resolve.AliasEntry{Source: *source, Sink: *sink}
	}

	var overrides []models.PlayerOverride
	err := s.db.NewSelect().Model(&overrides).
		Where("tournament_id = ?", tournamentID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading overrides: %w", err)
	}
	for _, o := range overrides {
		p, err := s.PlayerByID(ctx, o.ResolvedPlayerID)
		if err != nil {
			return nil, err
		}
		rc.Overrides[resolve.NameKey(o.RawName)] = resolve.OverrideEntry{
			Player:     *p,
			Confidence: o.Confidence,
		}
	}

	var variants []models.Player
	err = s.db.NewSelect().Model(&variants).
		Where("name LIKE '% (%)'").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading club variants: %w", err)
	}
	for _, p := range variants {
		club, ok := resolve.ClubQualifier(p.Name)
		if !ok {
			continue
		}
		key := resolve.NameKey(resolve.BaseName(p.Name))
		rc.Variants[key] = append(rc.Variants[key], resolve.ClubVariant{Player: p, Club: club})
	}

	return rc, nil
}
