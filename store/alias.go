package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goldenstat/goldenstat/models"
)

// ErrAliasCycle is returned when an alias write would close a cycle; the
// store is left unchanged.
var ErrAliasCycle = errors.New("alias would create a cycle")

// aliasSink follows the alias chain from a player id to its sink. A player
// that is no alias source is its own sink.
func (s *Store) aliasSink(ctx context.Context, playerID int) (int, error) {
	seen := map[int]bool{}
	id := playerID
	for {
		if seen[id] {
			// Pre-existing cycle in data; stop rather than loop.
			return 0, fmt.Errorf("%w: chain from player %d revisits %d", ErrAliasCycle, playerID, id)
		}
		seen[id] = true

		var next int
		err := s.db.NewSelect().
			Model((*models.PlayerAlias)(nil)).
			Column("canonical_player_id").
			Where("alias_player_id = ?", id).
			Scan(ctx, &next)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return 0, fmt.Errorf("alias chain from %d: %w", playerID, err)
		}
		id = next
	}
}

// AliasSink resolves a player id through the alias table to its canonical
// sink identity.
func (s *Store) AliasSink(ctx context.Context, playerID int) (int, error) {
	return s.aliasSink(ctx, playerID)
}

// CreateAlias records that aliasID's name really refers to canonicalID. The
// canonical side is first chain-followed to its sink; a write that would
// close a cycle fails with ErrAliasCycle and changes nothing. Existing
// tournament overrides resolving to the alias source are eagerly re-pointed
// to the sink, as are alias edges whose canonical side was the source and the
// source's participant links, so a stale record can never resurrect an
// aliased identity and the sink inherits the source's participation volume.
func (s *Store) CreateAlias(ctx context.Context, aliasID, canonicalID int, reason string) (*models.PlayerAlias, error) {
	if aliasID == canonicalID {
		return nil, fmt.Errorf("%w: player %d cannot alias itself", ErrAliasCycle, aliasID)
	}

	sinkID, err := s.aliasSink(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	if sinkID == aliasID {
		return nil, fmt.Errorf("%w: %d -> %d resolves back to %d", ErrAliasCycle, aliasID, canonicalID, aliasID)
	}

	source, err := s.PlayerByID(ctx, aliasID)
	if err != nil {
		return nil, err
	}
	sink, err := s.PlayerByID(ctx, sinkID)
	if err != nil {
		return nil, err
	}

	alias := &models.PlayerAlias{
		AliasPlayerID:     aliasID,
		CanonicalPlayerID: sinkID,
		AliasName:         source.Name,
		CanonicalName:     sink.Name,
		Reason:            reason,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(alias).Exec(ctx); err != nil {
			return fmt.Errorf("insert alias %d -> %d: %w", aliasID, sinkID, err)
		}

		// Flatten edges that pointed at the new source.
		_, err := tx.NewUpdate().
			Model((*models.PlayerAlias)(nil)).
			Set("canonical_player_id = ?", sinkID).
			Set("canonical_name = ?", sink.Name).
			Where("canonical_player_id = ?", aliasID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("re-point aliases of %d: %w", aliasID, err)
		}

		// Re-point stale tournament overrides.
		_, err = tx.NewUpdate().
			Model((*models.PlayerOverride)(nil)).
			Set("resolved_player_id = ?", sinkID).
			Where("resolved_player_id = ?", aliasID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("re-point overrides of %d: %w", aliasID, err)
		}

		// Migrate participant links so the source's participation volume
		// counts for the sink. Links the sink already holds are dropped
		// instead of duplicated.
		_, err = tx.NewUpdate().
			Model((*models.ParticipantPlayer)(nil)).
			Set("player_id = ?", sinkID).
			Where("player_id = ?", aliasID).
			Where("participant_id NOT IN (SELECT participant_id FROM participant_players WHERE player_id = ?)", sinkID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("re-point participant links of %d: %w", aliasID, err)
		}
		_, err = tx.NewDelete().
			Model((*models.ParticipantPlayer)(nil)).
			Where("player_id = ?", aliasID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("drop duplicate participant links of %d: %w", aliasID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alias, nil
}

// CreateOverride records a tournament-scoped resolution. Re-imports of the
// same raw name hit the unique constraint and leave the first decision in
// place.
func (s *Store) CreateOverride(ctx context.Context, o *models.PlayerOverride) error {
	_, err := s.db.NewInsert().Model(o).
		On("CONFLICT (tournament_id, raw_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create override %q in tournament %d: %w", o.RawName, o.TournamentID, err)
	}
	return nil
}

// RepointOverride forces an existing override for (tournament, raw name)
// onto a different player, inserting it if the import never recorded one.
func (s *Store) RepointOverride(ctx context.Context, tournamentID int, rawName string, playerID int, reason string) error {
	o := &models.PlayerOverride{
		TournamentID:     tournamentID,
		RawName:          rawName,
		ResolvedPlayerID: playerID,
		Confidence:       100,
		Reason:           reason,
		Source:           "correction",
	}
	_, err := s.db.NewInsert().Model(o).
		On("CONFLICT (tournament_id, raw_name) DO UPDATE").
		Set("resolved_player_id = EXCLUDED.resolved_player_id").
		Set("confidence = EXCLUDED.confidence").
		Set("reason = EXCLUDED.reason").
		Set("source = EXCLUDED.source").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repoint override %q in tournament %d: %w", rawName, tournamentID, err)
	}
	return nil
}
