package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goldenstat/goldenstat/legparse"
	"github.com/goldenstat/goldenstat/models"
)

// TournamentByTDID returns the tournament with this source identifier, or
// nil when it was never imported.
func (s *Store) TournamentByTDID(ctx context.Context, tdid string) (*models.Tournament, error) {
	t := new(models.Tournament)
	err := s.db.NewSelect().Model(t).Where("tdid = ?", tdid).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tournament %s: %w", tdid, err)
	}
	return t, nil
}

// GetOrCreateTournament returns the stored tournament for the payload's tdid,
// inserting it on first sight.
func (s *Store) GetOrCreateTournament(ctx context.Context, t *models.Tournament) (*models.Tournament, error) {
	existing := new(models.Tournament)
	err := s.db.NewSelect().Model(existing).Where("tdid = ?", t.TDID).Scan(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %s: %w", t.TDID, err)
	}

	if _, err := s.db.NewInsert().Model(t).Returning("id, created_at").Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert tournament %s: %w", t.TDID, err)
	}
	return t, nil
}

// UpsertParticipant inserts a tournament entry or refreshes its mutable
// fields, returning the stored id either way.
func (s *Store) UpsertParticipant(ctx context.Context, p *models.Participant) (int, error) {
	_, err := s.db.NewInsert().Model(p).
		On("CONFLICT (tournament_id, tpid) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("club = EXCLUDED.club").
		Set("start_score = EXCLUDED.start_score").
		Set("average = COALESCE(EXCLUDED.average, participants.average)").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert participant %s in tournament %d: %w", p.TPID, p.TournamentID, err)
	}
	return p.ID, nil
}

// LinkParticipantPlayer attaches a resolved player to an entry; re-linking is
// a no-op.
func (s *Store) LinkParticipantPlayer(ctx context.Context, participantID, playerID int) error {
	link := &models.ParticipantPlayer{ParticipantID: participantID, PlayerID: playerID}
	_, err := s.db.NewInsert().Model(link).
		On("CONFLICT (participant_id, player_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("link participant %d player %d: %w", participantID, playerID, err)
	}
	return nil
}

// EnsureMatch inserts the match if its tmid is unseen and returns the stored
// row. Result summaries on an existing row are refreshed; its detail state is
// kept.
func (s *Store) EnsureMatch(ctx context.Context, m *models.Match) (*models.Match, error) {
	existing := new(models.Match)
	err := s.db.NewSelect().Model(existing).
		Where("tournament_id = ? AND tmid = ?", m.TournamentID, m.TMID).
		Scan(ctx)
	if err == nil {
		_, err = s.db.NewUpdate().Model(existing).
			Set("p1_legs_won = ?", m.P1LegsWon).
			Set("p2_legs_won = ?", m.P2LegsWon).
			Set("p1_average = ?", m.P1Average).
			Set("p2_average = ?", m.P2Average).
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh match %s: %w", m.TMID, err)
		}
		existing.P1LegsWon, existing.P2LegsWon = m.P1LegsWon, m.P2LegsWon
		existing.P1Average, existing.P2Average = m.P1Average, m.P2Average
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", m.TMID, err)
	}

	m.DetailState = models.DetailPending
	if _, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert match %s: %w", m.TMID, err)
	}
	return m, nil
}

// MatchesNeedingDetail returns the tournament's matches whose detail payload
// has not been stored yet. Matches previously marked unavailable are included
// so a later run picks them up once the source has data.
func (s *Store) MatchesNeedingDetail(ctx context.Context, tournamentID int) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.NewSelect().Model(&matches).
		Where("tournament_id = ? AND detail_state != ?", tournamentID, models.DetailComplete).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("matches needing detail in %d: %w", tournamentID, err)
	}
	return matches, nil
}

// MarkDetailState updates a match's detail fetch state.
func (s *Store) MarkDetailState(ctx context.Context, matchID int, state string) error {
	_, err := s.db.NewUpdate().Model((*models.Match)(nil)).
		Set("detail_state = ?", state).
		Where("id = ?", matchID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark match %d %s: %w", matchID, state, err)
	}
	return nil
}

// SaveMatchDetail stores a match's decoded legs and throws and marks the
// match complete, atomically. Any rows from an interrupted earlier attempt
// are replaced, so the write is safe to repeat.
func (s *Store) SaveMatchDetail(ctx context.Context, matchID int, legs []legparse.Leg) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var oldLegIDs []int
		err := tx.NewSelect().Model((*models.Leg)(nil)).
			Column("id").
			Where("match_id = ?", matchID).
			Scan(ctx, &oldLegIDs)
		if err != nil {
			return fmt.Errorf("existing legs of match %d: %w", matchID, err)
		}
		if len(oldLegIDs) > 0 {
			if _, err := tx.NewDelete().Model((*models.Throw)(nil)).
				Where("leg_id IN (?)", bun.In(oldLegIDs)).
				Exec(ctx); err != nil {
				return fmt.Errorf("clear throws of match %d: %w", matchID, err)
			}
			if _, err := tx.NewDelete().Model((*models.Leg)(nil)).
				Where("match_id = ?", matchID).
				Exec(ctx); err != nil {
				return fmt.Errorf("clear legs of match %d: %w", matchID, err)
			}
		}

		for i, leg := range legs {
			row := &models.Leg{
				MatchID:     matchID,
				LegNumber:   i + 1,
				WinnerSide:  leg.WinnerSide,
				FirstSide:   leg.FirstSide,
				TotalRounds: leg.TotalRounds,
			}
			if _, err := tx.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
				return fmt.Errorf("insert leg %d of match %d: %w", i+1, matchID, err)
			}

			for _, t := range leg.Throws {
				throw := &models.Throw{
					LegID:       row.ID,
					Side:        t.Side,
					RoundNumber: t.Round,
					Score:       t.Score,
					Remaining:   t.Remaining,
					DartsUsed:   t.Darts,
				}
				if _, err := tx.NewInsert().Model(throw).Exec(ctx); err != nil {
					return fmt.Errorf("insert throw in leg %d of match %d: %w", i+1, matchID, err)
				}
			}
		}

		_, err = tx.NewUpdate().Model((*models.Match)(nil)).
			Set("detail_state = ?", models.DetailComplete).
			Where("id = ?", matchID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("complete match %d: %w", matchID, err)
		}
		return nil
	})
}
