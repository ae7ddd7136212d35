package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenstat/goldenstat/models"
	"github.com/goldenstat/goldenstat/resolve"
)

// PlayersByBaseName returns every identity named exactly the base or as a
// club-qualified variant of it ("Mats Andersson", "Mats Andersson (SSDC)").
func (s *Store) PlayersByBaseName(ctx context.Context, base string) ([]models.Player, error) {
	var players []models.Player
	err := s.db.NewSelect().Model(&players).
		Where("name = ? OR name LIKE ?", base, base+" (%").
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("players by base %q: %w", base, err)
	}
	return players, nil
}

// ClubActivity derives a player's per-club activity windows from the events
// they participated in: first and last tournament date plus match volume per
// club.
func (s *Store) ClubActivity(ctx context.Context, playerID int) ([]resolve.ClubWindow, error) {
	var rows []struct {
		Club    string    `bun:"club"`
		First   time.Time `bun:"first_seen"`
		Last    time.Time `bun:"last_seen"`
		Matches int       `bun:"matches"`
	}
	err := s.db.NewRaw(`
		SELECT pt.club AS club,
		       MIN(t.tournament_date) AS first_seen,
		       MAX(t.tournament_date) AS last_seen,
		       COUNT(DISTINCT m.id) AS matches
		FROM participant_players pp
		JOIN participants pt ON pp.participant_id = pt.id
		JOIN tournaments t   ON pt.tournament_id = t.id
		JOIN matches m       ON m.tournament_id = t.id
		                    AND (m.participant1_id = pt.id OR m.participant2_id = pt.id)
		WHERE pp.player_id = ? AND pt.club <> '' AND t.tournament_date IS NOT NULL
		GROUP BY pt.club`, playerID).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("club activity for player %d: %w", playerID, err)
	}

	windows := make([]resolve.ClubWindow, 0, len(rows))
	for _, r := range rows {
		windows = append(windows, resolve.ClubWindow{
			Club:    r.Club,
			First:   r.First,
			Last:    r.Last,
			Matches: r.Matches,
		})
	}
	return windows, nil
}
