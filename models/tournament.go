package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Tournament is one imported cup, keyed by the source-assigned tdid.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID             int        `bun:"id,pk,autoincrement" json:"id"`
	TDID           string     `bun:"tdid,notnull,unique" json:"tdid"`
	Title          string     `bun:"title,notnull" json:"title"`
	TournamentDate *time.Time `bun:"tournament_date" json:"tournamentDate,omitempty"`
	Status         int        `bun:"status" json:"status"`
	TeamGames      bool       `bun:"team_games,notnull,default:false" json:"teamGames"`
	LGID           string     `bun:"lgid" json:"lgid,omitempty"`
	StartScore     int        `bun:"start_score,notnull,default:501" json:"startScore"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Participant is a tournament entry: a single player or, for team games,
// a doubles pair. StartScore overrides the tournament start score when the
// entry plays with a handicap.
type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:pt"`

	ID           int    `bun:"id,pk,autoincrement" json:"id"`
	TournamentID int    `bun:"tournament_id,notnull" json:"tournamentID"`
	TPID         string   `bun:"tpid,notnull" json:"tpid"`
	Name         string   `bun:"name,notnull" json:"name"`
	Club         string   `bun:"club" json:"club,omitempty"`
	StartScore   *int     `bun:"start_score" json:"startScore,omitempty"`
	Average      *float64 `bun:"average" json:"average,omitempty"`

	Tournament *Tournament `bun:"rel:belongs-to,join:tournament_id=id" json:"-"`
}

// ParticipantPlayer links a tournament entry to the resolved canonical
// player(s) behind it. Doubles entries have two rows.
type ParticipantPlayer struct {
	bun.BaseModel `bun:"table:participant_players,alias:pp"`

	ID            int `bun:"id,pk,autoincrement" json:"id"`
	ParticipantID int `bun:"participant_id,notnull" json:"participantID"`
	PlayerID      int `bun:"player_id,notnull" json:"playerID"`
}
