package models

import "github.com/uptrace/bun"

// Detail fetch states for a match. A re-run fetches everything that is not
// DetailComplete, so unavailable payloads are retried on the next run.
const (
	DetailPending  = "pending"
	DetailComplete = "complete"
	DetailNone     = "none"
)

// Tournament phases in driver order. PhaseSecondary is the B-knockout for
// entrants eliminated in the group stage.
const (
	PhaseGroup     = "rr"
	PhaseKnockout  = "t"
	PhaseSecondary = "s2"
)

// Match is one pairing inside a tournament phase. TMID is the deterministic
// source match identifier derived from (tdid, phase, round index, the two
// participant tpids); (tournament_id, tmid) uniqueness is what makes
// re-imports no-ops.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID             int      `bun:"id,pk,autoincrement" json:"id"`
	TournamentID   int      `bun:"tournament_id,notnull" json:"tournamentID"`
	Phase          string   `bun:"phase,notnull" json:"phase"`
	PhaseIndex     int      `bun:"phase_index,notnull" json:"phaseIndex"`
	Participant1ID int      `bun:"participant1_id,notnull" json:"participant1ID"`
	Participant2ID int      `bun:"participant2_id,notnull" json:"participant2ID"`
	P1LegsWon      int      `bun:"p1_legs_won,notnull,default:0" json:"p1LegsWon"`
	P2LegsWon      int      `bun:"p2_legs_won,notnull,default:0" json:"p2LegsWon"`
	P1Average      *float64 `bun:"p1_average" json:"p1Average,omitempty"`
	P2Average      *float64 `bun:"p2_average" json:"p2Average,omitempty"`
	TMID           string   `bun:"tmid,notnull" json:"tmid"`
	DetailState    string   `bun:"detail_state,notnull,default:'pending'" json:"detailState"`

	Tournament *Tournament `bun:"rel:belongs-to,join:tournament_id=id" json:"-"`
}

// Leg is one discrete contest within a match: ordered throws per side until
// one side checks out to exactly zero.
type Leg struct {
	bun.BaseModel `bun:"table:legs,alias:l"`

	ID          int `bun:"id,pk,autoincrement" json:"id"`
	MatchID     int `bun:"match_id,notnull" json:"matchID"`
	LegNumber   int `bun:"leg_number,notnull" json:"legNumber"`
	WinnerSide  int `bun:"winner_side,notnull" json:"winnerSide"`
	FirstSide   int `bun:"first_side,notnull" json:"firstSide"`
	TotalRounds int `bun:"total_rounds,notnull" json:"totalRounds"`
}

// Throw is a single visit to the oche. A checkout throw has Remaining 0 and
// DartsUsed holding the actual dart count used to finish.
type Throw struct {
	bun.BaseModel `bun:"table:throws,alias:th"`

	ID          int `bun:"id,pk,autoincrement" json:"id"`
	LegID       int `bun:"leg_id,notnull" json:"legID"`
	Side        int `bun:"side,notnull" json:"side"`
	RoundNumber int `bun:"round_number,notnull" json:"roundNumber"`
	Score       int `bun:"score,notnull" json:"score"`
	Remaining   int `bun:"remaining,notnull" json:"remaining"`
	DartsUsed   int `bun:"darts_used,notnull,default:3" json:"dartsUsed"`
}
