// Package importer walks an external tournament source phase by phase and
// reconciles it into the store: deterministic match identifiers, idempotent
// upserts, per-name identity resolution and leg/throw decoding.
package importer

import (
	"context"

	"github.com/goldenstat/goldenstat/legparse"
)

// PhaseResult is one directional result-map entry: legs won by the first
// participant against the second, plus their three-dart average.
type PhaseResult struct {
	LegsWon int      `json:"r"`
	Average *float64 `json:"a"`
}

// ResultMap holds one phase round's results keyed by tpid pairs. Keys that do
// not correspond to a bracket pairing are ignored; the driver only
// materializes matches implied by the bracket structure.
type ResultMap map[string]map[string]PhaseResult

// Entry is one line of the tournament's entry list. StartScore is a
// per-entry handicap overriding the phase start score.
type Entry struct {
	TPID       string `json:"tpid"`
	Name       string `json:"name"`
	StartScore *int   `json:"startScore"`
}

// PhaseSetting carries per-phase game settings.
type PhaseSetting struct {
	StartScore int `json:"startScore"`
}

// TournamentData is the per-source bracket and result metadata. RR is the
// group stage, T the primary knockout, S2 the secondary knockout played by
// entrants eliminated in the group stage.
type TournamentData struct {
	Title     string       `json:"title"`
	TDate     int64        `json:"t_date"`
	Status    int          `json:"status"`
	TeamGames int          `json:"team_games"`
	LGID      string       `json:"lgid"`
	RRSetting PhaseSetting `json:"rr_setting"`
	EntryList []Entry      `json:"entry_list"`
	RRTable   [][]string   `json:"rr_table"`
	RRResult  []ResultMap  `json:"rr_result"`
	TTable    [][]string   `json:"t_table"`
	TResult   []ResultMap  `json:"t_result"`
	S2Table   [][]string   `json:"s2_table"`
	S2Result  []ResultMap  `json:"s2_result"`
}

// SetData is one sub-match of a detail payload.
type SetData struct {
	StartTime int64            `json:"startTime"`
	LegData   []legparse.RawLeg `json:"legData"`
}

// Source yields raw tournament data. An empty SetData slice means "not
// available yet", which is an expected state, not an error.
type Source interface {
	Tournament(ctx context.Context, tdid string) (*TournamentData, error)
	SetData(ctx context.Context, tmid string) ([]SetData, error)
}

// SeasonTournament is one tournament listed for a league.
type SeasonTournament struct {
	TDID  string `json:"tdid"`
	Title string `json:"title"`
}

// LeagueSource lists a league's completed tournaments, for the nightly
// importer.
type LeagueSource interface {
	SeasonList(ctx context.Context, lgid string) ([]SeasonTournament, error)
}
