package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Player is the canonical record for one real participant. Club-separated
// variants carry the club in a parenthesized suffix, e.g. "Mats Andersson (SSDC)".
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// PlayerAlias is a permanent redirect: the alias player's name really refers
// to the canonical player. Resolution follows chains to the sink.
type PlayerAlias struct {
	bun.BaseModel `bun:"table:player_aliases,alias:pa"`

	ID                int       `bun:"id,pk,autoincrement" json:"id"`
	AliasPlayerID     int       `bun:"alias_player_id,notnull,unique" json:"aliasPlayerID"`
	CanonicalPlayerID int       `bun:"canonical_player_id,notnull" json:"canonicalPlayerID"`
	AliasName         string    `bun:"alias_name,notnull" json:"aliasName"`
	CanonicalName     string    `bun:"canonical_name,notnull" json:"canonicalName"`
	Reason            string    `bun:"reason" json:"reason,omitempty"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// PlayerOverride maps a raw name inside one specific tournament to a resolved
// player. It is scoped to that tournament only and does not imply a global
// alias; a bare first name disambiguated by club context lands here.
type PlayerOverride struct {
	bun.BaseModel `bun:"table:player_overrides,alias:po"`

	ID               int       `bun:"id,pk,autoincrement" json:"id"`
	TournamentID     int       `bun:"tournament_id,notnull" json:"tournamentID"`
	RawName          string    `bun:"raw_name,notnull" json:"rawName"`
	ResolvedPlayerID int       `bun:"resolved_player_id,notnull" json:"resolvedPlayerID"`
	Confidence       int       `bun:"confidence,notnull" json:"confidence"`
	Reason           string    `bun:"reason" json:"reason,omitempty"`
	Source           string    `bun:"source,notnull" json:"source"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
