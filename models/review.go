package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Review statuses.
const (
	ReviewPending  = "pending"
	ReviewAccepted = "accepted"
	ReviewRejected = "rejected"
)

// PendingReview is a resolution outcome that may not be auto-applied: a
// decision below the confidence threshold, a vetoed merge, or a rejected
// alias write. Nothing low-confidence is ever silently dropped.
type PendingReview struct {
	bun.BaseModel `bun:"table:pending_reviews,alias:pr"`

	ID           int       `bun:"id,pk,autoincrement" json:"id"`
	TournamentID int       `bun:"tournament_id" json:"tournamentID,omitempty"`
	MatchID      int       `bun:"match_id" json:"matchID,omitempty"`
	RawName      string    `bun:"raw_name,notnull" json:"rawName"`
	Club         string    `bun:"club" json:"club,omitempty"`
	Action       string    `bun:"action,notnull" json:"action"`
	CandidateID  *int      `bun:"candidate_id" json:"candidateID,omitempty"`
	Confidence   int       `bun:"confidence,notnull" json:"confidence"`
	Reason       string    `bun:"reason" json:"reason,omitempty"`
	Status       string    `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Correction is one applied entry of the versioned correction log. The name
// is what makes re-applying the log idempotent.
type Correction struct {
	bun.BaseModel `bun:"table:corrections,alias:cr"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	Kind      string    `bun:"kind,notnull" json:"kind"`
	AppliedAt time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp" json:"appliedAt"`
}
