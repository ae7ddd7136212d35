package resolve

import "github.com/goldenstat/goldenstat/models"

// Action is the closed set of resolution outcomes. Callers switch on it
// exhaustively; adding a kind without handling it everywhere is a compile-time
// review item, not a silent fall-through.
type Action int

const (
	// CreateNew is the zero value: nothing matched, a new identity is needed.
	CreateNew Action = iota
	ExactMatch
	ExistingOverride
	ClubSpecific
	ExistingAlias
	CaseVariation
	CaseVariationPrioritized
	HyphenSpaceVariation
	CreateClubVariant
	NeedsReview
)

var actionNames = map[Action]string{
	CreateNew:                "create_new",
	ExactMatch:               "exact_match",
	ExistingOverride:         "existing_override",
	ClubSpecific:             "club_specific",
	ExistingAlias:            "existing_alias",
	CaseVariation:            "case_variation",
	CaseVariationPrioritized: "case_variation_prioritized",
	HyphenSpaceVariation:     "hyphen_space_variation",
	CreateClubVariant:        "create_club_variant",
	NeedsReview:              "needs_review",
}

func (a Action) String() string { return actionNames[a] }

// Decision is the outcome of one resolution. Player is set for actions that
// resolved to a stored identity; ProposedName for actions that propose
// creating one. Resolution itself never persists anything – the caller
// materializes the decision.
type Decision struct {
	Action       Action
	Player       *models.Player
	ProposedName string
	Confidence   int
	Reason       string
}

// AutoApply reports whether the decision may be applied without human review.
// CreateNew is exempt from the threshold: with nothing matched it is correct
// by construction.
func (d Decision) AutoApply(threshold int) bool {
	switch d.Action {
	case CreateNew:
		return true
	case NeedsReview:
		return false
	default:
		return d.Confidence >= threshold
	}
}
