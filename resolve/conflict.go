package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goldenstat/goldenstat/models"
)

// ErrAmbiguousIdentity marks a merge blocked by a high-severity temporal
// overlap: the two identities were materially active under different clubs at
// the same time, which is strong evidence they are different people.
var ErrAmbiguousIdentity = errors.New("ambiguous identity: overlapping activity under different clubs")

// Severity classifies how strongly a time-activity overlap argues against
// merging two identities.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// ClubWindow is one identity's activity under one club: first and last seen
// dates plus participation volume. Derived from stored events, never stored
// directly.
type ClubWindow struct {
	Club    string
	First   time.Time
	Last    time.Time
	Matches int
}

// Overlap is a time-range intersection between two identities' activity under
// differing clubs.
type Overlap struct {
	PlayerA  models.Player
	PlayerB  models.Player
	ClubA    string
	ClubB    string
	Start    time.Time
	End      time.Time
	Days     int
	Severity Severity
}

// ActivityStore is what the overlap detector needs from the store.
type ActivityStore interface {
	// PlayersByBaseName returns every identity whose name is the base name
	// itself or a club-qualified variant of it.
	PlayersByBaseName(ctx context.Context, base string) ([]models.Player, error)
	// ClubActivity returns the player's per-club activity windows.
	ClubActivity(ctx context.Context, playerID int) ([]ClubWindow, error)
}

// Thresholds tune overlap classification.
type Thresholds struct {
	// MinOverlapDays is the shortest overlap that counts at all; anything
	// shorter is treated as a data-entry blip.
	MinOverlapDays int
	// LowMaxMatches / MediumMaxMatches bound the smaller side's activity
	// volume for low respectively medium severity.
	LowMaxMatches    int
	MediumMaxMatches int
}

// DefaultThresholds match the tuning used when the historical data set was
// cleaned up.
func DefaultThresholds() Thresholds {
	return Thresholds{MinOverlapDays: 7, LowMaxMatches: 3, MediumMaxMatches: 10}
}

// OverlapDetector computes temporal overlaps between identities sharing a
// base name and vetoes merges the resolver would otherwise propose.
type OverlapDetector struct {
	store ActivityStore
	clubs *ClubMap
	th    Thresholds
}

// NewOverlapDetector builds a detector over the given store.
func NewOverlapDetector(store ActivityStore, clubs *ClubMap, th Thresholds) *OverlapDetector {
	return &OverlapDetector{store: store, clubs: clubs, th: th}
}

// FindOverlaps computes every pairwise overlap between identities sharing the
// given base name.
func (od *OverlapDetector) FindOverlaps(ctx context.Context, base string) ([]Overlap, error) {
	players, err := od.store.PlayersByBaseName(ctx, BaseName(base))
	if err != nil {
		return nil, fmt.Errorf("players for base %q: %w", base, err)
	}

	var out []Overlap
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			pair, err := od.pairOverlaps(ctx, players[i], players[j])
			if err != nil {
				return nil, err
			}
			out = append(out, pair...)
		}
	}
	return out, nil
}

// PairSeverity returns the highest overlap severity between two specific
// identities. Used to veto alias creation.
func (od *OverlapDetector) PairSeverity(ctx context.Context, a, b models.Player) (Severity, error) {
	overlaps, err := od.pairOverlaps(ctx, a, b)
	if err != nil {
		return SeverityNone, err
	}
	max := SeverityNone
	for _, o := range overlaps {
		if o.Severity > max {
			max = o.Severity
		}
	}
	return max, nil
}

// ClubConflictsWithBase reports whether a proposed new club variant of base
// would high-overlap an existing variant's activity: the club already
// explains one of the stored identities.
func (od *OverlapDetector) ClubConflictsWithBase(ctx context.Context, base, club string) (bool, error) {
	players, err := od.store.PlayersByBaseName(ctx, BaseName(base))
	if err != nil {
		return false, err
	}
	std := od.clubs.Standardize(club)
	for _, p := range players {
		windows, err := od.store.ClubActivity(ctx, p.ID)
		if err != nil {
			return false, err
		}
		for _, w := range windows {
			if w.Matches > od.th.MediumMaxMatches && od.clubs.SameClub(w.Club, std) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (od *OverlapDetector) pairOverlaps(ctx context.Context, a, b models.Player) ([]Overlap, error) {
	wa, err := od.store.ClubActivity(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("activity for %q: %w", a.Name, err)
	}
	wb, err := od.store.ClubActivity(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("activity for %q: %w", b.Name, err)
	}

	var out []Overlap
	for _, winA := range mergeClubWindows(od.clubs, wa) {
		for _, winB := range mergeClubWindows(od.clubs, wb) {
			// Same club is not a conflict.
			if od.clubs.SameClub(winA.Club, winB.Club) {
				continue
			}
			start := maxTime(winA.First, winB.First)
			end := minTime(winA.Last, winB.Last)
			if !start.Before(end) && !start.Equal(end) {
				continue
			}
			days := int(end.Sub(start).Hours() / 24)
			sev := od.classify(days, minInt(winA.Matches, winB.Matches))
			if sev == SeverityNone {
				continue
			}
			out = append(out, Overlap{
				PlayerA: a, PlayerB: b,
				ClubA: winA.Club, ClubB: winB.Club,
				Start: start, End: end, Days: days,
				Severity: sev,
			})
		}
	}
	return out, nil
}

func (od *OverlapDetector) classify(days, smallerVolume int) Severity {
	if days < od.th.MinOverlapDays {
		return SeverityNone
	}
	switch {
	case smallerVolume <= od.th.LowMaxMatches:
		return SeverityLow
	case smallerVolume <= od.th.MediumMaxMatches:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// mergeClubWindows coalesces windows whose clubs standardize to the same
// club, so spelling variants of one club never overlap themselves.
func mergeClubWindows(clubs *ClubMap, windows []ClubWindow) []ClubWindow {
	byClub := make(map[string]*ClubWindow)
	var order []string
	for _, w := range windows {
		std := clubs.Standardize(w.Club)
		if cur, ok := byClub[std]; ok {
			cur.First = minTime(cur.First, w.First)
			cur.Last = maxTime(cur.Last, w.Last)
			cur.Matches += w.Matches
			continue
		}
		merged := w
		merged.Club = std
		byClub[std] = &merged
		order = append(order, std)
	}
	out := make([]ClubWindow, 0, len(order))
	for _, club := range order {
		out = append(out, *byClub[club])
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
