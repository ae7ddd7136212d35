// Package legparse decodes the raw per-side throw sequences of one leg into
// structured rounds.
//
// The source encodes legs as two ordered entry lists, one per side. Each list
// opens with a synthetic starting-position entry (score 0, remaining = start
// score, possibly a per-entry handicap) that is discarded. A negative score
// marks the checkout: its absolute value is the number of darts actually used
// and the remaining value is exactly zero. A zero score that leaves the
// remaining value unchanged is a failed double-in attempt and is kept as a
// real zero-score throw. The losing side's list simply ends without a
// checkout.
package legparse

import "fmt"

// RawThrow is one entry of a side's sequence as delivered by the source.
type RawThrow struct {
	Score int `json:"score"`
	Left  int `json:"left"`
}

// RawLeg is one leg of a detail payload.
type RawLeg struct {
	Winner       int          `json:"winner"` // 0-based side index
	First        int          `json:"first"`  // 0-based side that threw first
	CurrentRound int          `json:"currentRound"`
	EndFlag      int          `json:"endFlag"` // 1 when the leg completed
	PlayerData   [][]RawThrow `json:"playerData"`
}

// Complete reports whether the leg finished; incomplete legs are skipped.
func (l RawLeg) Complete() bool { return l.EndFlag == 1 }

// Throw is one decoded visit. Sides and rounds are 1-based.
type Throw struct {
	Side      int
	Round     int
	Score     int
	Remaining int
	Darts     int
}

// Leg is the decoded result.
type Leg struct {
	WinnerSide  int // 1 or 2; 0 if neither side checked out
	FirstSide   int
	TotalRounds int
	Throws      []Throw
}

// MalformedError reports a payload that violates the encoding rules; the
// match is left incomplete for manual inspection.
type MalformedError struct {
	Side   int
	Index  int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed leg payload: side %d entry %d: %s", e.Side, e.Index, e.Reason)
}

// ParseLeg decodes one leg. startScore is the configured default; a side
// whose synthetic first entry carries a different remaining value (a
// handicap) starts from that value instead.
func ParseLeg(raw RawLeg, startScore int) (Leg, error) {
	leg := Leg{
		FirstSide:   raw.First + 1,
		TotalRounds: raw.CurrentRound,
	}

	for sideIdx, entries := range raw.PlayerData {
		if sideIdx > 1 {
			break
		}
		side := sideIdx + 1
		throws, closed, err := parseSide(side, entries, startScore)
		if err != nil {
			return Leg{}, err
		}
		leg.Throws = append(leg.Throws, throws...)
		if closed {
			leg.WinnerSide = side
		}
	}

	// An absent side (walkover) leaves no checkout anywhere; fall back to the
	// winner the source recorded.
	if leg.WinnerSide == 0 && len(raw.PlayerData) > raw.Winner {
		leg.WinnerSide = raw.Winner + 1
	}

	return leg, nil
}

func parseSide(side int, entries []RawThrow, startScore int) (throws []Throw, closed bool, err error) {
	if len(entries) == 0 {
		// Bye or absent side.
		return nil, false, nil
	}

	remaining := startScore
	start := 0
	if entries[0].Score == 0 {
		// Synthetic starting position; its remaining value carries any
		// per-entry handicap.
		remaining = entries[0].Left
		start = 1
	}

	round := 0
	for i := start; i < len(entries); i++ {
		e := entries[i]
		round++

		switch {
		case e.Score < 0:
			// Checkout: |score| darts used, the visit scored whatever was
			// remaining before it.
			if e.Left != 0 {
				return nil, false, &MalformedError{Side: side, Index: i,
					Reason: fmt.Sprintf("checkout with remaining %d", e.Left)}
			}
			throws = append(throws, Throw{
				Side: side, Round: round,
				Score: remaining, Remaining: 0, Darts: -e.Score,
			})
			remaining = 0
			closed = true

		case e.Score == 0 && e.Left == remaining:
			// Failed double-in attempt: kept, not skipped.
			throws = append(throws, Throw{
				Side: side, Round: round,
				Score: 0, Remaining: remaining, Darts: 3,
			})

		default:
			if e.Left > remaining {
				return nil, false, &MalformedError{Side: side, Index: i,
					Reason: fmt.Sprintf("remaining grew from %d to %d", remaining, e.Left)}
			}
			throws = append(throws, Throw{
				Side: side, Round: round,
				Score: e.Score, Remaining: e.Left, Darts: 3,
			})
			remaining = e.Left
		}

		if closed && i != len(entries)-1 {
			return nil, false, &MalformedError{Side: side, Index: i,
				Reason: "entries after checkout"}
		}
	}

	return throws, closed, nil
}
