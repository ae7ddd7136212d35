package legparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegRoundTrip(t *testing.T) {
	// Winning side: synthetic start, two scoring visits, 2-dart checkout.
	raw := RawLeg{
		Winner:       0,
		First:        0,
		CurrentRound: 3,
		EndFlag:      1,
		PlayerData: [][]RawThrow{
			{{0, 501}, {60, 441}, {100, 341}, {-2, 0}},
			{{0, 501}, {45, 456}, {26, 430}},
		},
	}

	leg, err := ParseLeg(raw, 501)
	require.NoError(t, err)

	assert.Equal(t, 1, leg.WinnerSide)
	assert.Equal(t, 1, leg.FirstSide)
	assert.Equal(t, 3, leg.TotalRounds)

	side1 := sideThrows(leg, 1)
	require.Len(t, side1, 3, "synthetic start entry must be discarded")
	assert.Equal(t, Throw{Side: 1, Round: 1, Score: 60, Remaining: 441, Darts: 3}, side1[0])
	assert.Equal(t, Throw{Side: 1, Round: 2, Score: 100, Remaining: 341, Darts: 3}, side1[1])
	// Checkout: score is what was remaining before the visit, 2 darts used.
	assert.Equal(t, Throw{Side: 1, Round: 3, Score: 341, Remaining: 0, Darts: 2}, side1[2])

	// Loser's sequence just ends without a checkout.
	side2 := sideThrows(leg, 2)
	require.Len(t, side2, 2)
	assert.Equal(t, 430, side2[1].Remaining)
}

func TestParseLegFailedDoubleIn(t *testing.T) {
	raw := RawLeg{
		Winner:  1,
		EndFlag: 1,
		PlayerData: [][]RawThrow{
			{{0, 301}, {0, 301}, {60, 241}},
			{{0, 301}, {100, 201}, {101, 100}, {-3, 0}},
		},
	}

	leg, err := ParseLeg(raw, 301)
	require.NoError(t, err)

	side1 := sideThrows(leg, 1)
	require.Len(t, side1, 2)
	// The failed attempt is a real zero-score throw, not skipped.
	assert.Equal(t, Throw{Side: 1, Round: 1, Score: 0, Remaining: 301, Darts: 3}, side1[0])
	assert.Equal(t, 2, leg.WinnerSide)
}

func TestParseLegHandicap(t *testing.T) {
	// Side 2's synthetic entry carries a handicap start of 401.
	raw := RawLeg{
		EndFlag: 1,
		PlayerData: [][]RawThrow{
			{{0, 501}, {60, 441}},
			{{0, 401}, {100, 301}, {-1, 0}},
		},
	}

	leg, err := ParseLeg(raw, 501)
	require.NoError(t, err)

	side2 := sideThrows(leg, 2)
	require.Len(t, side2, 2)
	assert.Equal(t, 301, side2[0].Remaining)
	// Checkout scored the 301 still standing, with 1 dart.
	assert.Equal(t, Throw{Side: 2, Round: 2, Score: 301, Remaining: 0, Darts: 1}, side2[1])
	assert.Equal(t, 2, leg.WinnerSide)
}

func TestParseLegWalkover(t *testing.T) {
	// Absent side: no entries at all. Winner falls back to the recorded one.
	raw := RawLeg{
		Winner:  1,
		EndFlag: 1,
		PlayerData: [][]RawThrow{
			{},
			{{0, 501}, {180, 321}},
		},
	}

	leg, err := ParseLeg(raw, 501)
	require.NoError(t, err)
	assert.Empty(t, sideThrows(leg, 1))
	assert.Equal(t, 2, leg.WinnerSide)
}

func TestParseLegMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  RawLeg
	}{
		{
			"remaining grows",
			RawLeg{EndFlag: 1, PlayerData: [][]RawThrow{
				{{0, 501}, {60, 441}, {0, 501}},
			}},
		},
		{
			"checkout with nonzero remaining",
			RawLeg{EndFlag: 1, PlayerData: [][]RawThrow{
				{{0, 501}, {-2, 40}},
			}},
		},
		{
			"entries after checkout",
			RawLeg{EndFlag: 1, PlayerData: [][]RawThrow{
				{{0, 501}, {-2, 0}, {60, 441}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLeg(tt.raw, 501)
			var malformed *MalformedError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func TestRawLegComplete(t *testing.T) {
	assert.True(t, RawLeg{EndFlag: 1}.Complete())
	assert.False(t, RawLeg{EndFlag: 0}.Complete())
}

func sideThrows(leg Leg, side int) []Throw {
	var out []Throw
	for _, th := range leg.Throws {
		if th.Side == side {
			out = append(out, th)
		}
	}
	return out
}
