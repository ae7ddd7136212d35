package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldenstat/goldenstat/models"
)

// fakeActivity serves canned players and activity windows.
type fakeActivity struct {
	players map[string][]models.Player // base name -> identities
	windows map[int][]ClubWindow       // player id -> windows
}

func (f *fakeActivity) PlayersByBaseName(_ context.Context, base string) ([]models.Player, error) {
	return f.players[base], nil
}

func (f *fakeActivity) ClubActivity(_ context.Context, playerID int) ([]ClubWindow, error) {
	return f.windows[playerID], nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func window(club, first, last string, matches int) ClubWindow {
	return ClubWindow{Club: club, First: day(first), Last: day(last), Matches: matches}
}

func TestPairSeverity(t *testing.T) {
	a := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	b := models.Player{ID: 2, Name: "Mats Andersson (Dartanjang)"}

	tests := []struct {
		name    string
		windowA ClubWindow
		windowB ClubWindow
		want    Severity
	}{
		{
			"disjoint ranges",
			window("SSDC", "2023-01-01", "2023-06-01", 20),
			window("Dartanjang", "2023-07-01", "2023-12-01", 20),
			SeverityNone,
		},
		{
			"short overlap ignored",
			window("SSDC", "2023-01-01", "2023-06-03", 20),
			window("Dartanjang", "2023-06-01", "2023-12-01", 20),
			SeverityNone,
		},
		{
			"overlap with tiny volume",
			window("SSDC", "2023-01-01", "2023-08-01", 2),
			window("Dartanjang", "2023-06-01", "2023-12-01", 20),
			SeverityLow,
		},
		{
			"overlap with modest volume",
			window("SSDC", "2023-01-01", "2023-08-01", 8),
			window("Dartanjang", "2023-06-01", "2023-12-01", 20),
			SeverityMedium,
		},
		{
			"materially simultaneous",
			window("SSDC", "2023-01-01", "2023-12-01", 30),
			window("Dartanjang", "2023-01-01", "2023-12-01", 25),
			SeverityHigh,
		},
		{
			"same club never conflicts",
			window("AIK", "2023-01-01", "2023-12-01", 30),
			window("AIK Dartförening", "2023-01-01", "2023-12-01", 30),
			SeverityNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeActivity{
				windows: map[int][]ClubWindow{
					a.ID: {tt.windowA},
					b.ID: {tt.windowB},
				},
			}
			od := NewOverlapDetector(fake, testClubMap(), DefaultThresholds())
			sev, err := od.PairSeverity(context.Background(), a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sev)
		})
	}
}

func TestFindOverlaps(t *testing.T) {
	players := []models.Player{
		{ID: 1, Name: "Mats Andersson (SSDC)"},
		{ID: 2, Name: "Mats Andersson (Dartanjang)"},
		{ID: 3, Name: "Mats Andersson (Oilers)"},
	}
	fake := &fakeActivity{
		players: map[string][]models.Player{"Mats Andersson": players},
		windows: map[int][]ClubWindow{
			1: {window("SSDC", "2023-01-01", "2023-12-01", 30)},
			2: {window("Dartanjang", "2023-01-01", "2023-12-01", 30)},
			3: {window("Oilers", "2024-01-01", "2024-06-01", 10)},
		},
	}
	od := NewOverlapDetector(fake, testClubMap(), DefaultThresholds())

	overlaps, err := od.FindOverlaps(context.Background(), "Mats Andersson (SSDC)")
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	assert.Equal(t, SeverityHigh, overlaps[0].Severity)
	assert.Equal(t, "SSDC", overlaps[0].ClubA)
	assert.Equal(t, "Dartanjang", overlaps[0].ClubB)
}

func TestClubConflictsWithBase(t *testing.T) {
	fake := &fakeActivity{
		players: map[string][]models.Player{
			"Mats Andersson": {{ID: 1, Name: "Mats Andersson (SSDC)"}},
		},
		windows: map[int][]ClubWindow{
			1: {window("SSDC", "2023-01-01", "2023-12-01", 30)},
		},
	}
	od := NewOverlapDetector(fake, testClubMap(), DefaultThresholds())

	// The proposed club already explains an existing variant's activity.
	conflict, err := od.ClubConflictsWithBase(context.Background(), "Mats Andersson", "SSDC")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = od.ClubConflictsWithBase(context.Background(), "Mats Andersson", "Oilers")
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestMergeClubWindows(t *testing.T) {
	merged := mergeClubWindows(testClubMap(), []ClubWindow{
		window("AIK", "2023-01-01", "2023-03-01", 5),
		window("AIK Dartförening", "2023-02-01", "2023-06-01", 7),
	})
	require.Len(t, merged, 1)
	assert.Equal(t, "AIK Dart", merged[0].Club)
	assert.Equal(t, day("2023-01-01"), merged[0].First)
	assert.Equal(t, day("2023-06-01"), merged[0].Last)
	assert.Equal(t, 12, merged[0].Matches)
}
