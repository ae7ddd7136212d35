package corrections

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/goldenstat/goldenstat/models"
	"github.com/goldenstat/goldenstat/resolve"
	"github.com/goldenstat/goldenstat/store"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeLog(t, `
corrections:
  - name: 2024-03-merge-matts
    kind: create-alias
    alias_name: Matts Andersson
    canonical_name: Mats Andersson
    reason: typo in spring cup entry list
  - name: 2024-05-fix-peter
    kind: repoint-override
    tournament_tdid: t_ALIS_0219
    raw_name: Peter
    player_name: Peter Svensson (Oilers)
  - name: 2024-06-merge-pair
    kind: merge-participants
    from_player: P Svensson
    into_player: Peter Svensson (Oilers)
`)

	ops, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, KindCreateAlias, ops[0].Kind)
	assert.Equal(t, "Matts Andersson", ops[0].AliasName)
	assert.Equal(t, KindRepointOverride, ops[1].Kind)
	assert.Equal(t, "t_ALIS_0219", ops[1].TournamentTDID)
	assert.Equal(t, KindMergeParticipants, ops[2].Kind)
}

func TestLoadMissingFileIsEmptyLog(t *testing.T) {
	ops, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestLoadRejectsInvalidOps(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"missing name",
			`
corrections:
  - kind: create-alias
    alias_name: A
    canonical_name: B
`,
		},
		{
			"unknown kind",
			`
corrections:
  - name: x
    kind: delete-player
`,
		},
		{
			"alias without canonical",
			`
corrections:
  - name: x
    kind: create-alias
    alias_name: A
`,
		},
		{
			"repoint without tournament",
			`
corrections:
  - name: x
    kind: repoint-override
    raw_name: Peter
    player_name: Peter Svensson
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeLog(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

type fakeCorrectionStore struct {
	players   map[string]*models.Player
	applied   map[string]bool
	aliases   [][2]int
	repointed []string
	reviews   []models.PendingReview
	cycleOn   int
}

func newFakeCorrectionStore() *fakeCorrectionStore {
	return &fakeCorrectionStore{
		players: map[string]*models.Player{},
		applied: map[string]bool{},
	}
}

func (f *fakeCorrectionStore) addPlayer(id int, name string) {
	f.players[name] = &models.Player{ID: id, Name: name}
}

// fakeActivity serves canned per-club windows to the overlap detector.
type fakeActivity struct {
	windows map[int][]resolve.ClubWindow
}

func (f *fakeActivity) PlayersByBaseName(context.Context, string) ([]models.Player, error) {
	return nil, nil
}

func (f *fakeActivity) ClubActivity(_ context.Context, playerID int) ([]resolve.ClubWindow, error) {
	if f.windows == nil {
		return nil, nil
	}
	return f.windows[playerID], nil
}

func newTestApplier(st Store, activity *fakeActivity) *Applier {
	if activity == nil {
		activity = &fakeActivity{}
	}
	clubs := resolve.NewClubMap(nil)
	overlaps := resolve.NewOverlapDetector(activity, clubs, resolve.DefaultThresholds())
	return NewApplier(st, overlaps, zap.NewNop())
}

func (f *fakeCorrectionStore) CorrectionApplied(_ context.Context, name string) (bool, error) {
	return f.applied[name], nil
}

func (f *fakeCorrectionStore) MarkCorrectionApplied(_ context.Context, name, _ string) error {
	f.applied[name] = true
	return nil
}

func (f *fakeCorrectionStore) PlayerByName(_ context.Context, name string) (*models.Player, error) {
	return f.players[name], nil
}

func (f *fakeCorrectionStore) TournamentByTDID(_ context.Context, tdid string) (*models.Tournament, error) {
	if tdid == "t_ALIS_0219" {
		return &models.Tournament{ID: 7, TDID: tdid}, nil
	}
	return nil, nil
}

func (f *fakeCorrectionStore) CreateAlias(_ context.Context, aliasID, canonicalID int, _ string) (*models.PlayerAlias, error) {
	if aliasID == f.cycleOn {
		return nil, store.ErrAliasCycle
	}
	f.aliases = append(f.aliases, [2]int{aliasID, canonicalID})
	return &models.PlayerAlias{AliasPlayerID: aliasID, CanonicalPlayerID: canonicalID}, nil
}

func (f *fakeCorrectionStore) RepointOverride(_ context.Context, tournamentID int, rawName string, playerID int, _ string) error {
	f.repointed = append(f.repointed, fmt.Sprintf("%d/%s/%d", tournamentID, rawName, playerID))
	return nil
}

func (f *fakeCorrectionStore) AddPendingReview(_ context.Context, r *models.PendingReview) error {
	f.reviews = append(f.reviews, *r)
	return nil
}

func TestApplyRunsEachOpOnce(t *testing.T) {
	st := newFakeCorrectionStore()
	st.addPlayer(1, "Matts Andersson")
	st.addPlayer(2, "Mats Andersson")
	st.addPlayer(3, "Peter Svensson (Oilers)")

	ops := []Op{
		{Name: "merge-matts", Kind: KindCreateAlias, AliasName: "Matts Andersson", CanonicalName: "Mats Andersson"},
		{Name: "fix-peter", Kind: KindRepointOverride, TournamentTDID: "t_ALIS_0219", RawName: "Peter", PlayerName: "Peter Svensson (Oilers)"},
	}

	a := newTestApplier(st, nil)
	require.NoError(t, a.Apply(context.Background(), ops))

	assert.Equal(t, [][2]int{{1, 2}}, st.aliases)
	assert.Equal(t, []string{"7/Peter/3"}, st.repointed)
	assert.True(t, st.applied["merge-matts"])
	assert.True(t, st.applied["fix-peter"])

	// Re-running the same log is a no-op.
	require.NoError(t, a.Apply(context.Background(), ops))
	assert.Len(t, st.aliases, 1)
	assert.Len(t, st.repointed, 1)
}

func TestApplyQueuesCycleRejectedOpForReview(t *testing.T) {
	st := newFakeCorrectionStore()
	st.addPlayer(1, "Matts Andersson")
	st.addPlayer(2, "Mats Andersson")
	st.cycleOn = 1

	ops := []Op{
		{Name: "merge-matts", Kind: KindCreateAlias, AliasName: "Matts Andersson", CanonicalName: "Mats Andersson"},
	}

	a := newTestApplier(st, nil)
	require.NoError(t, a.Apply(context.Background(), ops))

	require.Len(t, st.reviews, 1)
	assert.Equal(t, "Matts Andersson", st.reviews[0].RawName)
	// Not marked applied: a fixed log re-runs it.
	assert.False(t, st.applied["merge-matts"])
}

func TestApplyQueuesHighOverlapMergeForReview(t *testing.T) {
	st := newFakeCorrectionStore()
	st.addPlayer(1, "Mats Andersson (SSDC)")
	st.addPlayer(2, "Mats Andersson (Dartanjang)")

	// Both identities active all season under different clubs: merging them
	// needs a human decision.
	activity := &fakeActivity{windows: map[int][]resolve.ClubWindow{
		1: {{Club: "SSDC", First: day("2023-01-01"), Last: day("2023-12-01"), Matches: 30}},
		2: {{Club: "Dartanjang", First: day("2023-01-01"), Last: day("2023-12-01"), Matches: 30}},
	}}
	a := newTestApplier(st, activity)

	ops := []Op{
		{Name: "merge-mats", Kind: KindMergeParticipants, FromPlayer: "Mats Andersson (SSDC)", IntoPlayer: "Mats Andersson (Dartanjang)"},
	}
	require.NoError(t, a.Apply(context.Background(), ops))

	assert.Empty(t, st.aliases, "high-severity overlap must block the merge")
	require.Len(t, st.reviews, 1)
	assert.False(t, st.applied["merge-mats"])
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyFailsOnUnknownPlayer(t *testing.T) {
	st := newFakeCorrectionStore()
	a := newTestApplier(st, nil)
	err := a.Apply(context.Background(), []Op{
		{Name: "bad", Kind: KindCreateAlias, AliasName: "Nobody", CanonicalName: "Anyone"},
	})
	assert.Error(t, err)
}
