package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldenstat/goldenstat/models"
)

// fakeLookup serves canned identities.
type fakeLookup struct {
	players map[string]models.Player // exact name -> player
	folded  map[string][]PlayerHit   // NameKey -> case-insensitive hits
}

func (f *fakeLookup) PlayerByName(_ context.Context, name string) (*models.Player, error) {
	if p, ok := f.players[name]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeLookup) FoldedMatches(_ context.Context, name string) ([]PlayerHit, error) {
	return f.folded[NameKey(name)], nil
}

func newTestResolver(lookup *fakeLookup, activity *fakeActivity) *Resolver {
	if lookup.players == nil {
		lookup.players = map[string]models.Player{}
	}
	if lookup.folded == nil {
		lookup.folded = map[string][]PlayerHit{}
	}
	if activity == nil {
		activity = &fakeActivity{}
	}
	clubs := testClubMap()
	return NewResolver(lookup, clubs, NewOverlapDetector(activity, clubs, DefaultThresholds()))
}

func TestResolveExactMatch(t *testing.T) {
	p := models.Player{ID: 1, Name: "Mats Andersson"}
	r := newTestResolver(&fakeLookup{players: map[string]models.Player{p.Name: p}}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "Mats Andersson", "")
	require.NoError(t, err)
	assert.Equal(t, ExactMatch, dec.Action)
	assert.Equal(t, 100, dec.Confidence)
	assert.Equal(t, p.ID, dec.Player.ID)
}

func TestResolveExistingOverride(t *testing.T) {
	p := models.Player{ID: 7, Name: "Peter Svensson (Oilers)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Overrides[NameKey("Peter")] = OverrideEntry{Player: p, Confidence: 92}

	dec, err := r.Resolve(context.Background(), rc, "Peter", "Oilers")
	require.NoError(t, err)
	assert.Equal(t, ExistingOverride, dec.Action)
	assert.Equal(t, 92, dec.Confidence)
	assert.Equal(t, p.ID, dec.Player.ID)
}

func TestResolveClubSpecific(t *testing.T) {
	ssdc := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	dartanjang := models.Player{ID: 2, Name: "Mats Andersson (Dartanjang)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Mats Andersson")] = []ClubVariant{
		{Player: ssdc, Club: "SSDC"},
		{Player: dartanjang, Club: "Dartanjang"},
	}

	dec, err := r.Resolve(context.Background(), rc, "mats andersson", "SSDC")
	require.NoError(t, err)
	assert.Equal(t, ClubSpecific, dec.Action)
	assert.Equal(t, 95, dec.Confidence)
	assert.Equal(t, ssdc.ID, dec.Player.ID)
}

func TestResolveExistingAlias(t *testing.T) {
	source := models.Player{ID: 3, Name: "Matts Andersson"}
	sink := models.Player{ID: 1, Name: "Mats Andersson"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Aliases[NameKey(source.Name)] = AliasEntry{Source: source, Sink: sink}

	dec, err := r.Resolve(context.Background(), rc, "Matts Andersson", "")
	require.NoError(t, err)
	assert.Equal(t, ExistingAlias, dec.Action)
	assert.Equal(t, 90, dec.Confidence)
	assert.Equal(t, sink.ID, dec.Player.ID)
}

func TestResolveAliasVetoedByOverlap(t *testing.T) {
	source := models.Player{ID: 3, Name: "Mats Andersson (SSDC)"}
	sink := models.Player{ID: 1, Name: "Mats Andersson (Dartanjang)"}
	activity := &fakeActivity{
		windows: map[int][]ClubWindow{
			source.ID: {window("SSDC", "2023-01-01", "2023-12-01", 30)},
			sink.ID:   {window("Dartanjang", "2023-01-01", "2023-12-01", 30)},
		},
	}
	r := newTestResolver(&fakeLookup{}, activity)
	rc := NewResolverContext(1)
	rc.Aliases[NameKey(source.Name)] = AliasEntry{Source: source, Sink: sink}

	dec, err := r.Resolve(context.Background(), rc, source.Name, "")
	require.NoError(t, err)
	assert.Equal(t, NeedsReview, dec.Action)
	assert.False(t, dec.AutoApply(70))
	assert.Contains(t, dec.Reason, "overlap")
}

func TestResolveCaseVariation(t *testing.T) {
	stored := models.Player{ID: 4, Name: "Mats ANDERSSON"}
	r := newTestResolver(&fakeLookup{
		folded: map[string][]PlayerHit{
			NameKey("Mats Andersson"): {{Player: stored, Participations: 12}},
		},
	}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "Mats Andersson", "")
	require.NoError(t, err)
	assert.Equal(t, CaseVariation, dec.Action)
	assert.Equal(t, 85, dec.Confidence)
	assert.Equal(t, stored.ID, dec.Player.ID)
}

func TestResolveCaseVariationPrioritized(t *testing.T) {
	smaller := models.Player{ID: 4, Name: "Mats ANDERSSON"}
	bigger := models.Player{ID: 5, Name: "MATS ANDERSSON"}
	r := newTestResolver(&fakeLookup{
		folded: map[string][]PlayerHit{
			NameKey("Mats Andersson"): {
				{Player: smaller, Participations: 2},
				{Player: bigger, Participations: 40},
			},
		},
	}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "Mats Andersson", "")
	require.NoError(t, err)
	assert.Equal(t, CaseVariationPrioritized, dec.Action)
	assert.Equal(t, 88, dec.Confidence)
	assert.Equal(t, bigger.ID, dec.Player.ID)
}

func TestResolveHyphenSpaceVariation(t *testing.T) {
	stored := models.Player{ID: 6, Name: "Jan Erik Lund"}
	r := newTestResolver(&fakeLookup{players: map[string]models.Player{stored.Name: stored}}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "Jan-Erik Lund", "")
	require.NoError(t, err)
	assert.Equal(t, HyphenSpaceVariation, dec.Action)
	assert.Equal(t, 80, dec.Confidence)
	assert.Equal(t, stored.ID, dec.Player.ID)
}

func TestResolveCreateClubVariant(t *testing.T) {
	ssdc := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Mats Andersson")] = []ClubVariant{{Player: ssdc, Club: "SSDC"}}

	dec, err := r.Resolve(context.Background(), rc, "Mats Andersson", "Oilers")
	require.NoError(t, err)
	assert.Equal(t, CreateClubVariant, dec.Action)
	assert.Equal(t, 90, dec.Confidence)
	assert.Equal(t, "Mats Andersson (Oilers)", dec.ProposedName)
}

func TestResolveClubVariantConflictGoesToReview(t *testing.T) {
	ssdc := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	activity := &fakeActivity{
		players: map[string][]models.Player{"Mats Andersson": {ssdc}},
		windows: map[int][]ClubWindow{
			ssdc.ID: {window("Oilers", "2023-01-01", "2023-12-01", 30)},
		},
	}
	r := newTestResolver(&fakeLookup{}, activity)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Mats Andersson")] = []ClubVariant{{Player: ssdc, Club: "SSDC"}}

	// Oilers already explains the stored variant's activity.
	dec, err := r.Resolve(context.Background(), rc, "Mats Andersson", "Oilers")
	require.NoError(t, err)
	assert.Equal(t, NeedsReview, dec.Action)
	assert.False(t, dec.AutoApply(70))
}

func TestResolveBaseWithVariantsNoClubContext(t *testing.T) {
	ssdc := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Mats Andersson")] = []ClubVariant{{Player: ssdc, Club: "SSDC"}}

	dec, err := r.Resolve(context.Background(), rc, "Mats Andersson", "")
	require.NoError(t, err)
	assert.Equal(t, NeedsReview, dec.Action)
}

func TestResolveBareFirstNameNeverPicksUnrelatedVariant(t *testing.T) {
	// "Peter" with several Peter Svensson variants but no Oilers one must not
	// silently land on an unrelated club's variant.
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Peter Svensson")] = []ClubVariant{
		{Player: models.Player{ID: 1, Name: "Peter Svensson (SSDC)"}, Club: "SSDC"},
		{Player: models.Player{ID: 2, Name: "Peter Svensson (Dartanjang)"}, Club: "Dartanjang"},
	}

	dec, err := r.Resolve(context.Background(), rc, "Peter", "Oilers")
	require.NoError(t, err)
	assert.NotEqual(t, ClubSpecific, dec.Action)
	assert.Equal(t, CreateNew, dec.Action)
}

func TestResolveBareFirstNameWithMatchingClubVariant(t *testing.T) {
	oilers := models.Player{ID: 3, Name: "Peter Svensson (Oilers)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Peter Svensson")] = []ClubVariant{
		{Player: models.Player{ID: 1, Name: "Peter Svensson (SSDC)"}, Club: "SSDC"},
		{Player: oilers, Club: "Oilers"},
	}

	dec, err := r.Resolve(context.Background(), rc, "Peter", "Oilers")
	require.NoError(t, err)
	assert.Equal(t, ClubSpecific, dec.Action)
	assert.Equal(t, oilers.ID, dec.Player.ID)
}

func TestResolveBareFirstNameAmbiguousAcrossBases(t *testing.T) {
	// "Peter" fits both Peter Svensson and Peter Karlsson, and each has an
	// Oilers variant. Picking either would be a coin flip, so the decision
	// goes to review, and stays the same on every call.
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Peter Svensson")] = []ClubVariant{
		{Player: models.Player{ID: 1, Name: "Peter Svensson (Oilers)"}, Club: "Oilers"},
	}
	rc.Variants[NameKey("Peter Karlsson")] = []ClubVariant{
		{Player: models.Player{ID: 2, Name: "Peter Karlsson (Oilers)"}, Club: "Oilers"},
	}

	first, err := r.Resolve(context.Background(), rc, "Peter", "Oilers")
	require.NoError(t, err)
	assert.Equal(t, NeedsReview, first.Action)
	assert.Nil(t, first.Player)
	for i := 0; i < 200; i++ {
		dec, err := r.Resolve(context.Background(), rc, "Peter", "Oilers")
		require.NoError(t, err)
		assert.Equal(t, first, dec)
	}
}

func TestResolveCreateNew(t *testing.T) {
	r := newTestResolver(&fakeLookup{}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "brand new player", "")
	require.NoError(t, err)
	assert.Equal(t, CreateNew, dec.Action)
	assert.Equal(t, 0, dec.Confidence)
	assert.Equal(t, "Brand New Player", dec.ProposedName)
	assert.True(t, dec.AutoApply(70), "creating a fresh identity is correct by construction")
}

func TestResolveEmptyName(t *testing.T) {
	r := newTestResolver(&fakeLookup{}, nil)

	dec, err := r.Resolve(context.Background(), NewResolverContext(1), "   ", "")
	require.NoError(t, err)
	assert.Equal(t, NeedsReview, dec.Action)
}

func TestResolveDeterministic(t *testing.T) {
	ssdc := models.Player{ID: 1, Name: "Mats Andersson (SSDC)"}
	r := newTestResolver(&fakeLookup{}, nil)
	rc := NewResolverContext(1)
	rc.Variants[NameKey("Mats Andersson")] = []ClubVariant{{Player: ssdc, Club: "SSDC"}}

	first, err := r.Resolve(context.Background(), rc, "mats andersson", "SSDC SL6")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		dec, err := r.Resolve(context.Background(), rc, "mats andersson", "SSDC SL6")
		require.NoError(t, err)
		assert.Equal(t, first, dec)
	}
}
