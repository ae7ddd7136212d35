package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase", "mats andersson", "Mats Andersson"},
		{"uppercase", "MATS ANDERSSON", "Mats Andersson"},
		{"mixed case", "mATS aNDERSSON", "Mats Andersson"},
		{"extra whitespace", "  mats   andersson ", "Mats Andersson"},
		{"hyphenated", "per-erik larsson", "Per-Erik Larsson"},
		{"club qualifier kept verbatim", "daniel larsson (SSDC)", "Daniel Larsson (SSDC)"},
		{"club qualifier lower kept", "daniel larsson (ssdc)", "Daniel Larsson (ssdc)"},
		{"quoted nickname", `peter "pete" svensson`, `Peter "Pete" Svensson`},
		{"single token", "peter", "Peter"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
		{"unmatched paren best effort", "mats (ssdc", "Mats (ssdc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.raw))
		})
	}
}

func TestNormalizeNameDeterministic(t *testing.T) {
	raw := "  pEr-eRik  \"Pelle\" lindqvist (Dartanjang)  "
	first := NormalizeName(raw)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, NormalizeName(raw))
	}
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("MATS ANDERSSON"), NameKey("mats andersson"))
	assert.Equal(t, "mats andersson (ssdc)", NameKey("Mats Andersson (SSDC)"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "Mats Andersson", BaseName("Mats Andersson (SSDC)"))
	assert.Equal(t, "Mats Andersson", BaseName("Mats Andersson"))
}

func TestClubQualifier(t *testing.T) {
	club, ok := ClubQualifier("Mats Andersson (SSDC)")
	assert.True(t, ok)
	assert.Equal(t, "SSDC", club)

	_, ok = ClubQualifier("Mats Andersson")
	assert.False(t, ok)

	_, ok = ClubQualifier("Mats Andersson ()")
	assert.False(t, ok)
}

func TestCleanUnicode(t *testing.T) {
	// Zero-width characters are stripped entirely.
	assert.Equal(t, "Matsandersson", NormalizeName("mats\u200bandersson"))
	assert.Equal(t, "Mats Andersson", NormalizeName("\ufeffmats andersson"))
}
