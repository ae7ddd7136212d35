package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClubMap() *ClubMap {
	return NewClubMap(map[string]string{
		"AIK":              "AIK Dart",
		"AIK Dartförening": "AIK Dart",
		"Engelen":          "HMT Dart",
	})
}

func TestStandardize(t *testing.T) {
	cm := testClubMap()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"known variant", "AIK", "AIK Dart"},
		{"known long variant", "AIK Dartförening", "AIK Dart"},
		{"case-insensitive lookup", "aik", "AIK Dart"},
		{"unknown passes through", "Oilers", "Oilers"},
		{"division paren stripped", "Dartanjang (2FB)", "Dartanjang"},
		{"superligan stripped", "Oilers Superligan", "Oilers"},
		{"sl marker stripped", "SSDC SL6", "SSDC"},
		{"ds marker stripped", "Tyresö DS", "Tyresö"},
		{"division code stripped", "Dartanjang 2FB", "Dartanjang"},
		{"variant behind marker", "Engelen (1A)", "HMT Dart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cm.Standardize(tt.raw))
		})
	}
}

func TestSameClub(t *testing.T) {
	cm := testClubMap()

	assert.True(t, cm.SameClub("AIK", "AIK Dartförening"))
	assert.True(t, cm.SameClub("Oilers Superligan", "Oilers"))
	assert.True(t, cm.SameClub("oilers", "Oilers"))
	assert.False(t, cm.SameClub("Oilers", "SSDC"))
}
