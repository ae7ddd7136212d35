package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// divisionSuffixes match the division markers leagues append to team names:
// "Dartanjang (2FB)", "SSDC SL6", "Oilers Superligan".
var divisionSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*\([^)]*\)$`),
	regexp.MustCompile(`\s*(SL\d+|DS|\d+[A-Z]+|Superligan)$`),
}

// ClubMap standardizes club-name spelling variants to one canonical spelling.
// It is an exact lookup table, not fuzzy matching; unknown clubs pass through
// unchanged. Loaded once per run and static for its duration.
type ClubMap struct {
	variants map[string]string // lowercased variant -> standard spelling
}

// NewClubMap builds a ClubMap from a variant table.
func NewClubMap(variants map[string]string) *ClubMap {
	m := make(map[string]string, len(variants))
	for k, v := range variants {
		m[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &ClubMap{variants: m}
}

// LoadClubMap reads the standardization table from a yaml file:
//
//	clubs:
//	  AIK: AIK Dart
//	  AIK Dartförening: AIK Dart
//	  Engelen: HMT Dart
func LoadClubMap(path string) (*ClubMap, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading club map %s: %w", path, err)
	}
	return NewClubMap(v.GetStringMapString("clubs")), nil
}

// Standardize strips division markers from a raw team name and maps the
// remaining club through the variant table.
func (cm *ClubMap) Standardize(teamName string) string {
	club := cleanUnicode(teamName)
	for _, re := range divisionSuffixes {
		club = strings.TrimSpace(re.ReplaceAllString(club, ""))
	}
	if std, ok := cm.variants[strings.ToLower(club)]; ok {
		return std
	}
	return club
}

// SameClub reports whether two raw team/club strings standardize to the same
// club, compared case-insensitively.
func (cm *ClubMap) SameClub(a, b string) bool {
	return strings.EqualFold(cm.Standardize(a), cm.Standardize(b))
}
