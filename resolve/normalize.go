// Package resolve decides which canonical player an incoming raw name refers
// to. It holds the name normalizer, the club-name standardizer, the decision
// pipeline and the temporal overlap detector.
package resolve

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a raw player name: whitespace collapsed, each
// token title-cased (hyphenated parts independently), parenthesized suffixes
// kept verbatim (club qualifiers), quoted nicknames kept but title-cased
// inside the quotes. Best effort on malformed input, never fails.
func NormalizeName(raw string) string {
	name := cleanUnicode(raw)
	if name == "" {
		return name
	}

	// Parenthesized suffix: "DANIEL LARSSON (SSDC)" – title-case around it,
	// keep the parenthesized club abbreviation exactly as written.
	if open := strings.IndexByte(name, '('); open >= 0 {
		if close := strings.LastIndexByte(name, ')'); close > open {
			before := titleCase(name[:open])
			paren := name[open : close+1]
			after := titleCase(name[close+1:])

			parts := make([]string, 0, 3)
			if before != "" {
				parts = append(parts, before)
			}
			parts = append(parts, paren)
			if after != "" {
				parts = append(parts, after)
			}
			return strings.Join(parts, " ")
		}
	}

	return titleCase(name)
}

// NameKey returns the case-folded comparison key for a name.
func NameKey(raw string) string {
	return strings.ToLower(NormalizeName(raw))
}

// BaseName strips a parenthesized club qualifier: "Mats Andersson (SSDC)"
// yields "Mats Andersson".
func BaseName(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}

// ClubQualifier returns the parenthesized club suffix of a name, if any.
func ClubQualifier(name string) (string, bool) {
	open := strings.IndexByte(name, '(')
	if open < 0 {
		return "", false
	}
	close := strings.LastIndexByte(name, ')')
	if close <= open {
		return "", false
	}
	club := strings.TrimSpace(name[open+1 : close])
	if club == "" {
		return "", false
	}
	return club, true
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, w := range fields {
		fields[i] = capitalizeWord(w)
	}
	return strings.Join(fields, " ")
}

// capitalizeWord title-cases one token: hyphen-delimited parts independently
// (Per-Erik, not Per-erik), quoted nicknames title-cased inside the quotes.
func capitalizeWord(w string) string {
	if strings.ContainsRune(w, '-') {
		parts := strings.Split(w, "-")
		for i, p := range parts {
			parts[i] = capitalize(p)
		}
		return strings.Join(parts, "-")
	}
	if len(w) >= 2 && strings.HasPrefix(w, `"`) && strings.HasSuffix(w, `"`) {
		return `"` + capitalize(w[1:len(w)-1]) + `"`
	}
	return capitalize(w)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

// cleanUnicode applies NFKC normalization and drops zero-width characters
// that the source occasionally embeds in names.
func cleanUnicode(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x200b && r <= 0x200f:
			return -1
		case r == 0x2060 || r == 0xfeff:
			return -1
		}
		return r
	}, s)
}
