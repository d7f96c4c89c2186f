package faces

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Zoé" -> "Zoe").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeCharacterName normalizes a character name for comparison
// (lowercase, no diacritics, spaces for dashes, trimmed).
func NormalizeCharacterName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// MatchRosterName resolves a character label returned by a service against
// the roster. Returns the canonical roster name and whether a match exists.
func MatchRosterName(label string, roster []string) (string, bool) {
	normalized := NormalizeCharacterName(label)
	if normalized == "" {
		return "", false
	}
	for _, name := range roster {
		if NormalizeCharacterName(name) == normalized {
			return name, true
		}
	}
	return "", false
}
