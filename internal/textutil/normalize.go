package textutil

import (
	"strings"
	"unicode"
)

// NormalizeForMatch folds a word into the key used by the exact-match index.
// Case is folded and the optional characters apostrophe and hyphen are
// dropped, while every other code point, including spaces, stays significant.
// "Wi-Fi", "wifi" and "WIFI" share one key; "wi fi" does not.
func NormalizeForMatch(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		if r == '\'' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// EqualIgnoringMatchChars reports whether two words collapse to the same
// exact-match key.
func EqualIgnoringMatchChars(a, b string) bool {
	return NormalizeForMatch(a) == NormalizeForMatch(b)
}
