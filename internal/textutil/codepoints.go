// Package textutil holds code point and normalization helpers shared by the
// store and the ingestion pipeline.
package textutil

import "unicode"

// MaxWordLength is the longest word the engine accepts, counted in code
// points rather than bytes.
const MaxWordLength = 48

// IsValidWordLength reports whether a code point sequence fits the engine's
// word length bounds. The empty word is reserved for the sentence marker.
func IsValidWordLength(cps []rune) bool {
	return len(cps) > 0 && len(cps) <= MaxWordLength
}

// CommonPrefixLen returns the number of leading code points shared by a and b.
func CommonPrefixLen(a, b []rune) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// ContainsDigits reports whether a token carries any numeric digits.
// Segmenters can emit mixed tokens like counters and dates; those are not
// vocabulary and never enter the dictionary.
func ContainsDigits(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
