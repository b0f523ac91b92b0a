// Package ingest turns raw text corpora into dictionary entries.
package ingest

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/bastiangx/wordvault/internal/textutil"
)

// Tokenizer splits raw text into sentences of word tokens.
type Tokenizer interface {
	Sentences(text string) [][]string
}

// NewTokenizer picks a tokenizer for a locale. Japanese locales get the
// morphological segmenter, everything else the space-delimited one.
func NewTokenizer(locale string) (Tokenizer, error) {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "_-"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "ja" {
		return NewKagomeTokenizer()
	}
	return LatinTokenizer{}, nil
}

// LatinTokenizer segments space-delimited scripts. Words are lowercased;
// interior apostrophes and hyphens are kept.
type LatinTokenizer struct{}

func (LatinTokenizer) Sentences(text string) [][]string {
	var sentences [][]string
	var current []string
	var word strings.Builder

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		w := strings.ToLower(word.String())
		word.Reset()
		if len([]rune(w)) > textutil.MaxWordLength {
			return
		}
		current = append(current, w)
	}
	flushSentence := func() {
		flushWord()
		if len(current) > 0 {
			sentences = append(sentences, current)
			current = nil
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r):
			word.WriteRune(r)
		case (r == '\'' || r == '-') && word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			word.WriteRune(r)
		case r == '.' || r == '!' || r == '?' || r == '\n':
			flushSentence()
		default:
			flushWord()
		}
	}
	flushSentence()
	return sentences
}

// KagomeTokenizer segments Japanese text with the IPA morphological
// dictionary.
type KagomeTokenizer struct {
	t *tokenizer.Tokenizer
}

func NewKagomeTokenizer() (*KagomeTokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &KagomeTokenizer{t: t}, nil
}

func (k *KagomeTokenizer) Sentences(text string) [][]string {
	var sentences [][]string
	for _, sentence := range splitJapanese(text) {
		var words []string
		for _, token := range k.t.Tokenize(sentence) {
			if token.Class == tokenizer.DUMMY {
				continue
			}
			surface := strings.TrimSpace(token.Surface)
			if surface == "" || !hasWordRune(surface) {
				continue
			}
			if textutil.ContainsDigits(surface) {
				continue
			}
			if len([]rune(surface)) > textutil.MaxWordLength {
				continue
			}
			words = append(words, surface)
		}
		if len(words) > 0 {
			sentences = append(sentences, words)
		}
	}
	return sentences
}

// splitJapanese breaks on the common Japanese sentence delimiters and
// newlines.
func splitJapanese(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// hasWordRune filters punctuation-only tokens out of the segmenter output
func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
