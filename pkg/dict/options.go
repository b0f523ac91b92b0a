package dict

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/bastiangx/wordvault/internal/format"
	"github.com/bastiangx/wordvault/internal/store"
)

// CreateOptions parameterizes a new dictionary file. Zero values fall back
// to the current format version and the default capacities.
type CreateOptions struct {
	// Version selects the on-disk encoding; 0 means VersionCurrent.
	Version Version
	// Locale is stored as a header attribute and never interpreted.
	Locale string

	MaxUnigrams      int
	MaxNgrams        int
	GCBlockingWindow int

	// Attributes adds extra header attributes. Reserved keys are skipped.
	Attributes map[string]string
}

// Validate checks the option values before any file is touched.
func (o CreateOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Version, validation.By(func(value interface{}) error {
			v := value.(Version)
			if v != 0 && !format.Valid(v) {
				return fmt.Errorf("unsupported version %d", v)
			}
			return nil
		})),
		validation.Field(&o.Locale, validation.Length(0, 32)),
		validation.Field(&o.MaxUnigrams, validation.Min(0)),
		validation.Field(&o.MaxNgrams, validation.Min(0)),
		validation.Field(&o.GCBlockingWindow, validation.Min(0)),
	)
}

func (o CreateOptions) withDefaults() CreateOptions {
	if o.Version == 0 {
		o.Version = VersionCurrent
	}
	if o.MaxUnigrams == 0 {
		o.MaxUnigrams = store.DefaultMaxUnigrams
	}
	if o.MaxNgrams == 0 {
		o.MaxNgrams = store.DefaultMaxNgrams
	}
	if o.GCBlockingWindow == 0 {
		o.GCBlockingWindow = store.DefaultGCBlockingWindow
	}
	return o
}

// SessionOptions tunes how an existing dictionary file is opened. The
// capacities always come from the file's own header attributes.
type SessionOptions struct {
	// ReadOnly opens a session whose mutating operations fail with
	// ErrNotUpdatable.
	ReadOnly bool
	// GCBlockingWindow overrides the default anti-thrash window; 0 keeps
	// the default.
	GCBlockingWindow int
}

// UnigramOptions carries the optional parts of a word entry.
type UnigramOptions struct {
	// Timestamp attaches a history record when positive; zero or negative
	// leaves the entry without one.
	Timestamp int64

	NotAWord            bool
	PossiblyOffensive   bool
	BeginningOfSentence bool

	// ShortcutTarget, when non-empty, upserts one alternate spelling with
	// ShortcutProb alongside the word.
	ShortcutTarget string
	ShortcutProb   int
}

// NgramContext names the 1-2 words preceding a target, most recent first.
// BeginningOfSentence puts the sentence boundary in the slot after Words:
// no words means the boundary itself is the context, one word means the
// word opened the sentence.
type NgramContext struct {
	Words               []string
	BeginningOfSentence bool
}

// BigramContext is the one-word context before a target.
func BigramContext(prev string) NgramContext {
	return NgramContext{Words: []string{prev}}
}

// TrigramContext is the two-word context before a target, most recent
// first: TrigramContext("b", "a") describes the phrase "a b".
func TrigramContext(prev, prevPrev string) NgramContext {
	return NgramContext{Words: []string{prev, prevPrev}}
}

// BeginningOfSentenceContext marks a target as sentence-initial.
func BeginningOfSentenceContext() NgramContext {
	return NgramContext{BeginningOfSentence: true}
}

func (c NgramContext) size() int {
	n := len(c.Words)
	if c.BeginningOfSentence {
		n++
	}
	return n
}

func (c NgramContext) toStore() store.Context {
	ctx := store.Context{BOS: c.BeginningOfSentence}
	for _, w := range c.Words {
		ctx.Words = append(ctx.Words, []rune(w))
	}
	return ctx
}
