package dict

import "github.com/bastiangx/wordvault/internal/store"

// ShortcutProperty is one alternate spelling attached to a word.
type ShortcutProperty struct {
	Target      string
	Probability int
}

// NgramProperty is one association entry owned by a word: the context it
// completes, the word it predicts and the score.
type NgramProperty struct {
	Context     NgramContext
	Target      string
	Probability int
	Timestamp   int64
	Level       int
	Count       int
}

// WordProperty is the full snapshot of one word entry. Valid is false when
// the queried word does not exist; every other field is meaningless then.
type WordProperty struct {
	Valid bool

	Word        string
	Probability int
	Timestamp   int64
	Level       int
	Count       int

	NotAWord            bool
	PossiblyOffensive   bool
	BeginningOfSentence bool

	Shortcuts []ShortcutProperty
	Ngrams    []NgramProperty
}

// HasHistory reports whether the entry carries a history record.
func (p WordProperty) HasHistory() bool {
	return p.Valid && p.Timestamp != NotAValidTimestamp
}

func wordPropertyOf(e store.Entry) WordProperty {
	p := WordProperty{
		Valid:               true,
		Word:                string(e.Word),
		Probability:         e.Prob.Prob,
		Timestamp:           e.Prob.Timestamp,
		Level:               e.Prob.Level,
		Count:               e.Prob.Count,
		NotAWord:            e.NotAWord,
		PossiblyOffensive:   e.PossiblyOffensive,
		BeginningOfSentence: e.BeginningOfSentence,
	}
	for _, sc := range e.Shortcuts {
		p.Shortcuts = append(p.Shortcuts, ShortcutProperty{
			Target:      string(sc.Target),
			Probability: sc.Prob,
		})
	}
	for _, ng := range e.Ngrams {
		ctx := NgramContext{BeginningOfSentence: ng.Context.BOS}
		for _, w := range ng.Context.Words {
			ctx.Words = append(ctx.Words, string(w))
		}
		p.Ngrams = append(p.Ngrams, NgramProperty{
			Context:     ctx,
			Target:      string(ng.Target),
			Probability: ng.Prob.Prob,
			Timestamp:   ng.Prob.Timestamp,
			Level:       ng.Prob.Level,
			Count:       ng.Prob.Count,
		})
	}
	return p
}
