// Package manifest reads and writes YAML snapshots of a dictionary: every
// word entry with its flags and shortcuts, plus the association list. A
// snapshot seeds new dictionaries through Apply; history levels and counts
// are carried for inspection but restart when applied.
package manifest

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/bastiangx/wordvault/pkg/dict"
)

// Manifest is the document layout.
type Manifest struct {
	Version    int               `yaml:"version,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Words      []Word            `yaml:"words"`
	Ngrams     []Ngram           `yaml:"ngrams,omitempty"`
}

// Word is one unigram entry.
type Word struct {
	Word      string     `yaml:"word"`
	Prob      int        `yaml:"prob"`
	Timestamp int64      `yaml:"timestamp,omitempty"`
	Level     int        `yaml:"level,omitempty"`
	Count     int        `yaml:"count,omitempty"`
	NotAWord  bool       `yaml:"not_a_word,omitempty"`
	Offensive bool       `yaml:"offensive,omitempty"`
	Bos       bool       `yaml:"bos,omitempty"`
	Shortcuts []Shortcut `yaml:"shortcuts,omitempty"`
}

// Shortcut is one alternate spelling on a word.
type Shortcut struct {
	Target string `yaml:"target"`
	Prob   int    `yaml:"prob"`
}

// Ngram is one association. Context holds the preceding words most recent
// first; bos marks a sentence-start context.
type Ngram struct {
	Context   []string `yaml:"context,omitempty,flow"`
	Bos       bool     `yaml:"bos,omitempty"`
	Target    string   `yaml:"target"`
	Prob      int      `yaml:"prob"`
	Timestamp int64    `yaml:"timestamp,omitempty"`
	Level     int      `yaml:"level,omitempty"`
	Count     int      `yaml:"count,omitempty"`
}

// Snapshot captures the full live content of an open session, sorted so
// repeated dumps of the same dictionary diff cleanly.
func Snapshot(d *dict.Dictionary) *Manifest {
	m := &Manifest{
		Version:    int(d.FormatVersion()),
		Attributes: d.Attributes(),
	}

	token := 0
	for {
		prop, next := d.GetNextWordProperty(token)
		if !prop.Valid {
			break
		}
		m.Words = append(m.Words, wordOf(prop))
		m.Ngrams = append(m.Ngrams, ngramsOf(prop)...)
		if next == 0 {
			break
		}
		token = next
	}
	// Sentence-start associations live on a pseudo entry the walk skips.
	if bos := d.GetWordProperty("", true); bos.Valid {
		m.Ngrams = append(m.Ngrams, ngramsOf(bos)...)
	}

	sort.Slice(m.Words, func(i, j int) bool { return m.Words[i].Word < m.Words[j].Word })
	sort.Slice(m.Ngrams, func(i, j int) bool { return ngramKey(m.Ngrams[i]) < ngramKey(m.Ngrams[j]) })
	return m
}

func wordOf(prop dict.WordProperty) Word {
	w := Word{
		Word:      prop.Word,
		Prob:      prop.Probability,
		NotAWord:  prop.NotAWord,
		Offensive: prop.PossiblyOffensive,
		Bos:       prop.BeginningOfSentence,
	}
	if prop.HasHistory() {
		w.Timestamp = prop.Timestamp
		w.Level = prop.Level
		w.Count = prop.Count
	}
	for _, sc := range prop.Shortcuts {
		w.Shortcuts = append(w.Shortcuts, Shortcut{Target: sc.Target, Prob: sc.Probability})
	}
	return w
}

func ngramsOf(prop dict.WordProperty) []Ngram {
	var out []Ngram
	for _, ng := range prop.Ngrams {
		entry := Ngram{
			Context: ng.Context.Words,
			Bos:     ng.Context.BeginningOfSentence,
			Target:  ng.Target,
			Prob:    ng.Probability,
		}
		if ng.Timestamp != dict.NotAValidTimestamp {
			entry.Timestamp = ng.Timestamp
			entry.Level = ng.Level
			entry.Count = ng.Count
		}
		out = append(out, entry)
	}
	return out
}

func ngramKey(ng Ngram) string {
	key := strings.Join(ng.Context, " ")
	if ng.Bos {
		key = "<s> " + key
	}
	return key + "\x00" + ng.Target
}

// Write renders a manifest as YAML.
func Write(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return enc.Close()
}

// Load parses a YAML manifest. An empty document yields an empty manifest.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		if err == io.EOF {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Applied reports what a manifest application actually landed.
type Applied struct {
	Words   int
	Ngrams  int
	Skipped int
}

// Apply writes a manifest into an open session, words first so association
// endpoints resolve. Entries the session rejects (overlong words, contexts
// naming absent words, arities the format lacks) are counted as skipped.
func Apply(d *dict.Dictionary, m *Manifest) (Applied, error) {
	var res Applied
	for _, w := range m.Words {
		// The timestamp-bearing add goes last: merging history onto the
		// shortcut adds would inflate the entry count.
		for _, sc := range w.Shortcuts {
			err := d.AddUnigram(w.Word, w.Prob, dict.UnigramOptions{
				NotAWord:            w.NotAWord,
				PossiblyOffensive:   w.Offensive,
				BeginningOfSentence: w.Bos,
				ShortcutTarget:      sc.Target,
				ShortcutProb:        sc.Prob,
			})
			if err != nil {
				return res, err
			}
		}
		err := d.AddUnigram(w.Word, w.Prob, dict.UnigramOptions{
			Timestamp:           w.Timestamp,
			NotAWord:            w.NotAWord,
			PossiblyOffensive:   w.Offensive,
			BeginningOfSentence: w.Bos,
		})
		if err != nil {
			return res, err
		}
		if d.GetFrequency(w.Word) == dict.NotAProbability {
			res.Skipped++
			continue
		}
		res.Words++
	}

	for _, ng := range m.Ngrams {
		ctx := dict.NgramContext{Words: ng.Context, BeginningOfSentence: ng.Bos}
		if err := d.AddNgram(ctx, ng.Target, ng.Prob, ng.Timestamp); err != nil {
			return res, err
		}
		if !d.IsValidNgram(ctx, ng.Target) {
			res.Skipped++
			continue
		}
		res.Ngrams++
	}

	log.Debug("Applied manifest",
		"words", res.Words,
		"ngrams", res.Ngrams,
		"skipped", res.Skipped)
	return res, nil
}
