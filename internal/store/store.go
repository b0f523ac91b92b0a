/*
Package store implements the in-memory word store behind a dictionary
session: a code point trie with stable word handles, per-word association
lists for one and two word contexts, shortcut targets, capacity accounting
and the compacting rebuild that reclaims removed entries.

Words live in two arenas. Nodes form the trie and are addressed by index;
structural edits such as splitting a shared prefix reshuffle node indices
freely. Terminals hold everything attached to a word (probability, flags,
shortcuts, association lists) and their indices never move outside a
compaction, so association entries can reference terminal ids directly and
survive any trie edit in between.

Removal tombstones slots instead of freeing them. Plain serialization keeps
tombstones so terminal ids round-trip through a file; the compacting rebuild
drops them and renumbers.
*/
package store

import (
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/wordvault/internal/textutil"
)

// Probability bounds and sentinels shared across the engine.
const (
	// MaxProbability is the top of the probability scale.
	MaxProbability = 255
	// NotAProbability marks absent entries in probability queries.
	NotAProbability = -1
	// NotAValidTimestamp marks probability entries without history.
	NotAValidTimestamp int64 = -1
)

// Defaults applied when a capacity is left unset.
const (
	DefaultMaxUnigrams      = 12288
	DefaultMaxNgrams        = 24576
	DefaultGCBlockingWindow = 64
)

// ProbEntry is the scored part of a word or association entry. Timestamp,
// Level and Count form the optional history record; Timestamp equal to
// NotAValidTimestamp means the entry has none.
type ProbEntry struct {
	Prob      int
	Timestamp int64
	Level     int
	Count     int
}

// NewProbEntry returns an entry without history.
func NewProbEntry(prob int) ProbEntry {
	return ProbEntry{Prob: prob, Timestamp: NotAValidTimestamp}
}

// NewHistoricalProbEntry returns an entry carrying a history record.
func NewHistoricalProbEntry(prob int, timestamp int64) ProbEntry {
	return ProbEntry{Prob: prob, Timestamp: timestamp, Count: 1}
}

// HasHistorical reports whether the entry carries a history record.
func (e ProbEntry) HasHistorical() bool {
	return e.Timestamp != NotAValidTimestamp
}

// WordFlags carry the boolean attributes of a word entry.
type WordFlags struct {
	NotAWord            bool
	PossiblyOffensive   bool
	BeginningOfSentence bool
}

// Shortcut is an alternate spelling attached to a word, scored on the same
// probability scale as words.
type Shortcut struct {
	Target []rune
	Prob   int
}

// Context identifies the words preceding an association target, most recent
// first. BOS marks the slot after the listed words as a sentence boundary,
// so {Words: nil, BOS: true} is the pure start-of-sentence context and
// {Words: [w], BOS: true} means w was the first word of the sentence.
type Context struct {
	Words [][]rune
	BOS   bool
}

// Size returns the number of occupied context slots.
func (c Context) Size() int {
	n := len(c.Words)
	if c.BOS {
		n++
	}
	return n
}

// NgramAssoc is a resolved association entry as exposed to callers.
type NgramAssoc struct {
	Context Context
	Target  []rune
	Prob    ProbEntry
}

// Entry is a point-in-time snapshot of one word with everything attached to
// it. Ngrams lists the live associations in which the word is the most
// recent context.
type Entry struct {
	Word                []rune
	Prob                ProbEntry
	NotAWord            bool
	PossiblyOffensive   bool
	BeginningOfSentence bool
	Shortcuts           []Shortcut
	Ngrams              []NgramAssoc
}

// Config bounds a store. Zero fields fall back to the package defaults.
type Config struct {
	// MaxUnigrams is the word capacity enforced by compaction.
	MaxUnigrams int
	// MaxNgrams is the total association entry capacity enforced by
	// compaction, counting every context size together.
	MaxNgrams int
	// GCBlockingWindow is the number of mutations that must happen after a
	// compaction before NeedsGC may fire again when asked to respect it.
	GCBlockingWindow int
}

// DefaultConfig returns the default capacity configuration.
func DefaultConfig() Config {
	return Config{
		MaxUnigrams:      DefaultMaxUnigrams,
		MaxNgrams:        DefaultMaxNgrams,
		GCBlockingWindow: DefaultGCBlockingWindow,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxUnigrams <= 0 {
		c.MaxUnigrams = DefaultMaxUnigrams
	}
	if c.MaxNgrams <= 0 {
		c.MaxNgrams = DefaultMaxNgrams
	}
	if c.GCBlockingWindow <= 0 {
		c.GCBlockingWindow = DefaultGCBlockingWindow
	}
	return c
}

type (
	nodeID int32
	termID int32
)

const (
	noNode   nodeID = -1
	noTerm   termID = -1
	rootNode nodeID = 0
)

// Store is the mutable in-memory dictionary body. It is not safe for
// concurrent use; the session layer owns serialization.
type Store struct {
	cfg Config

	nodes []node
	terms []terminal
	bos   termID

	// norm maps exact-match keys to the terminal ids sharing them.
	norm *patricia.Trie

	unigramCount int
	bigramCount  int
	trigramCount int

	deadTerms  int
	deadNgrams int

	// mutations since the last compaction, for the GC blocking window.
	mutations int
}

// New returns an empty store bounded by cfg.
func New(cfg Config) *Store {
	s := &Store{
		cfg:  cfg.withDefaults(),
		bos:  noTerm,
		norm: newNormIndex(),
	}
	s.nodes = append(s.nodes, node{parent: noNode, term: noTerm})
	return s
}

func newNormIndex() *patricia.Trie {
	return patricia.NewTrie()
}

// ConfigOf returns the effective capacity configuration.
func (s *Store) ConfigOf() Config {
	return s.cfg
}

// UnigramCount returns the number of live words, excluding the sentence
// marker.
func (s *Store) UnigramCount() int {
	return s.unigramCount
}

// BigramCount returns the number of live one-word-context associations,
// start-of-sentence contexts included.
func (s *Store) BigramCount() int {
	return s.bigramCount
}

// TrigramCount returns the number of live two-word-context associations.
func (s *Store) TrigramCount() int {
	return s.trigramCount
}

// NgramCount returns the number of live associations across all context
// sizes.
func (s *Store) NgramCount() int {
	return s.bigramCount + s.trigramCount
}

// normKey converts a word into its exact-match index key.
func normKey(word []rune) string {
	return textutil.NormalizeForMatch(string(word))
}

func (s *Store) normAdd(word []rune, t termID) {
	key := normKey(word)
	if key == "" {
		return
	}
	prefix := patricia.Prefix(key)
	if item := s.norm.Get(prefix); item != nil {
		s.norm.Set(prefix, append(item.([]termID), t))
		return
	}
	s.norm.Insert(prefix, []termID{t})
}

// MaxProbabilityOfExactMatches returns the highest probability among live
// words that collapse to the same exact-match key as word, or
// NotAProbability when none do.
func (s *Store) MaxProbabilityOfExactMatches(word []rune) int {
	key := normKey(word)
	if key == "" {
		return NotAProbability
	}
	item := s.norm.Get(patricia.Prefix(key))
	if item == nil {
		return NotAProbability
	}
	best := NotAProbability
	for _, t := range item.([]termID) {
		term := &s.terms[t]
		if term.deleted {
			continue
		}
		if term.prob.Prob > best {
			best = term.prob.Prob
		}
	}
	return best
}
