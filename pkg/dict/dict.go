/*
Package dict implements dictionary sessions: create or open a single
dictionary file, mutate words, shortcuts and n-gram associations in memory,
then flush the whole image back through an atomic replace.

A session owns its file exclusively and is not safe for concurrent use;
callers that share one across goroutines serialize around it. Nothing is
durable until Flush or FlushWithGC succeeds; Close alone discards whatever
was not flushed.
*/
package dict

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/bastiangx/wordvault/internal/format"
	"github.com/bastiangx/wordvault/internal/store"
	"github.com/bastiangx/wordvault/internal/textutil"
)

// Version tags a dictionary file encoding.
type Version = format.Version

// The supported format versions.
const (
	VersionLegacyTesting = format.VersionLegacyTesting
	Version402           = format.Version402
	Version403           = format.Version403
	VersionCurrent       = format.VersionCurrent
)

// Probability bounds and sentinels shared with the storage layer.
const (
	MaxProbability     = store.MaxProbability
	NotAProbability    = store.NotAProbability
	NotAValidTimestamp = store.NotAValidTimestamp
	MaxWordLength      = textutil.MaxWordLength
)

// Stat query names.
const (
	StatUnigramCount    = "UNIGRAM_COUNT"
	StatBigramCount     = "BIGRAM_COUNT"
	StatTrigramCount    = "TRIGRAM_COUNT"
	StatMaxUnigramCount = format.AttrMaxUnigramCount
	StatMaxNgramCount   = format.AttrMaxNgramCount
)

// Well-known header attribute keys.
const (
	AttrLocale          = format.AttrLocale
	AttrDictionaryID    = format.AttrDictionaryID
	AttrDate            = format.AttrDate
	AttrMaxUnigramCount = format.AttrMaxUnigramCount
	AttrMaxNgramCount   = format.AttrMaxNgramCount
)

var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("dictionary is closed")
	// ErrNotUpdatable is returned by mutating operations on a read-only
	// session.
	ErrNotUpdatable = errors.New("dictionary is read-only")
	// ErrCorrupt mirrors the file-level corruption sentinel.
	ErrCorrupt = format.ErrCorrupt
	// ErrUnsupportedVersion mirrors the file-level version sentinel.
	ErrUnsupportedVersion = format.ErrUnsupportedVersion
)

// Dictionary is an open session over one dictionary file.
type Dictionary struct {
	path      string
	header    format.Header
	store     *store.Store
	updatable bool
	closed    bool
}

// Create writes a new empty dictionary file and returns the open session
// for it. The instance id and creation date go into the header attributes
// next to the locale and the persisted capacities.
func Create(path string, opts CreateOptions) (*Dictionary, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid create options: %w", err)
	}
	opts = opts.withDefaults()

	h := format.Header{
		Version: opts.Version,
		Attrs: map[string]string{
			format.AttrLocale:          opts.Locale,
			format.AttrDictionaryID:    ulid.Make().String(),
			format.AttrDate:            strconv.FormatInt(time.Now().Unix(), 10),
			format.AttrMaxUnigramCount: strconv.Itoa(opts.MaxUnigrams),
			format.AttrMaxNgramCount:   strconv.Itoa(opts.MaxNgrams),
		},
	}
	for k, v := range opts.Attributes {
		if _, reserved := h.Attrs[k]; reserved {
			log.Warnf("Attribute %q is reserved, keeping the generated value", k)
			continue
		}
		h.Attrs[k] = v
	}

	d := &Dictionary{
		path:   path,
		header: h,
		store: store.New(store.Config{
			MaxUnigrams:      opts.MaxUnigrams,
			MaxNgrams:        opts.MaxNgrams,
			GCBlockingWindow: opts.GCBlockingWindow,
		}),
		updatable: true,
	}
	if err := d.Flush(); err != nil {
		return nil, err
	}
	log.Debug("Created dictionary",
		"path", path,
		"version", int(h.Version),
		"id", h.Attrs[format.AttrDictionaryID])
	return d, nil
}

// Open loads an existing dictionary file into an updatable session.
func Open(path string) (*Dictionary, error) {
	return OpenWith(path, SessionOptions{})
}

// OpenWith loads an existing dictionary file with session tuning.
func OpenWith(path string, opts SessionOptions) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	h, body, err := format.DecodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dictionary %s: %w", path, err)
	}

	window := opts.GCBlockingWindow
	if window == 0 {
		window = store.DefaultGCBlockingWindow
	}
	cfg := store.Config{
		MaxUnigrams:      attrInt(h, format.AttrMaxUnigramCount, store.DefaultMaxUnigrams),
		MaxNgrams:        attrInt(h, format.AttrMaxNgramCount, store.DefaultMaxNgrams),
		GCBlockingWindow: window,
	}
	s, err := store.DecodeBody(h.Version, body, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dictionary %s: %w", path, err)
	}

	log.Debug("Opened dictionary",
		"path", path,
		"version", int(h.Version),
		"words", s.UnigramCount(),
		"readOnly", opts.ReadOnly)
	return &Dictionary{path: path, header: h, store: s, updatable: !opts.ReadOnly}, nil
}

func attrInt(h format.Header, key string, fallback int) int {
	v, ok := h.Attrs[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warnf("Attribute %s has malformed value %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// usable reports whether value-returning queries may run. Closed sessions
// report their invalid marker instead of crashing.
func (d *Dictionary) usable() bool {
	if d.closed || d.store == nil {
		log.Errorf("Query on closed dictionary %s", d.path)
		return false
	}
	return true
}

func (d *Dictionary) mutable() error {
	if d.closed || d.store == nil {
		return ErrClosed
	}
	if !d.updatable {
		return ErrNotUpdatable
	}
	return nil
}

func clampProbability(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxProbability {
		return MaxProbability
	}
	return p
}

func probEntryFor(prob int, timestamp int64) store.ProbEntry {
	if timestamp > 0 {
		return store.NewHistoricalProbEntry(prob, timestamp)
	}
	return store.NewProbEntry(prob)
}

// AddUnigram upserts a word entry. Words over the length limit are dropped
// silently; an over-long shortcut target is dropped while the word itself
// still applies. Probabilities clamp into the valid range.
func (d *Dictionary) AddUnigram(word string, prob int, opt UnigramOptions) error {
	if err := d.mutable(); err != nil {
		return err
	}
	entry := probEntryFor(clampProbability(prob), opt.Timestamp)
	flags := store.WordFlags{
		NotAWord:            opt.NotAWord,
		PossiblyOffensive:   opt.PossiblyOffensive,
		BeginningOfSentence: opt.BeginningOfSentence,
	}
	if !d.store.AddWord([]rune(word), entry, flags) {
		return nil
	}
	if opt.ShortcutTarget != "" {
		d.store.AddShortcut([]rune(word), []rune(opt.ShortcutTarget), clampProbability(opt.ShortcutProb))
	}
	return nil
}

// RemoveUnigram removes a word entry along with every association that
// references it. Removing an absent word is a no-op.
func (d *Dictionary) RemoveUnigram(word string) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.store.RemoveWord([]rune(word))
	return nil
}

// GetFrequency returns the probability of a word, or NotAProbability.
func (d *Dictionary) GetFrequency(word string) int {
	if !d.usable() {
		return NotAProbability
	}
	return d.store.Probability([]rune(word))
}

// GetMaxFrequencyOfExactMatches returns the highest probability among the
// words that match under case folding and apostrophe/hyphen stripping.
// Embedded spaces stay significant.
func (d *Dictionary) GetMaxFrequencyOfExactMatches(word string) int {
	if !d.usable() {
		return NotAProbability
	}
	return d.store.MaxProbabilityOfExactMatches([]rune(word))
}

// supportsContext reports whether the session's format version can carry
// the given context depth.
func (d *Dictionary) supportsContext(ctx NgramContext) bool {
	return ctx.size() < 2 || format.SupportsNgram(d.header.Version)
}

// AddNgram upserts an association entry for target after ctx. Context words
// and the target must already exist as words; two-word contexts need a
// format version that can carry them. Anything else is a silent no-op.
func (d *Dictionary) AddNgram(ctx NgramContext, target string, prob int, timestamp int64) error {
	if err := d.mutable(); err != nil {
		return err
	}
	if !d.supportsContext(ctx) {
		log.Debugf("Version %d cannot carry two-word contexts, entry for %q dropped", int(d.header.Version), target)
		return nil
	}
	d.store.AddNgram(ctx.toStore(), []rune(target), probEntryFor(clampProbability(prob), timestamp))
	return nil
}

// RemoveNgram removes the association entry for target after ctx. Removing
// an absent entry is a no-op.
func (d *Dictionary) RemoveNgram(ctx NgramContext, target string) error {
	if err := d.mutable(); err != nil {
		return err
	}
	d.store.RemoveNgram(ctx.toStore(), []rune(target))
	return nil
}

// GetNgramProbability returns the probability of the association entry for
// target after ctx, or NotAProbability.
func (d *Dictionary) GetNgramProbability(ctx NgramContext, target string) int {
	if !d.usable() {
		return NotAProbability
	}
	if !d.supportsContext(ctx) {
		return NotAProbability
	}
	return d.store.NgramProbability(ctx.toStore(), []rune(target))
}

// IsValidNgram reports whether the association entry exists.
func (d *Dictionary) IsValidNgram(ctx NgramContext, target string) bool {
	return d.GetNgramProbability(ctx, target) != NotAProbability
}

// GetWordProperty snapshots a word entry. With bos set and an empty word it
// addresses the beginning-of-sentence entry.
func (d *Dictionary) GetWordProperty(word string, bos bool) WordProperty {
	if !d.usable() {
		return WordProperty{}
	}
	e, ok := d.store.WordEntry([]rune(word), bos)
	if !ok {
		return WordProperty{}
	}
	return wordPropertyOf(e)
}

// GetNextWordProperty iterates the live word entries. Token 0 starts; the
// returned token continues the walk and 0 again means the walk is done.
// Every live word is yielded exactly once, in no particular order.
func (d *Dictionary) GetNextWordProperty(token int) (WordProperty, int) {
	if !d.usable() {
		return WordProperty{}, 0
	}
	e, next := d.store.NextEntry(token)
	if e.Word == nil {
		return WordProperty{}, 0
	}
	return wordPropertyOf(e), next
}

// NeedsGC reports whether a compacting flush would reclaim enough to be
// worth it. With respectBlockingWindow set the check stays false right
// after a compaction.
func (d *Dictionary) NeedsGC(respectBlockingWindow bool) bool {
	if !d.usable() {
		return false
	}
	return d.store.NeedsGC(respectBlockingWindow)
}

// Stat answers the named statistics query as a string-encoded integer, or
// "" for unknown queries.
func (d *Dictionary) Stat(query string) string {
	if !d.usable() {
		return ""
	}
	switch query {
	case StatUnigramCount:
		return strconv.Itoa(d.store.UnigramCount())
	case StatBigramCount:
		return strconv.Itoa(d.store.BigramCount())
	case StatTrigramCount:
		return strconv.Itoa(d.store.TrigramCount())
	case StatMaxUnigramCount:
		return strconv.Itoa(d.store.ConfigOf().MaxUnigrams)
	case StatMaxNgramCount:
		return strconv.Itoa(d.store.ConfigOf().MaxNgrams)
	}
	log.Debugf("Unknown stat query %q", query)
	return ""
}

// Flush writes the current image to the dictionary file through an atomic
// replace. Tombstoned slots are kept, so iteration tokens stay valid across
// a flush and reopen.
func (d *Dictionary) Flush() error {
	if err := d.mutable(); err != nil {
		return err
	}
	if err := d.persist(d.header); err != nil {
		return err
	}
	log.Debug("Flushed dictionary", "path", d.path, "words", d.store.UnigramCount())
	return nil
}

// FlushWithGC compacts the store and writes the rebuilt image. Iteration
// tokens from before the call are invalidated.
func (d *Dictionary) FlushWithGC() error {
	if err := d.mutable(); err != nil {
		return err
	}
	stats := d.store.Compact()
	if err := d.persist(d.header); err != nil {
		return err
	}
	log.Debug("Flushed dictionary with GC",
		"path", d.path,
		"words", d.store.UnigramCount(),
		"evictedWords", stats.EvictedUnigrams,
		"evictedNgrams", stats.EvictedNgrams,
		"dropped", stats.DroppedEntries)
	return nil
}

func (d *Dictionary) persist(h format.Header) error {
	body, err := d.store.EncodeBody(h.Version)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary body: %w", err)
	}
	data, err := format.EncodeFile(h, body)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary file: %w", err)
	}
	if err := format.WriteFileAtomic(d.path, data); err != nil {
		return fmt.Errorf("failed to write dictionary %s: %w", d.path, err)
	}
	return nil
}

// Close releases the session without flushing. Unflushed mutations are
// lost.
func (d *Dictionary) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	d.store = nil
	log.Debug("Closed dictionary", "path", d.path)
	return nil
}

// IsValid reports whether the session is open and usable.
func (d *Dictionary) IsValid() bool {
	return !d.closed && d.store != nil
}

// Updatable reports whether the session accepts mutations.
func (d *Dictionary) Updatable() bool {
	return d.IsValid() && d.updatable
}

// FormatVersion returns the session's on-disk format version.
func (d *Dictionary) FormatVersion() Version {
	return d.header.Version
}

// Path returns the dictionary file path.
func (d *Dictionary) Path() string {
	return d.path
}

// Attribute returns a header attribute value, or "".
func (d *Dictionary) Attribute(key string) string {
	return d.header.Attrs[key]
}

// Attributes returns a copy of the header attribute table.
func (d *Dictionary) Attributes() map[string]string {
	attrs := make(map[string]string, len(d.header.Attrs))
	for k, v := range d.header.Attrs {
		attrs[k] = v
	}
	return attrs
}
