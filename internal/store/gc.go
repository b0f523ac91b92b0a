package store

import (
	"sort"

	"github.com/charmbracelet/log"
)

// CompactStats summarizes what a compaction reclaimed.
type CompactStats struct {
	EvictedUnigrams int
	EvictedNgrams   int
	DroppedEntries  int
}

// NeedsGC reports whether the store would benefit from a compaction: live
// counts close to the configured capacity, or enough tombstoned slots to be
// worth reclaiming. With respectWindow set, the check stays false until the
// configured number of mutations has happened since the last compaction, so
// callers polling after every edit do not thrash.
func (s *Store) NeedsGC(respectWindow bool) bool {
	if respectWindow && s.mutations < s.cfg.GCBlockingWindow {
		return false
	}
	if s.unigramCount*10 >= s.cfg.MaxUnigrams*9 {
		return true
	}
	if s.NgramCount()*10 >= s.cfg.MaxNgrams*9 {
		return true
	}
	slots := len(s.terms) + s.ngramSlots()
	waste := s.deadTerms + s.deadNgrams
	return waste > 0 && waste*4 >= slots
}

func (s *Store) ngramSlots() int {
	n := 0
	for i := range s.terms {
		n += len(s.terms[i].ngrams)
	}
	return n
}

type liveWord struct {
	oldID     termID
	word      []rune
	prob      ProbEntry
	flags     WordFlags
	shortcuts []Shortcut
}

type liveNgram struct {
	recent, older, target termID
	prob                  ProbEntry
}

// Compact rebuilds both arenas from the live entries, dropping tombstones
// and renumbering terminals in the old iteration order. When live counts
// exceed the configured capacities, the lowest-probability words and
// association entries are evicted until the counts fit; ties break toward
// the older slot. Every surviving entry answers queries exactly as before.
func (s *Store) Compact() CompactStats {
	words, ngrams := s.collectLive()
	oldBos := s.bos

	stats := CompactStats{
		DroppedEntries: s.deadTerms + s.deadNgrams,
	}

	if over := len(words) - s.cfg.MaxUnigrams; over > 0 {
		words, ngrams = evictWords(words, ngrams, over)
		stats.EvictedUnigrams = over
	}
	if over := len(ngrams) - s.cfg.MaxNgrams; over > 0 {
		ngrams = evictNgrams(ngrams, over)
		stats.EvictedNgrams = over
	}

	s.rebuild(words, ngrams, oldBos)

	log.Debug("Compaction finished",
		"words", s.unigramCount,
		"ngrams", s.NgramCount(),
		"evictedWords", stats.EvictedUnigrams,
		"evictedNgrams", stats.EvictedNgrams)
	return stats
}

// collectLive snapshots the live entries in arena order, with association
// endpoints still expressed in old terminal ids.
func (s *Store) collectLive() ([]liveWord, []liveNgram) {
	var words []liveWord
	for i := range s.terms {
		t := &s.terms[i]
		if t.deleted || t.node == noNode {
			continue
		}
		words = append(words, liveWord{
			oldID:     termID(i),
			word:      s.wordOf(termID(i)),
			prob:      t.prob,
			flags:     WordFlags{NotAWord: t.notAWord, PossiblyOffensive: t.offensive, BeginningOfSentence: t.bos},
			shortcuts: t.shortcuts,
		})
	}

	var ngrams []liveNgram
	for i := range s.terms {
		owner := &s.terms[i]
		if owner.deleted {
			continue
		}
		for j := range owner.ngrams {
			e := &owner.ngrams[j]
			if e.deleted {
				continue
			}
			ngrams = append(ngrams, liveNgram{
				recent: termID(i),
				older:  e.older,
				target: e.target,
				prob:   e.prob,
			})
		}
	}
	return words, ngrams
}

// evictWords drops the `over` lowest-probability words and the association
// entries that reference them.
func evictWords(words []liveWord, ngrams []liveNgram, over int) ([]liveWord, []liveNgram) {
	order := make([]int, len(words))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		wa, wb := &words[order[a]], &words[order[b]]
		if wa.prob.Prob != wb.prob.Prob {
			return wa.prob.Prob < wb.prob.Prob
		}
		return wa.oldID < wb.oldID
	})

	evicted := make(map[termID]bool, over)
	for _, idx := range order[:over] {
		evicted[words[idx].oldID] = true
	}

	keptWords := words[:0]
	for _, w := range words {
		if !evicted[w.oldID] {
			keptWords = append(keptWords, w)
		}
	}
	keptNgrams := ngrams[:0]
	for _, g := range ngrams {
		if evicted[g.recent] || evicted[g.target] || (g.older != noTerm && evicted[g.older]) {
			continue
		}
		keptNgrams = append(keptNgrams, g)
	}
	return keptWords, keptNgrams
}

// evictNgrams drops the `over` lowest-probability association entries,
// keeping collection order for equal probabilities.
func evictNgrams(ngrams []liveNgram, over int) []liveNgram {
	order := make([]int, len(ngrams))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ngrams[order[a]].prob.Prob < ngrams[order[b]].prob.Prob
	})

	drop := make(map[int]bool, over)
	for _, idx := range order[:over] {
		drop[idx] = true
	}
	kept := ngrams[:0]
	for i, g := range ngrams {
		if !drop[i] {
			kept = append(kept, g)
		}
	}
	return kept
}

// rebuild replaces the arenas with a compact image of the surviving
// entries. The sentence marker is recreated only when an association still
// references it.
func (s *Store) rebuild(words []liveWord, ngrams []liveNgram, oldBos termID) {
	s.nodes = []node{{parent: noNode, term: noTerm}}
	s.terms = nil
	s.norm = newNormIndex()
	s.bos = noTerm
	s.unigramCount = 0
	s.bigramCount = 0
	s.trigramCount = 0
	s.deadTerms = 0
	s.deadNgrams = 0
	s.mutations = 0

	remap := make(map[termID]termID, len(words)+1)
	for _, w := range words {
		t := s.insert(w.word)
		term := &s.terms[t]
		term.prob = w.prob
		term.notAWord = w.flags.NotAWord
		term.offensive = w.flags.PossiblyOffensive
		term.bos = w.flags.BeginningOfSentence
		term.shortcuts = w.shortcuts
		s.unigramCount++
		s.normAdd(w.word, t)
		remap[w.oldID] = t
	}

	if oldBos != noTerm {
		for _, g := range ngrams {
			if g.recent == oldBos || g.older == oldBos {
				remap[oldBos] = s.ensureBos()
				break
			}
		}
	}

	for _, g := range ngrams {
		recent, okRecent := remap[g.recent]
		target, okTarget := remap[g.target]
		older := noTerm
		okOlder := true
		if g.older != noTerm {
			older, okOlder = remap[g.older]
		}
		if !okRecent || !okTarget || !okOlder {
			continue
		}
		entry := ngramEntry{older: older, target: target, prob: g.prob}
		s.terms[recent].ngrams = append(s.terms[recent].ngrams, entry)
		s.incNgramCount(&entry)
	}
}
