package store

import (
	"github.com/charmbracelet/log"

	"github.com/bastiangx/wordvault/internal/textutil"
)

// terminal is one word arena slot. Association entries reference terminals
// by arena index, so slots are tombstoned in place and only a compaction
// renumbers them.
type terminal struct {
	node      nodeID
	prob      ProbEntry
	notAWord  bool
	offensive bool
	bos       bool
	deleted   bool
	shortcuts []Shortcut
	// ngrams are the associations in which this terminal is the most recent
	// context word.
	ngrams []ngramEntry
}

// AddWord upserts a word entry. Re-adding overwrites the probability entry
// and flags while keeping shortcuts and associations. Words outside the
// length bounds are rejected and nothing changes.
func (s *Store) AddWord(word []rune, prob ProbEntry, flags WordFlags) bool {
	if !textutil.IsValidWordLength(word) {
		log.Debugf("Rejecting word entry with %d code points", len(word))
		return false
	}

	t := s.find(word)
	if t == noTerm {
		t = s.insert(word)
		term := &s.terms[t]
		term.prob = prob
		term.notAWord = flags.NotAWord
		term.offensive = flags.PossiblyOffensive
		term.bos = flags.BeginningOfSentence
		s.unigramCount++
		s.normAdd(word, t)
		s.mutations++
		return true
	}

	term := &s.terms[t]
	if term.deleted {
		// Revive the slot as a fresh word. Shortcuts from the removed entry
		// stay gone; tombstoned associations stay tombstoned.
		term.deleted = false
		term.shortcuts = nil
		s.deadTerms--
		s.unigramCount++
	} else if prob.HasHistorical() && term.prob.HasHistorical() {
		prob.Level = term.prob.Level
		prob.Count = term.prob.Count + 1
	}
	term.prob = prob
	term.notAWord = flags.NotAWord
	term.offensive = flags.PossiblyOffensive
	term.bos = flags.BeginningOfSentence
	s.mutations++
	return true
}

// AddShortcut upserts a shortcut target on an existing word. Targets outside
// the length bounds are dropped without touching the word entry.
func (s *Store) AddShortcut(word, target []rune, prob int) bool {
	t := s.liveTerm(word)
	if t == noTerm {
		log.Debugf("Shortcut for absent word %q dropped", string(word))
		return false
	}
	if !textutil.IsValidWordLength(target) {
		log.Debugf("Rejecting shortcut target with %d code points", len(target))
		return false
	}

	term := &s.terms[t]
	for i := range term.shortcuts {
		if string(term.shortcuts[i].Target) == string(target) {
			term.shortcuts[i].Prob = prob
			s.mutations++
			return true
		}
	}
	term.shortcuts = append(term.shortcuts, Shortcut{
		Target: append([]rune(nil), target...),
		Prob:   prob,
	})
	s.mutations++
	return true
}

// RemoveWord tombstones a word entry and every association that references
// it as context or target. Absent words are a no-op.
func (s *Store) RemoveWord(word []rune) bool {
	t := s.liveTerm(word)
	if t == noTerm {
		log.Debugf("Removing absent word %q is a no-op", string(word))
		return false
	}

	s.terms[t].deleted = true
	s.deadTerms++
	s.unigramCount--
	s.dropDependents(t)
	s.mutations++
	return true
}

// dropDependents tombstones every live association entry that references t,
// whether as list owner, older context or target.
func (s *Store) dropDependents(t termID) {
	for i := range s.terms {
		owner := &s.terms[i]
		for j := range owner.ngrams {
			e := &owner.ngrams[j]
			if e.deleted {
				continue
			}
			if termID(i) == t || e.older == t || e.target == t {
				e.deleted = true
				s.deadNgrams++
				s.decNgramCount(e)
			}
		}
	}
}

// liveTerm resolves a word to its terminal id, treating tombstones as
// absent.
func (s *Store) liveTerm(word []rune) termID {
	t := s.find(word)
	if t == noTerm || s.terms[t].deleted {
		return noTerm
	}
	return t
}

// Probability returns the probability of a live word, or NotAProbability.
func (s *Store) Probability(word []rune) int {
	t := s.liveTerm(word)
	if t == noTerm {
		return NotAProbability
	}
	return s.terms[t].prob.Prob
}

// ProbEntryOf returns the full probability entry of a live word.
func (s *Store) ProbEntryOf(word []rune) (ProbEntry, bool) {
	t := s.liveTerm(word)
	if t == noTerm {
		return ProbEntry{}, false
	}
	return s.terms[t].prob, true
}

// WordEntry snapshots a live word. With bos set and an empty word it
// addresses the sentence marker entry.
func (s *Store) WordEntry(word []rune, bos bool) (Entry, bool) {
	if bos && len(word) == 0 {
		if s.bos == noTerm || s.terms[s.bos].deleted {
			return Entry{}, false
		}
		return s.entryOf(s.bos), true
	}
	t := s.liveTerm(word)
	if t == noTerm {
		return Entry{}, false
	}
	return s.entryOf(t), true
}

// entryOf assembles the snapshot for a terminal, resolving association
// endpoints back into words.
func (s *Store) entryOf(t termID) Entry {
	term := &s.terms[t]
	e := Entry{
		Word:                s.wordOf(t),
		Prob:                term.prob,
		NotAWord:            term.notAWord,
		PossiblyOffensive:   term.offensive,
		BeginningOfSentence: term.bos,
	}
	if len(term.shortcuts) > 0 {
		e.Shortcuts = make([]Shortcut, len(term.shortcuts))
		for i, sc := range term.shortcuts {
			e.Shortcuts[i] = Shortcut{Target: append([]rune(nil), sc.Target...), Prob: sc.Prob}
		}
	}
	for i := range term.ngrams {
		ne := &term.ngrams[i]
		if ne.deleted {
			continue
		}
		e.Ngrams = append(e.Ngrams, NgramAssoc{
			Context: s.contextOf(t, ne.older),
			Target:  s.wordOf(ne.target),
			Prob:    ne.prob,
		})
	}
	return e
}

// contextOf renders the context of an association owned by recent, most
// recent word first.
func (s *Store) contextOf(recent, older termID) Context {
	var ctx Context
	if recent == s.bos {
		ctx.BOS = true
	} else {
		ctx.Words = append(ctx.Words, s.wordOf(recent))
	}
	if older != noTerm {
		if older == s.bos {
			ctx.BOS = true
		} else {
			ctx.Words = append(ctx.Words, s.wordOf(older))
		}
	}
	return ctx
}
