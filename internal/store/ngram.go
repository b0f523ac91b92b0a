package store

import "github.com/charmbracelet/log"

// ngramEntry is one association list slot. The entry lives in the list of
// its most recent context terminal; older is noTerm for one-word contexts
// and may reference the sentence marker terminal.
type ngramEntry struct {
	older   termID
	target  termID
	prob    ProbEntry
	deleted bool
}

func (e *ngramEntry) isTrigram() bool {
	return e.older != noTerm
}

func (s *Store) incNgramCount(e *ngramEntry) {
	if e.isTrigram() {
		s.trigramCount++
	} else {
		s.bigramCount++
	}
}

func (s *Store) decNgramCount(e *ngramEntry) {
	if e.isTrigram() {
		s.trigramCount--
	} else {
		s.bigramCount--
	}
}

// ensureBos returns the sentence marker terminal, creating it on first use.
// The marker is a hidden terminal: no trie node, no probability, excluded
// from word counts and iteration.
func (s *Store) ensureBos() termID {
	if s.bos != noTerm {
		s.terms[s.bos].deleted = false
		return s.bos
	}
	t := s.newTerminal(noNode)
	term := &s.terms[t]
	term.prob = ProbEntry{Prob: NotAProbability, Timestamp: NotAValidTimestamp}
	term.notAWord = true
	term.bos = true
	s.bos = t
	return t
}

// resolveContext maps a context onto terminal ids. ensure controls whether
// the sentence marker may be created; lookups pass false so queries never
// mutate. The second id is noTerm for one-slot contexts.
func (s *Store) resolveContext(ctx Context, ensure bool) (recent, older termID, ok bool) {
	size := ctx.Size()
	if size < 1 || size > 2 {
		return noTerm, noTerm, false
	}

	if len(ctx.Words) == 0 {
		// Pure start-of-sentence context.
		if ensure {
			return s.ensureBos(), noTerm, true
		}
		if s.bos == noTerm || s.terms[s.bos].deleted {
			return noTerm, noTerm, false
		}
		return s.bos, noTerm, true
	}

	recent = s.liveTerm(ctx.Words[0])
	if recent == noTerm {
		return noTerm, noTerm, false
	}
	if size == 1 {
		return recent, noTerm, true
	}

	if len(ctx.Words) == 2 {
		older = s.liveTerm(ctx.Words[1])
		if older == noTerm {
			return noTerm, noTerm, false
		}
		return recent, older, true
	}

	// One word followed by the sentence boundary.
	if ensure {
		return recent, s.ensureBos(), true
	}
	if s.bos == noTerm || s.terms[s.bos].deleted {
		return noTerm, noTerm, false
	}
	return recent, s.bos, true
}

// AddNgram upserts an association entry for target under ctx. Every context
// word and the target must exist as live words; otherwise nothing changes.
func (s *Store) AddNgram(ctx Context, target []rune, prob ProbEntry) bool {
	targetID := s.liveTerm(target)
	if targetID == noTerm {
		log.Debugf("Ngram target %q absent, entry dropped", string(target))
		return false
	}
	recent, older, ok := s.resolveContext(ctx, true)
	if !ok {
		log.Debugf("Ngram context unresolved for target %q", string(target))
		return false
	}

	owner := &s.terms[recent]
	for i := range owner.ngrams {
		e := &owner.ngrams[i]
		if e.older != older || e.target != targetID {
			continue
		}
		if e.deleted {
			e.deleted = false
			s.deadNgrams--
			s.incNgramCount(e)
		} else if prob.HasHistorical() && e.prob.HasHistorical() {
			prob.Level = e.prob.Level
			prob.Count = e.prob.Count + 1
		}
		e.prob = prob
		s.mutations++
		return true
	}

	entry := ngramEntry{older: older, target: targetID, prob: prob}
	owner.ngrams = append(owner.ngrams, entry)
	s.incNgramCount(&entry)
	s.mutations++
	return true
}

// RemoveNgram tombstones the association entry for target under ctx.
// Removing an absent entry is a harmless no-op.
func (s *Store) RemoveNgram(ctx Context, target []rune) bool {
	e := s.findNgram(ctx, target)
	if e == nil {
		log.Debugf("Removing absent ngram entry for target %q is a no-op", string(target))
		return false
	}
	e.deleted = true
	s.deadNgrams++
	s.decNgramCount(e)
	s.mutations++
	return true
}

// NgramProbability returns the probability of the association entry for
// target under ctx, or NotAProbability.
func (s *Store) NgramProbability(ctx Context, target []rune) int {
	e := s.findNgram(ctx, target)
	if e == nil {
		return NotAProbability
	}
	return e.prob.Prob
}

// NgramProbEntry returns the full probability entry of an association.
func (s *Store) NgramProbEntry(ctx Context, target []rune) (ProbEntry, bool) {
	e := s.findNgram(ctx, target)
	if e == nil {
		return ProbEntry{}, false
	}
	return e.prob, true
}

// findNgram resolves ctx and target to the live association entry, or nil.
func (s *Store) findNgram(ctx Context, target []rune) *ngramEntry {
	targetID := s.liveTerm(target)
	if targetID == noTerm {
		return nil
	}
	recent, older, ok := s.resolveContext(ctx, false)
	if !ok {
		return nil
	}
	owner := &s.terms[recent]
	for i := range owner.ngrams {
		e := &owner.ngrams[i]
		if !e.deleted && e.older == older && e.target == targetID {
			return e
		}
	}
	return nil
}

// HasBos reports whether the sentence marker entry exists.
func (s *Store) HasBos() bool {
	return s.bos != noTerm && !s.terms[s.bos].deleted
}
