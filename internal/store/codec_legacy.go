package store

/*
The legacy body is a flat record list: live words in arena order, then live
one-slot association entries referencing words by list position, with -1
standing for the sentence marker. No trie structure, no tombstones, no
history records and no two-word contexts. Files at this version only exist
for compatibility with early builds, so the decoder rebuilds the trie by
re-inserting every record.
*/

const (
	legacyFlagNotAWord  = 1 << 0
	legacyFlagOffensive = 1 << 1
	legacyFlagBos       = 1 << 2

	legacyBosRef int32 = -1
)

func (s *Store) encodeLegacy() ([]byte, error) {
	w := &bodyWriter{}

	index := make(map[termID]int32, s.unigramCount)
	var live []termID
	for i := range s.terms {
		t := &s.terms[i]
		if t.deleted || t.node == noNode {
			continue
		}
		index[termID(i)] = int32(len(live))
		live = append(live, termID(i))
	}

	w.u32(uint32(len(live)))
	for _, id := range live {
		t := &s.terms[id]
		w.runes(s.wordOf(id))
		w.i16(int16(t.prob.Prob))
		var flags uint8
		if t.notAWord {
			flags |= legacyFlagNotAWord
		}
		if t.offensive {
			flags |= legacyFlagOffensive
		}
		if t.bos {
			flags |= legacyFlagBos
		}
		w.u8(flags)
		w.u16(uint16(len(t.shortcuts)))
		for _, sc := range t.shortcuts {
			w.runes(sc.Target)
			w.i16(int16(sc.Prob))
		}
	}

	if s.HasBos() {
		w.u8(1)
	} else {
		w.u8(0)
	}

	type flatEntry struct {
		recent, target int32
		prob           int16
	}
	var entries []flatEntry
	for i := range s.terms {
		owner := &s.terms[i]
		if owner.deleted {
			continue
		}
		recent := legacyBosRef
		if owner.node != noNode {
			idx, ok := index[termID(i)]
			if !ok {
				continue
			}
			recent = idx
		}
		for j := range owner.ngrams {
			e := &owner.ngrams[j]
			if e.deleted || e.older != noTerm {
				continue
			}
			target, ok := index[e.target]
			if !ok {
				continue
			}
			entries = append(entries, flatEntry{recent: recent, target: target, prob: int16(e.prob.Prob)})
		}
	}

	w.u32(uint32(len(entries)))
	for _, e := range entries {
		w.i32(e.recent)
		w.i32(e.target)
		w.i16(e.prob)
	}
	return w.bytesAndErr()
}

func decodeLegacy(body []byte, cfg Config) (*Store, error) {
	r := newBodyReader(body)
	s := New(cfg)

	wordCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if wordCount > r.remaining() {
		return nil, corruptf("implausible word count %d", wordCount)
	}

	ids := make([]termID, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		word := r.runes()
		prob := int(r.i16())
		flags := r.u8()
		scCount := int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		ok := s.AddWord(word, NewProbEntry(prob), WordFlags{
			NotAWord:            flags&legacyFlagNotAWord != 0,
			PossiblyOffensive:   flags&legacyFlagOffensive != 0,
			BeginningOfSentence: flags&legacyFlagBos != 0,
		})
		if !ok {
			return nil, corruptf("word record %d rejected", i)
		}
		id := s.liveTerm(word)
		ids = append(ids, id)
		for j := 0; j < scCount; j++ {
			target := r.runes()
			scProb := int(r.i16())
			if r.err != nil {
				return nil, r.err
			}
			if !s.AddShortcut(word, target, scProb) {
				return nil, corruptf("shortcut record %d/%d rejected", i, j)
			}
		}
	}

	if r.u8() != 0 {
		s.ensureBos()
	}

	entryCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if entryCount > r.remaining()/10 {
		return nil, corruptf("implausible association count %d", entryCount)
	}
	for i := 0; i < entryCount; i++ {
		recentRef := r.i32()
		targetRef := r.i32()
		prob := int(r.i16())
		if r.err != nil {
			return nil, r.err
		}

		var recent termID
		if recentRef == legacyBosRef {
			if !s.HasBos() {
				return nil, corruptf("association %d references a missing sentence marker", i)
			}
			recent = s.bos
		} else {
			if recentRef < 0 || int(recentRef) >= len(ids) {
				return nil, corruptf("association %d context out of range", i)
			}
			recent = ids[recentRef]
		}
		if targetRef < 0 || int(targetRef) >= len(ids) {
			return nil, corruptf("association %d target out of range", i)
		}

		entry := ngramEntry{older: noTerm, target: ids[targetRef], prob: NewProbEntry(prob)}
		s.terms[recent].ngrams = append(s.terms[recent].ngrams, entry)
		s.incNgramCount(&entry)
	}

	if r.err != nil {
		return nil, r.err
	}
	s.mutations = 0
	return s, nil
}
