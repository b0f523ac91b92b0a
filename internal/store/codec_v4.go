package store

import "github.com/bastiangx/wordvault/internal/format"

// Terminal flag bits in the packed trie encoding.
const (
	v4FlagNotAWord  = 1 << 0
	v4FlagOffensive = 1 << 1
	v4FlagBos       = 1 << 2
	v4FlagDeleted   = 1 << 3

	v4EntryFlagDeleted = 1 << 0
)

/*
The packed trie body serializes both arenas verbatim:

	nodeCount uint32
	node:     parent int32, term int32, run (u16 count + i32 code points),
	          childCount uint16 + child ids int32
	termCount uint32
	terminal: node int32, flags uint8, prob, shortcuts, association entries
	bos       int32

A probability is an int16 followed, on versions with history support, by a
presence byte and the (timestamp int64, level int32, count int32) record.
Tombstoned slots are written as-is so terminal ids and iteration tokens
survive a plain flush and reopen; a compacting flush has already dropped
them before encoding.
*/
func (s *Store) encodeV4(v format.Version) ([]byte, error) {
	hist := format.SupportsHistorical(v)
	ngrams := format.SupportsNgram(v)
	w := &bodyWriter{}

	w.u32(uint32(len(s.nodes)))
	for i := range s.nodes {
		n := &s.nodes[i]
		w.i32(int32(n.parent))
		w.i32(int32(n.term))
		w.runes(n.run)
		w.u16(uint16(len(n.children)))
		for _, c := range n.children {
			w.i32(int32(c))
		}
	}

	w.u32(uint32(len(s.terms)))
	for i := range s.terms {
		t := &s.terms[i]
		w.i32(int32(t.node))
		w.u8(packV4Flags(t))
		encodeProb(w, t.prob, hist)

		w.u16(uint16(len(t.shortcuts)))
		for _, sc := range t.shortcuts {
			w.runes(sc.Target)
			w.i16(int16(sc.Prob))
		}

		entries := t.ngrams
		if !ngrams {
			entries = filterTwoWordEntries(entries)
		}
		w.u32(uint32(len(entries)))
		for j := range entries {
			e := &entries[j]
			w.i32(int32(e.older))
			w.i32(int32(e.target))
			flags := uint8(0)
			if e.deleted {
				flags |= v4EntryFlagDeleted
			}
			w.u8(flags)
			encodeProb(w, e.prob, hist)
		}
	}

	w.i32(int32(s.bos))
	return w.bytesAndErr()
}

func packV4Flags(t *terminal) uint8 {
	var f uint8
	if t.notAWord {
		f |= v4FlagNotAWord
	}
	if t.offensive {
		f |= v4FlagOffensive
	}
	if t.bos {
		f |= v4FlagBos
	}
	if t.deleted {
		f |= v4FlagDeleted
	}
	return f
}

// filterTwoWordEntries drops entries a version without two-word context
// support cannot carry.
func filterTwoWordEntries(entries []ngramEntry) []ngramEntry {
	kept := make([]ngramEntry, 0, len(entries))
	for _, e := range entries {
		if e.older == noTerm {
			kept = append(kept, e)
		}
	}
	return kept
}

func encodeProb(w *bodyWriter, p ProbEntry, hist bool) {
	w.i16(int16(p.Prob))
	if !hist {
		return
	}
	if p.HasHistorical() {
		w.u8(1)
		w.i64(p.Timestamp)
		w.i32(int32(p.Level))
		w.i32(int32(p.Count))
	} else {
		w.u8(0)
	}
}

func decodeProb(r *bodyReader, hist bool) ProbEntry {
	p := ProbEntry{Prob: int(r.i16()), Timestamp: NotAValidTimestamp}
	if !hist {
		return p
	}
	if r.u8() != 0 {
		p.Timestamp = r.i64()
		p.Level = int(r.i32())
		p.Count = int(r.i32())
	}
	return p
}

func decodeV4(v format.Version, body []byte, cfg Config) (*Store, error) {
	hist := format.SupportsHistorical(v)
	r := newBodyReader(body)

	nodeCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if nodeCount < 1 || nodeCount > r.remaining() {
		return nil, corruptf("implausible node count %d", nodeCount)
	}

	s := &Store{cfg: cfg.withDefaults(), bos: noTerm}
	s.nodes = make([]node, nodeCount)
	for i := 0; i < nodeCount; i++ {
		n := &s.nodes[i]
		n.parent = nodeID(r.i32())
		n.term = termID(r.i32())
		n.run = r.runes()
		childCount := int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		if childCount > r.remaining()/4 {
			return nil, corruptf("implausible child count %d", childCount)
		}
		n.children = make([]nodeID, childCount)
		for j := 0; j < childCount; j++ {
			n.children[j] = nodeID(r.i32())
		}
	}

	termCount := int(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if termCount > r.remaining() {
		return nil, corruptf("implausible terminal count %d", termCount)
	}
	s.terms = make([]terminal, termCount)
	for i := 0; i < termCount; i++ {
		t := &s.terms[i]
		t.node = nodeID(r.i32())
		flags := r.u8()
		t.notAWord = flags&v4FlagNotAWord != 0
		t.offensive = flags&v4FlagOffensive != 0
		t.bos = flags&v4FlagBos != 0
		t.deleted = flags&v4FlagDeleted != 0
		t.prob = decodeProb(r, hist)

		scCount := int(r.u16())
		if r.err != nil {
			return nil, r.err
		}
		for j := 0; j < scCount; j++ {
			target := r.runes()
			prob := int(r.i16())
			t.shortcuts = append(t.shortcuts, Shortcut{Target: target, Prob: prob})
		}

		entryCount := int(r.u32())
		if r.err != nil {
			return nil, r.err
		}
		if entryCount > r.remaining()/11 {
			return nil, corruptf("implausible association count %d", entryCount)
		}
		t.ngrams = make([]ngramEntry, entryCount)
		for j := 0; j < entryCount; j++ {
			e := &t.ngrams[j]
			e.older = termID(r.i32())
			e.target = termID(r.i32())
			e.deleted = r.u8()&v4EntryFlagDeleted != 0
			e.prob = decodeProb(r, hist)
		}
	}

	s.bos = termID(r.i32())
	if r.err != nil {
		return nil, r.err
	}

	if err := s.validateDecoded(); err != nil {
		return nil, err
	}
	s.recountDecoded()
	return s, nil
}

// validateDecoded bounds-checks every cross-arena reference and proves each
// terminal's node chain reaches the root, so later queries cannot index out
// of range or loop on a crafted file.
func (s *Store) validateDecoded() error {
	nodeOK := func(id nodeID) bool { return id >= 0 && int(id) < len(s.nodes) }
	termOK := func(id termID) bool { return id >= 0 && int(id) < len(s.terms) }

	if s.nodes[rootNode].parent != noNode {
		return corruptf("root node has a parent")
	}
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.parent != noNode && !nodeOK(n.parent) {
			return corruptf("node %d parent out of range", i)
		}
		if n.term != noTerm && !termOK(n.term) {
			return corruptf("node %d terminal out of range", i)
		}
		for _, c := range n.children {
			if !nodeOK(c) {
				return corruptf("node %d child out of range", i)
			}
		}
	}
	for i := range s.terms {
		t := &s.terms[i]
		if t.node != noNode {
			if !nodeOK(t.node) {
				return corruptf("terminal %d node out of range", i)
			}
			steps := 0
			for cur := t.node; cur != rootNode; cur = s.nodes[cur].parent {
				if cur == noNode || !nodeOK(cur) || steps > len(s.nodes) {
					return corruptf("terminal %d does not reach the root", i)
				}
				steps++
			}
		}
		for j := range t.ngrams {
			e := &t.ngrams[j]
			if e.older != noTerm && !termOK(e.older) {
				return corruptf("association %d/%d older out of range", i, j)
			}
			if !termOK(e.target) {
				return corruptf("association %d/%d target out of range", i, j)
			}
		}
	}
	if s.bos != noTerm && !termOK(s.bos) {
		return corruptf("sentence marker out of range")
	}
	return nil
}

// recountDecoded derives counters and the exact-match index from the
// decoded arenas instead of trusting the file.
func (s *Store) recountDecoded() {
	s.norm = newNormIndex()
	s.unigramCount = 0
	s.bigramCount = 0
	s.trigramCount = 0
	s.deadTerms = 0
	s.deadNgrams = 0
	s.mutations = 0

	for i := range s.terms {
		t := &s.terms[i]
		if t.node == noNode {
			continue
		}
		if t.deleted {
			s.deadTerms++
			continue
		}
		s.unigramCount++
		s.normAdd(s.wordOf(termID(i)), termID(i))
	}
	for i := range s.terms {
		for j := range s.terms[i].ngrams {
			e := &s.terms[i].ngrams[j]
			if e.deleted {
				s.deadNgrams++
				continue
			}
			s.incNgramCount(e)
		}
	}
}
