package store

// NextEntry iterates live words by token. The token addresses an arena
// position; 0 starts iteration and a returned token of 0 means the entry
// just returned was the last one. Tombstoned slots and the sentence marker
// are skipped, so a full loop visits every live word exactly once.
//
// Tokens stay valid across a plain flush and reopen because plain
// serialization preserves arena positions. A compaction renumbers and
// invalidates outstanding tokens.
func (s *Store) NextEntry(token int) (Entry, int) {
	if token < 0 {
		return Entry{}, 0
	}
	idx := s.nextLive(token)
	if idx < 0 {
		return Entry{}, 0
	}
	entry := s.entryOf(termID(idx))
	next := s.nextLive(idx + 1)
	if next < 0 {
		return entry, 0
	}
	return entry, next
}

func (s *Store) nextLive(from int) int {
	for i := from; i < len(s.terms); i++ {
		t := &s.terms[i]
		// The sentence marker is the only terminal without a trie node.
		if !t.deleted && t.node != noNode {
			return i
		}
	}
	return -1
}
