package store

import "github.com/bastiangx/wordvault/internal/textutil"

// node is one trie arena slot. The run is the path-compressed code point
// label on the edge from the parent; the root has an empty run.
type node struct {
	parent   nodeID
	run      []rune
	children []nodeID
	term     termID
}

func (s *Store) newNode(parent nodeID, run []rune) nodeID {
	id := nodeID(len(s.nodes))
	s.nodes = append(s.nodes, node{parent: parent, run: run, term: noTerm})
	return id
}

func (s *Store) newTerminal(n nodeID) termID {
	id := termID(len(s.terms))
	s.terms = append(s.terms, terminal{node: n})
	return id
}

// findChild returns the child of n whose run starts with cp, or noNode.
// Runs of siblings never share a first code point, so at most one matches.
func (s *Store) findChild(n nodeID, cp rune) nodeID {
	for _, c := range s.nodes[n].children {
		if s.nodes[c].run[0] == cp {
			return c
		}
	}
	return noNode
}

// find walks the trie and returns the terminal id stored at word, which may
// belong to a tombstoned entry. noTerm means the word has no slot at all.
func (s *Store) find(word []rune) termID {
	cur := rootNode
	i := 0
	for i < len(word) {
		child := s.findChild(cur, word[i])
		if child == noNode {
			return noTerm
		}
		run := s.nodes[child].run
		if len(word)-i < len(run) {
			return noTerm
		}
		if textutil.CommonPrefixLen(run, word[i:]) != len(run) {
			return noTerm
		}
		i += len(run)
		cur = child
	}
	return s.nodes[cur].term
}

// insert creates the trie path for word and returns its fresh terminal id.
// Callers check for an existing terminal first; insert always allocates one.
func (s *Store) insert(word []rune) termID {
	cur := rootNode
	i := 0
	for i < len(word) {
		child := s.findChild(cur, word[i])
		if child == noNode {
			leaf := s.newNode(cur, append([]rune(nil), word[i:]...))
			s.nodes[cur].children = append(s.nodes[cur].children, leaf)
			return s.makeTerminal(leaf)
		}

		run := s.nodes[child].run
		k := textutil.CommonPrefixLen(run, word[i:])
		if k == len(run) {
			cur = child
			i += k
			continue
		}

		// The word diverges inside the child's run: split the run at k. The
		// child keeps its node id and terminal, so nothing referencing it
		// needs fixing up.
		mid := s.splitNode(child, k)
		if i+k == len(word) {
			return s.makeTerminal(mid)
		}
		leaf := s.newNode(mid, append([]rune(nil), word[i+k:]...))
		s.nodes[mid].children = append(s.nodes[mid].children, leaf)
		return s.makeTerminal(leaf)
	}
	return s.makeTerminal(cur)
}

// makeTerminal attaches a fresh terminal to n, which must not have one.
func (s *Store) makeTerminal(n nodeID) termID {
	t := s.newTerminal(n)
	s.nodes[n].term = t
	return t
}

// splitNode cuts the run of child at k, inserting an intermediate node that
// takes over the first k code points and adopts child. Returns the
// intermediate node id.
func (s *Store) splitNode(child nodeID, k int) nodeID {
	parent := s.nodes[child].parent
	run := s.nodes[child].run

	mid := s.newNode(parent, append([]rune(nil), run[:k]...))
	s.nodes[mid].children = []nodeID{child}

	for i, c := range s.nodes[parent].children {
		if c == child {
			s.nodes[parent].children[i] = mid
			break
		}
	}
	s.nodes[child].parent = mid
	s.nodes[child].run = append([]rune(nil), run[k:]...)
	return mid
}

// wordOf reconstructs the code points of a terminal by climbing to the
// root. The sentence marker has no trie node and yields nil.
func (s *Store) wordOf(t termID) []rune {
	n := s.terms[t].node
	if n == noNode {
		return nil
	}
	total := 0
	for cur := n; cur != rootNode; cur = s.nodes[cur].parent {
		total += len(s.nodes[cur].run)
	}
	word := make([]rune, total)
	pos := total
	for cur := n; cur != rootNode; cur = s.nodes[cur].parent {
		run := s.nodes[cur].run
		pos -= len(run)
		copy(word[pos:], run)
	}
	return word
}
