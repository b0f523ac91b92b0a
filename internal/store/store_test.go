package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *Store {
	return New(DefaultConfig())
}

func addWord(t *testing.T, s *Store, word string, prob int) {
	t.Helper()
	require.True(t, s.AddWord([]rune(word), NewProbEntry(prob), WordFlags{}), "AddWord(%q)", word)
}

func TestAddWordAndProbability(t *testing.T) {
	s := testStore()

	// Exercise every structural edit: fresh branch, branch split, terminal
	// promotion on an existing node, child creation under a terminal and a
	// split that lands exactly on the word end.
	words := []struct {
		word string
		prob int
	}{
		{"aaa", 100},
		{"abc", 10},
		{"aab", 20},
		{"aabbcc", 30},
		{"aa", 40},
		{"aaaa", 50},
		{"ab", 60},
	}
	for _, w := range words {
		addWord(t, s, w.word, w.prob)
	}
	for _, w := range words {
		assert.Equal(t, w.prob, s.Probability([]rune(w.word)), "word %q", w.word)
	}

	assert.Equal(t, NotAProbability, s.Probability([]rune("aabb")))
	assert.Equal(t, NotAProbability, s.Probability([]rune("a")))
	assert.Equal(t, NotAProbability, s.Probability([]rune("zzz")))
	assert.Equal(t, len(words), s.UnigramCount())
}

func TestAddWordOverwrites(t *testing.T) {
	s := testStore()
	addWord(t, s, "hello", 10)
	addWord(t, s, "hello", 200)

	assert.Equal(t, 200, s.Probability([]rune("hello")))
	assert.Equal(t, 1, s.UnigramCount())
}

func TestAddWordRejectsInvalidLength(t *testing.T) {
	s := testStore()

	long := make([]rune, 49)
	for i := range long {
		long[i] = 'x'
	}
	assert.False(t, s.AddWord(long, NewProbEntry(10), WordFlags{}))
	assert.Equal(t, NotAProbability, s.Probability(long))
	assert.False(t, s.AddWord(nil, NewProbEntry(10), WordFlags{}))
	assert.Equal(t, 0, s.UnigramCount())

	ok := make([]rune, 48)
	for i := range ok {
		ok[i] = 'x'
	}
	assert.True(t, s.AddWord(ok, NewProbEntry(10), WordFlags{}))
	assert.Equal(t, 10, s.Probability(ok))
}

func TestRemoveWord(t *testing.T) {
	s := testStore()
	addWord(t, s, "keep", 50)
	addWord(t, s, "drop", 60)

	assert.True(t, s.RemoveWord([]rune("drop")))
	assert.Equal(t, NotAProbability, s.Probability([]rune("drop")))
	assert.Equal(t, 50, s.Probability([]rune("keep")))
	assert.Equal(t, 1, s.UnigramCount())

	// Absent and already-removed words are no-ops.
	assert.False(t, s.RemoveWord([]rune("drop")))
	assert.False(t, s.RemoveWord([]rune("never")))

	// Re-adding revives the slot as a fresh entry.
	addWord(t, s, "drop", 70)
	assert.Equal(t, 70, s.Probability([]rune("drop")))
	assert.Equal(t, 2, s.UnigramCount())
}

func TestRemoveWordClearsShortcutsOnRevive(t *testing.T) {
	s := testStore()
	addWord(t, s, "word", 50)
	require.True(t, s.AddShortcut([]rune("word"), []rune("wrd"), 12))

	require.True(t, s.RemoveWord([]rune("word")))
	addWord(t, s, "word", 50)

	e, ok := s.WordEntry([]rune("word"), false)
	require.True(t, ok)
	assert.Empty(t, e.Shortcuts)
}

func TestShortcutUpsert(t *testing.T) {
	s := testStore()
	addWord(t, s, "because", 200)

	require.True(t, s.AddShortcut([]rune("because"), []rune("bc"), 10))
	require.True(t, s.AddShortcut([]rune("because"), []rune("bcs"), 11))
	require.True(t, s.AddShortcut([]rune("because"), []rune("bc"), 99))

	e, ok := s.WordEntry([]rune("because"), false)
	require.True(t, ok)
	require.Len(t, e.Shortcuts, 2)
	got := map[string]int{}
	for _, sc := range e.Shortcuts {
		got[string(sc.Target)] = sc.Prob
	}
	assert.Equal(t, map[string]int{"bc": 99, "bcs": 11}, got)
}

func TestShortcutRejections(t *testing.T) {
	s := testStore()
	addWord(t, s, "word", 100)

	long := make([]rune, 49)
	for i := range long {
		long[i] = 's'
	}
	assert.False(t, s.AddShortcut([]rune("word"), long, 10))
	assert.False(t, s.AddShortcut([]rune("absent"), []rune("a"), 10))

	e, ok := s.WordEntry([]rune("word"), false)
	require.True(t, ok)
	assert.Empty(t, e.Shortcuts)
	// The word entry itself is untouched by the dropped shortcut.
	assert.Equal(t, 100, s.Probability([]rune("word")))
}

func TestMaxProbabilityOfExactMatches(t *testing.T) {
	s := testStore()
	addWord(t, s, "abc", 10)
	addWord(t, s, "aBc", 15)

	assert.Equal(t, 15, s.MaxProbabilityOfExactMatches([]rune("abc")))

	addWord(t, s, "ab'c", 30)
	assert.Equal(t, 30, s.MaxProbabilityOfExactMatches([]rune("abc")))

	// Spaces stay significant, so this entry never joins the key.
	addWord(t, s, "ab c", 255)
	assert.Equal(t, 30, s.MaxProbabilityOfExactMatches([]rune("abc")))
	assert.Equal(t, 30, s.MaxProbabilityOfExactMatches([]rune("ABC")))

	addWord(t, s, "a-b-c", 40)
	assert.Equal(t, 40, s.MaxProbabilityOfExactMatches([]rune("abc")))

	assert.Equal(t, 255, s.MaxProbabilityOfExactMatches([]rune("ab c")))
	assert.Equal(t, NotAProbability, s.MaxProbabilityOfExactMatches([]rune("xyz")))
}

func TestMaxProbabilityOfExactMatchesSkipsRemoved(t *testing.T) {
	s := testStore()
	addWord(t, s, "word", 100)
	addWord(t, s, "Word", 200)

	require.True(t, s.RemoveWord([]rune("Word")))
	assert.Equal(t, 100, s.MaxProbabilityOfExactMatches([]rune("word")))
}

func TestWordEntrySnapshot(t *testing.T) {
	s := testStore()
	require.True(t, s.AddWord([]rune("tabu"), NewProbEntry(120), WordFlags{
		NotAWord:          true,
		PossiblyOffensive: true,
	}))

	e, ok := s.WordEntry([]rune("tabu"), false)
	require.True(t, ok)
	assert.Equal(t, "tabu", string(e.Word))
	assert.Equal(t, 120, e.Prob.Prob)
	assert.True(t, e.NotAWord)
	assert.True(t, e.PossiblyOffensive)
	assert.False(t, e.BeginningOfSentence)
	assert.False(t, e.Prob.HasHistorical())

	_, ok = s.WordEntry([]rune("absent"), false)
	assert.False(t, ok)
}

func TestHistoricalEntryMerge(t *testing.T) {
	s := testStore()
	require.True(t, s.AddWord([]rune("word"), NewHistoricalProbEntry(100, 1000), WordFlags{}))
	require.True(t, s.AddWord([]rune("word"), NewHistoricalProbEntry(110, 2000), WordFlags{}))

	e, ok := s.ProbEntryOf([]rune("word"))
	require.True(t, ok)
	assert.Equal(t, 110, e.Prob)
	assert.Equal(t, int64(2000), e.Timestamp)
	assert.Equal(t, 2, e.Count)
}

func TestIterationVisitsEveryLiveWord(t *testing.T) {
	s := testStore()
	words := []string{"alpha", "beta", "betray", "be", "gamma", "gambit"}
	for i, w := range words {
		addWord(t, s, w, 10+i)
	}
	require.True(t, s.RemoveWord([]rune("beta")))

	seen := map[string]bool{}
	token := 0
	for {
		e, next := s.NextEntry(token)
		if e.Word == nil && next == 0 && token == 0 && len(seen) == 0 {
			t.Fatal("iteration yielded nothing")
		}
		assert.False(t, seen[string(e.Word)], "word %q visited twice", string(e.Word))
		seen[string(e.Word)] = true
		if next == 0 {
			break
		}
		token = next
	}

	assert.Len(t, seen, 5)
	assert.False(t, seen["beta"])
	for _, w := range words {
		if w != "beta" {
			assert.True(t, seen[w], "missing %q", w)
		}
	}
}

func TestIterationEmptyStore(t *testing.T) {
	s := testStore()
	e, next := s.NextEntry(0)
	assert.Nil(t, e.Word)
	assert.Equal(t, 0, next)
}

func TestSplitKeepsExistingEntriesIntact(t *testing.T) {
	s := testStore()
	addWord(t, s, "abcdef", 90)
	require.True(t, s.AddShortcut([]rune("abcdef"), []rune("abd"), 5))

	// Splits the "abcdef" run twice.
	addWord(t, s, "abcxyz", 80)
	addWord(t, s, "ab", 70)

	assert.Equal(t, 90, s.Probability([]rune("abcdef")))
	assert.Equal(t, 80, s.Probability([]rune("abcxyz")))
	assert.Equal(t, 70, s.Probability([]rune("ab")))
	assert.Equal(t, NotAProbability, s.Probability([]rune("abc")))

	e, ok := s.WordEntry([]rune("abcdef"), false)
	require.True(t, ok)
	require.Len(t, e.Shortcuts, 1)
	assert.Equal(t, "abd", string(e.Shortcuts[0].Target))
}

func TestUnicodeWords(t *testing.T) {
	s := testStore()
	words := []string{"müller", "müde", "日本語", "日本酒", "nação"}
	for i, w := range words {
		addWord(t, s, w, 50+i)
	}
	for i, w := range words {
		assert.Equal(t, 50+i, s.Probability([]rune(w)), "word %q", w)
	}
	assert.Equal(t, NotAProbability, s.Probability([]rune("日本")))
}
