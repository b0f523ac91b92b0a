package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bigramCtx(prev string) Context {
	return Context{Words: [][]rune{[]rune(prev)}}
}

func trigramCtx(prev, prevPrev string) Context {
	return Context{Words: [][]rune{[]rune(prev), []rune(prevPrev)}}
}

func bosCtx() Context {
	return Context{BOS: true}
}

func addBigram(t *testing.T, s *Store, prev, word string, prob int) {
	t.Helper()
	require.True(t, s.AddNgram(bigramCtx(prev), []rune(word), NewProbEntry(prob)), "bigram %q -> %q", prev, word)
}

func TestAddAndQueryBigram(t *testing.T) {
	s := testStore()
	addWord(t, s, "new", 100)
	addWord(t, s, "york", 100)

	addBigram(t, s, "new", "york", 200)

	assert.Equal(t, 200, s.NgramProbability(bigramCtx("new"), []rune("york")))
	assert.Equal(t, 1, s.BigramCount())
	assert.Equal(t, 0, s.TrigramCount())

	// Absent pairs and absent endpoints report nothing.
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("york"), []rune("new")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("new"), []rune("jersey")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("old"), []rune("york")))
}

func TestBigramRequiresLiveEndpoints(t *testing.T) {
	s := testStore()
	addWord(t, s, "one", 10)

	assert.False(t, s.AddNgram(bigramCtx("one"), []rune("two"), NewProbEntry(50)))
	assert.False(t, s.AddNgram(bigramCtx("two"), []rune("one"), NewProbEntry(50)))
	assert.Equal(t, 0, s.BigramCount())
}

func TestBigramUpsert(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)

	addBigram(t, s, "a", "b", 20)
	addBigram(t, s, "a", "b", 90)

	assert.Equal(t, 90, s.NgramProbability(bigramCtx("a"), []rune("b")))
	assert.Equal(t, 1, s.BigramCount())
}

func TestRemoveNgram(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)
	addBigram(t, s, "a", "b", 20)

	assert.True(t, s.RemoveNgram(bigramCtx("a"), []rune("b")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("a"), []rune("b")))
	assert.Equal(t, 0, s.BigramCount())

	// Removing an absent or already-removed association is harmless.
	assert.False(t, s.RemoveNgram(bigramCtx("a"), []rune("b")))
	assert.False(t, s.RemoveNgram(bigramCtx("b"), []rune("a")))
	assert.False(t, s.RemoveNgram(bigramCtx("zz"), []rune("b")))
}

func TestBigramDirectionality(t *testing.T) {
	s := testStore()
	addWord(t, s, "left", 10)
	addWord(t, s, "right", 10)

	addBigram(t, s, "left", "right", 30)

	assert.Equal(t, 30, s.NgramProbability(bigramCtx("left"), []rune("right")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("right"), []rune("left")))

	addBigram(t, s, "right", "left", 40)
	assert.Equal(t, 30, s.NgramProbability(bigramCtx("left"), []rune("right")))
	assert.Equal(t, 40, s.NgramProbability(bigramCtx("right"), []rune("left")))
	assert.Equal(t, 2, s.BigramCount())
}

func TestTrigramDistinctFromBigram(t *testing.T) {
	s := testStore()
	addWord(t, s, "in", 10)
	addWord(t, s, "the", 10)
	addWord(t, s, "end", 10)

	require.True(t, s.AddNgram(trigramCtx("the", "in"), []rune("end"), NewProbEntry(77)))

	assert.Equal(t, 77, s.NgramProbability(trigramCtx("the", "in"), []rune("end")))
	// The trigram does not imply the embedded bigram.
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("the"), []rune("end")))
	assert.Equal(t, 0, s.BigramCount())
	assert.Equal(t, 1, s.TrigramCount())

	addBigram(t, s, "the", "end", 55)
	assert.Equal(t, 55, s.NgramProbability(bigramCtx("the"), []rune("end")))
	assert.Equal(t, 77, s.NgramProbability(trigramCtx("the", "in"), []rune("end")))

	// Removing one leaves the other.
	require.True(t, s.RemoveNgram(trigramCtx("the", "in"), []rune("end")))
	assert.Equal(t, 55, s.NgramProbability(bigramCtx("the"), []rune("end")))
	assert.Equal(t, NotAProbability, s.NgramProbability(trigramCtx("the", "in"), []rune("end")))
}

func TestTrigramContextOrder(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)
	addWord(t, s, "c", 10)

	// Context words run most recent first: trigramCtx("b", "a") is "a b" -> c.
	require.True(t, s.AddNgram(trigramCtx("b", "a"), []rune("c"), NewProbEntry(60)))

	assert.Equal(t, 60, s.NgramProbability(trigramCtx("b", "a"), []rune("c")))
	assert.Equal(t, NotAProbability, s.NgramProbability(trigramCtx("a", "b"), []rune("c")))
}

func TestBeginningOfSentenceContext(t *testing.T) {
	s := testStore()
	addWord(t, s, "the", 10)
	addWord(t, s, "cat", 10)

	require.False(t, s.HasBos())
	require.True(t, s.AddNgram(bosCtx(), []rune("the"), NewProbEntry(120)))
	require.True(t, s.HasBos())

	assert.Equal(t, 120, s.NgramProbability(bosCtx(), []rune("the")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bosCtx(), []rune("cat")))
	assert.Equal(t, 1, s.BigramCount())

	// Sentence-initial trigram: [BoS, the] -> cat.
	require.True(t, s.AddNgram(Context{Words: [][]rune{[]rune("the")}, BOS: true}, []rune("cat"), NewProbEntry(90)))
	assert.Equal(t, 90, s.NgramProbability(Context{Words: [][]rune{[]rune("the")}, BOS: true}, []rune("cat")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("the"), []rune("cat")))
	assert.Equal(t, 1, s.BigramCount())
	assert.Equal(t, 1, s.TrigramCount())
}

func TestBosMarkerStaysHidden(t *testing.T) {
	s := testStore()
	addWord(t, s, "word", 10)
	require.True(t, s.AddNgram(bosCtx(), []rune("word"), NewProbEntry(50)))

	// The marker never shows up in unigram counts or iteration.
	assert.Equal(t, 1, s.UnigramCount())
	token := 0
	count := 0
	for {
		e, next := s.NextEntry(token)
		require.NotNil(t, e.Word)
		count++
		if next == 0 {
			break
		}
		token = next
	}
	assert.Equal(t, 1, count)

	e, ok := s.WordEntry(nil, true)
	require.True(t, ok)
	assert.Nil(t, e.Word)
	assert.True(t, e.BeginningOfSentence)
	assert.True(t, e.NotAWord)
	require.Len(t, e.Ngrams, 1)
	assert.Equal(t, "word", string(e.Ngrams[0].Target))
	assert.True(t, e.Ngrams[0].Context.BOS)
}

func TestQueriesNeverCreateBosMarker(t *testing.T) {
	s := testStore()
	addWord(t, s, "word", 10)

	assert.Equal(t, NotAProbability, s.NgramProbability(bosCtx(), []rune("word")))
	assert.False(t, s.RemoveNgram(bosCtx(), []rune("word")))
	assert.False(t, s.HasBos())
	_, ok := s.WordEntry(nil, true)
	assert.False(t, ok)
}

func TestRemoveWordInvalidatesNgrams(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)
	addWord(t, s, "c", 10)
	addBigram(t, s, "a", "b", 20)
	addBigram(t, s, "b", "c", 30)
	require.True(t, s.AddNgram(trigramCtx("b", "a"), []rune("c"), NewProbEntry(40)))

	// Dropping "b" takes out every association touching it, as context,
	// target or older context word.
	require.True(t, s.RemoveWord([]rune("b")))

	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("a"), []rune("b")))
	assert.Equal(t, NotAProbability, s.NgramProbability(bigramCtx("b"), []rune("c")))
	assert.Equal(t, NotAProbability, s.NgramProbability(trigramCtx("b", "a"), []rune("c")))
	assert.Equal(t, 0, s.BigramCount())
	assert.Equal(t, 0, s.TrigramCount())
}

func TestNgramSurvivesTrieSplit(t *testing.T) {
	s := testStore()
	addWord(t, s, "sunshine", 10)
	addWord(t, s, "morning", 10)
	addBigram(t, s, "morning", "sunshine", 150)

	// Splitting the "sunshine" branch must not disturb the association,
	// which references terminals rather than trie nodes.
	addWord(t, s, "sunset", 10)
	addWord(t, s, "sun", 10)
	addWord(t, s, "mornings", 10)

	assert.Equal(t, 150, s.NgramProbability(bigramCtx("morning"), []rune("sunshine")))
}

func TestNgramContextBounds(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)
	addWord(t, s, "c", 10)

	assert.False(t, s.AddNgram(Context{}, []rune("a"), NewProbEntry(10)))
	tooDeep := Context{Words: [][]rune{[]rune("a"), []rune("b"), []rune("c")}}
	assert.False(t, s.AddNgram(tooDeep, []rune("a"), NewProbEntry(10)))
	assert.Equal(t, NotAProbability, s.NgramProbability(tooDeep, []rune("a")))
}

func TestNgramHistoricalUpsert(t *testing.T) {
	s := testStore()
	addWord(t, s, "a", 10)
	addWord(t, s, "b", 10)

	require.True(t, s.AddNgram(bigramCtx("a"), []rune("b"), NewHistoricalProbEntry(40, 500)))
	require.True(t, s.AddNgram(bigramCtx("a"), []rune("b"), NewHistoricalProbEntry(60, 900)))

	e, ok := s.NgramProbEntry(bigramCtx("a"), []rune("b"))
	require.True(t, ok)
	assert.Equal(t, 60, e.Prob)
	assert.Equal(t, int64(900), e.Timestamp)
	assert.Equal(t, 2, e.Count)
}
