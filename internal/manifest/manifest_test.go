package manifest

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/wordvault/pkg/dict"
)

func newDict(t *testing.T, opts dict.CreateOptions) *dict.Dictionary {
	t.Helper()
	d, err := dict.Create(filepath.Join(t.TempDir(), "manifest.wvlt"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedDict(t *testing.T) *dict.Dictionary {
	t.Helper()
	d := newDict(t, dict.CreateOptions{Locale: "en"})
	require.NoError(t, d.AddUnigram("rain", 200, dict.UnigramOptions{}))
	require.NoError(t, d.AddUnigram("heavy", 150, dict.UnigramOptions{Timestamp: 7000}))
	require.NoError(t, d.AddUnigram("btw", 90, dict.UnigramOptions{
		NotAWord:       true,
		ShortcutTarget: "by the way",
		ShortcutProb:   dict.MaxProbability,
	}))
	require.NoError(t, d.AddNgram(dict.BigramContext("heavy"), "rain", 180, 0))
	require.NoError(t, d.AddNgram(dict.BeginningOfSentenceContext(), "heavy", 120, 0))
	require.NoError(t, d.AddNgram(dict.TrigramContext("rain", "heavy"), "btw", 60, 0))
	return d
}

func TestSnapshotContent(t *testing.T) {
	m := Snapshot(seedDict(t))

	require.Len(t, m.Words, 3)
	assert.Equal(t, []string{"btw", "heavy", "rain"},
		[]string{m.Words[0].Word, m.Words[1].Word, m.Words[2].Word}, "words are sorted")

	btw := m.Words[0]
	assert.True(t, btw.NotAWord)
	require.Len(t, btw.Shortcuts, 1)
	assert.Equal(t, Shortcut{Target: "by the way", Prob: dict.MaxProbability}, btw.Shortcuts[0])

	heavy := m.Words[1]
	assert.Equal(t, int64(7000), heavy.Timestamp)
	assert.Equal(t, 1, heavy.Count)

	require.Len(t, m.Ngrams, 3)
	assert.Equal(t, Ngram{Bos: true, Target: "heavy", Prob: 120}, m.Ngrams[0])
	assert.Equal(t, Ngram{Context: []string{"heavy"}, Target: "rain", Prob: 180}, m.Ngrams[1])
	assert.Equal(t, Ngram{Context: []string{"rain", "heavy"}, Target: "btw", Prob: 60}, m.Ngrams[2])
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	m := Snapshot(seedDict(t))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	text := buf.String()
	assert.Contains(t, text, "word: rain")
	assert.Contains(t, text, "[heavy]", "contexts render in flow style")
	assert.Contains(t, text, "not_a_word: true")

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestApplyRebuildsDictionary(t *testing.T) {
	m := Snapshot(seedDict(t))

	d := newDict(t, dict.CreateOptions{Locale: "en"})
	res, err := Apply(d, m)
	require.NoError(t, err)
	assert.Equal(t, Applied{Words: 3, Ngrams: 3}, res)

	assert.Equal(t, 200, d.GetFrequency("rain"))
	assert.Equal(t, 180, d.GetNgramProbability(dict.BigramContext("heavy"), "rain"))
	assert.Equal(t, 120, d.GetNgramProbability(dict.BeginningOfSentenceContext(), "heavy"))
	assert.True(t, d.IsValidNgram(dict.TrigramContext("rain", "heavy"), "btw"))

	heavy := d.GetWordProperty("heavy", false)
	require.True(t, heavy.Valid)
	assert.Equal(t, int64(7000), heavy.Timestamp)
	assert.Equal(t, 1, heavy.Count, "history restarts on apply")

	btw := d.GetWordProperty("btw", false)
	require.True(t, btw.Valid)
	assert.True(t, btw.NotAWord)
	require.Len(t, btw.Shortcuts, 1)
	assert.Equal(t, "by the way", btw.Shortcuts[0].Target)
}

func TestApplyKeepsAllShortcuts(t *testing.T) {
	m := &Manifest{
		Words: []Word{{
			Word:      "omw",
			Prob:      140,
			Timestamp: 9000,
			Shortcuts: []Shortcut{
				{Target: "on my way", Prob: 255},
				{Target: "on my way!", Prob: 200},
			},
		}},
	}
	d := newDict(t, dict.CreateOptions{})
	res, err := Apply(d, m)
	require.NoError(t, err)
	assert.Equal(t, Applied{Words: 1}, res)

	prop := d.GetWordProperty("omw", false)
	require.True(t, prop.Valid)
	assert.Len(t, prop.Shortcuts, 2)
	assert.Equal(t, 1, prop.Count, "shortcut passes must not inflate history")
	assert.Equal(t, int64(9000), prop.Timestamp)
}

func TestApplyCountsRejects(t *testing.T) {
	m := &Manifest{
		Words: []Word{
			{Word: "fine", Prob: 100},
			{Word: strings.Repeat("x", 60), Prob: 100},
		},
		Ngrams: []Ngram{
			{Context: []string{"fine"}, Target: "day", Prob: 80},
		},
	}
	d := newDict(t, dict.CreateOptions{})
	res, err := Apply(d, m)
	require.NoError(t, err)
	assert.Equal(t, Applied{Words: 1, Ngrams: 0, Skipped: 2}, res)
}

func TestApplyTrigramsNeedCurrentFormat(t *testing.T) {
	m := &Manifest{
		Words: []Word{
			{Word: "one", Prob: 100},
			{Word: "two", Prob: 100},
			{Word: "three", Prob: 100},
		},
		Ngrams: []Ngram{
			{Context: []string{"two", "one"}, Target: "three", Prob: 90},
		},
	}
	d := newDict(t, dict.CreateOptions{Version: dict.Version402})
	res, err := Apply(d, m)
	require.NoError(t, err)
	assert.Equal(t, Applied{Words: 3, Ngrams: 0, Skipped: 1}, res)
}

func TestApplyReadOnlyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.wvlt")
	d, err := dict.Create(path, dict.CreateOptions{})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	ro, err := dict.OpenWith(path, dict.SessionOptions{ReadOnly: true})
	require.NoError(t, err)
	t.Cleanup(func() { ro.Close() })

	_, err = Apply(ro, &Manifest{Words: []Word{{Word: "nope", Prob: 10}}})
	assert.ErrorIs(t, err, dict.ErrNotUpdatable)
}

func TestLoadEmptyDocument(t *testing.T) {
	m, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, m.Words)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(strings.NewReader("words: {not: a list}"))
	assert.Error(t, err)
}
