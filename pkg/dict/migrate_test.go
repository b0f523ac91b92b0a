package dict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAcrossVersions populates content every format version can carry.
func seedAcrossVersions(t *testing.T, d *Dictionary) {
	t.Helper()
	require.NoError(t, d.AddUnigram("aaa", 100, UnigramOptions{}))
	require.NoError(t, d.AddUnigram("abc", 150, UnigramOptions{ShortcutTarget: "xyz", ShortcutProb: 11}))
	require.NoError(t, d.AddUnigram("bcd", 170, UnigramOptions{NotAWord: true}))
	require.NoError(t, d.AddNgram(BigramContext("aaa"), "abc", 200, 0))
	require.NoError(t, d.AddNgram(BeginningOfSentenceContext(), "aaa", 210, 0))
}

func assertSeedSurvived(t *testing.T, d *Dictionary) {
	t.Helper()
	assert.Equal(t, 100, d.GetFrequency("aaa"))
	assert.Equal(t, 150, d.GetFrequency("abc"))
	assert.Equal(t, 170, d.GetFrequency("bcd"))

	prop := d.GetWordProperty("abc", false)
	require.True(t, prop.Valid)
	require.Len(t, prop.Shortcuts, 1)
	assert.Equal(t, "xyz", prop.Shortcuts[0].Target)
	assert.Equal(t, 11, prop.Shortcuts[0].Probability)

	assert.True(t, d.GetWordProperty("bcd", false).NotAWord)
	assert.Equal(t, 200, d.GetNgramProbability(BigramContext("aaa"), "abc"))
	assert.Equal(t, 210, d.GetNgramProbability(BeginningOfSentenceContext(), "aaa"))
}

func TestMigrateLegacyToCurrent(t *testing.T) {
	d, path := createDict(t, CreateOptions{Version: VersionLegacyTesting})
	seedAcrossVersions(t, d)
	require.NoError(t, d.Flush())

	require.NoError(t, d.MigrateTo(Version403))
	assert.Equal(t, Version403, d.FormatVersion())
	assertSeedSurvived(t, d)
	require.NoError(t, d.Close())

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, Version403, d.FormatVersion())
	assertSeedSurvived(t, d)

	// The new version's capabilities are live immediately.
	require.NoError(t, d.AddNgram(TrigramContext("abc", "aaa"), "bcd", 230, 0))
	assert.True(t, d.IsValidNgram(TrigramContext("abc", "aaa"), "bcd"))
}

func TestMigrateLegacyTo402(t *testing.T) {
	d, path := createDict(t, CreateOptions{Version: VersionLegacyTesting})
	seedAcrossVersions(t, d)
	require.NoError(t, d.MigrateTo(Version402))
	require.NoError(t, d.Close())

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, Version402, d.FormatVersion())
	assertSeedSurvived(t, d)
}

func TestMigrateDownDropsTrigramsAndHistory(t *testing.T) {
	d, path := createDict(t, CreateOptions{})
	seedAcrossVersions(t, d)
	require.NoError(t, d.AddNgram(TrigramContext("abc", "aaa"), "bcd", 230, 0))
	require.NoError(t, d.AddUnigram("dated", 90, UnigramOptions{Timestamp: 12345}))

	require.NoError(t, d.MigrateTo(Version402))
	assert.Equal(t, Version402, d.FormatVersion())

	// The session reflects the narrowed capabilities at once.
	assertSeedSurvived(t, d)
	assert.False(t, d.IsValidNgram(TrigramContext("abc", "aaa"), "bcd"))
	assert.Equal(t, "0", d.Stat(StatTrigramCount))
	assert.Equal(t, 90, d.GetFrequency("dated"))
	assert.False(t, d.GetWordProperty("dated", false).HasHistory())
	require.NoError(t, d.Close())

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assertSeedSurvived(t, d)
	assert.Equal(t, "0", d.Stat(StatTrigramCount))
}

func TestMigrateUnknownTargetLeavesDictionaryAlone(t *testing.T) {
	d, path := createDict(t, CreateOptions{})
	seedAcrossVersions(t, d)
	require.NoError(t, d.Flush())

	err := d.MigrateTo(Version(400))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Equal(t, VersionCurrent, d.FormatVersion())
	assertSeedSurvived(t, d)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, VersionCurrent, d.FormatVersion())
	assertSeedSurvived(t, d)
}

func TestMigrateToSameVersionFlushes(t *testing.T) {
	d, path := createDict(t, CreateOptions{})
	require.NoError(t, d.AddUnigram("pending", 60, UnigramOptions{}))
	require.NoError(t, d.MigrateTo(VersionCurrent))
	require.NoError(t, d.Close())

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 60, d.GetFrequency("pending"))
}

func TestMigrateCompacts(t *testing.T) {
	d, _ := createDict(t, CreateOptions{})
	for _, w := range []string{"keep", "drop", "also"} {
		require.NoError(t, d.AddUnigram(w, 100, UnigramOptions{}))
	}
	require.NoError(t, d.RemoveUnigram("drop"))
	require.NoError(t, d.MigrateTo(Version402))
	defer d.Close()

	_, words := sessionWalk(d)
	assert.ElementsMatch(t, []string{"keep", "also"}, words)
	assert.Equal(t, "2", d.Stat(StatUnigramCount))
}

func TestMigrateFileHelper(t *testing.T) {
	d, path := createDict(t, CreateOptions{})
	seedAcrossVersions(t, d)
	require.NoError(t, d.Flush())
	require.NoError(t, d.Close())

	require.NoError(t, MigrateFile(path, Version402))

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, Version402, d.FormatVersion())
	assertSeedSurvived(t, d)
}
