package format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version: Version403,
		Attrs: map[string]string{
			AttrLocale:          "en",
			AttrDictionaryID:    "01J8ME3TESTID",
			AttrMaxUnigramCount: "12288",
		},
	}
	body := []byte("payload bytes")

	data, err := EncodeFile(h, body)
	require.NoError(t, err)

	got, gotBody, err := DecodeFile(data)
	require.NoError(t, err)
	assert.Equal(t, Version403, got.Version)
	assert.Equal(t, h.Attrs, got.Attrs)
	assert.Equal(t, body, gotBody)
}

func TestHeaderEmptyAttrsAndBody(t *testing.T) {
	data, err := EncodeFile(Header{Version: Version402, Attrs: nil}, nil)
	require.NoError(t, err)

	got, body, err := DecodeFile(data)
	require.NoError(t, err)
	assert.Equal(t, Version402, got.Version)
	assert.Empty(t, got.Attrs)
	assert.Empty(t, body)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data, err := EncodeFile(Header{Version: Version403}, []byte("x"))
	require.NoError(t, err)
	data[0] ^= 0xFF

	_, _, err = DecodeFile(data)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, err := EncodeFile(Header{Version: Version403}, nil)
	require.NoError(t, err)
	// Version field sits right after the 4 magic bytes.
	data[4] = 0x01
	data[5] = 0x00

	_, _, err = DecodeFile(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsCorruptBody(t *testing.T) {
	data, err := EncodeFile(Header{Version: Version403}, []byte("checksummed body"))
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	_, _, err = DecodeFile(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeRejectsTruncatedFile(t *testing.T) {
	data, err := EncodeFile(Header{Version: Version403}, []byte("checksummed body"))
	require.NoError(t, err)

	for _, cut := range []int{1, 5, len(data) - 3} {
		_, _, err := DecodeFile(data[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestEncodeRejectsInvalidVersion(t *testing.T) {
	_, err := EncodeFile(Header{Version: Version(400)}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestVersionCapabilities(t *testing.T) {
	assert.False(t, SupportsNgram(VersionLegacyTesting))
	assert.False(t, SupportsNgram(Version402))
	assert.True(t, SupportsNgram(Version403))

	assert.False(t, SupportsHistorical(Version402))
	assert.True(t, SupportsHistorical(Version403))
}

func TestParse(t *testing.T) {
	v, err := Parse(403)
	require.NoError(t, err)
	assert.Equal(t, Version403, v)

	_, err = Parse(400)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dict.wvlt")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive")
}

func TestHeaderClone(t *testing.T) {
	h := Header{Version: Version403, Attrs: map[string]string{AttrLocale: "en"}}
	c := h.Clone()
	c.Attrs[AttrLocale] = "de"
	if h.Attrs[AttrLocale] != "en" {
		t.Error("Clone shares the attribute map")
	}
}
