/*
Package format defines the on-disk container for dictionary files: the magic
number, the self-describing version tag, the header attribute table and the
body checksum. Version-specific body encodings live next to the store; this
package only decides whether a file is one of ours and which decoder it needs.

Every dictionary file starts with the same fixed header regardless of body
version, so readers can always classify a file before committing to a decode:

	magic      uint32  "WVLT"
	version    uint16  body format tag
	flags      uint16  reserved
	attrCount  uint16  number of attribute pairs
	attrs      length-prefixed UTF-8 key/value pairs
	bodyLen    uint32
	bodyCRC    uint32  CRC-32 (IEEE) over the body bytes
	body       version-specific

All integers are little-endian.
*/
package format

import (
	"errors"
	"fmt"
)

// Version tags one of the supported body encodings.
type Version uint16

const (
	// VersionLegacyTesting is the flat record list encoding. It predates the
	// packed trie layout and survives only for compatibility with files
	// produced by early builds.
	VersionLegacyTesting Version = 399

	// Version402 is the packed trie layout without n-gram contexts longer
	// than one word and without history records.
	Version402 Version = 402

	// Version403 is the packed trie layout with two-word contexts and
	// historical probability records.
	Version403 Version = 403

	// VersionCurrent is what newly created dictionaries use.
	VersionCurrent = Version403
)

// Magic identifies a dictionary file. Little-endian "WVLT".
const Magic uint32 = 0x544C5657

// Well-known header attribute keys. The uppercase keys mirror the stat
// queries exposed through the session API.
const (
	AttrLocale          = "locale"
	AttrDictionaryID    = "dictionary"
	AttrDate            = "date"
	AttrMaxUnigramCount = "MAX_UNIGRAM_COUNT"
	AttrMaxNgramCount   = "MAX_BIGRAM_COUNT"
)

var (
	// ErrBadMagic means the file does not start with the dictionary magic.
	ErrBadMagic = errors.New("not a dictionary file")
	// ErrUnsupportedVersion means the header names a version this build
	// cannot decode.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrCorrupt means the file structure or checksum is broken.
	ErrCorrupt = errors.New("corrupt dictionary file")
)

// Valid reports whether v is a version this build can encode and decode.
func Valid(v Version) bool {
	switch v {
	case VersionLegacyTesting, Version402, Version403:
		return true
	}
	return false
}

// SupportsNgram reports whether v can carry two-word contexts. Shorter
// contexts are supported by every version.
func SupportsNgram(v Version) bool {
	return v >= Version403
}

// SupportsHistorical reports whether v persists timestamp records alongside
// probabilities.
func SupportsHistorical(v Version) bool {
	return v >= Version403
}

// Parse converts a numeric tag into a Version.
func Parse(n int) (Version, error) {
	v := Version(n)
	if !Valid(v) {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, n)
	}
	return v, nil
}
