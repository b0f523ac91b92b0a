package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bastiangx/wordvault/internal/format"
)

// EncodeBody serializes the store body at version v. Versions without
// two-word context support drop those entries; versions without history
// support drop the history records. Everything else round-trips.
func (s *Store) EncodeBody(v format.Version) ([]byte, error) {
	switch v {
	case format.VersionLegacyTesting:
		return s.encodeLegacy()
	case format.Version402, format.Version403:
		return s.encodeV4(v)
	}
	return nil, fmt.Errorf("%w: %d", format.ErrUnsupportedVersion, v)
}

// DecodeBody parses body bytes written at version v into a fresh store
// bounded by cfg. Malformed input returns format.ErrCorrupt.
func DecodeBody(v format.Version, body []byte, cfg Config) (*Store, error) {
	switch v {
	case format.VersionLegacyTesting:
		return decodeLegacy(body, cfg)
	case format.Version402, format.Version403:
		return decodeV4(v, body, cfg)
	}
	return nil, fmt.Errorf("%w: %d", format.ErrUnsupportedVersion, v)
}

// bodyWriter accumulates little-endian fields with a sticky error so the
// encoders read as straight-line layout descriptions.
type bodyWriter struct {
	buf bytes.Buffer
	err error
}

func (w *bodyWriter) write(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *bodyWriter) u8(v uint8)   { w.write(v) }
func (w *bodyWriter) u16(v uint16) { w.write(v) }
func (w *bodyWriter) u32(v uint32) { w.write(v) }
func (w *bodyWriter) i16(v int16)  { w.write(v) }
func (w *bodyWriter) i32(v int32)  { w.write(v) }
func (w *bodyWriter) i64(v int64)  { w.write(v) }

func (w *bodyWriter) runes(rs []rune) {
	if len(rs) > 0xFFFF {
		if w.err == nil {
			w.err = fmt.Errorf("code point run too long: %d", len(rs))
		}
		return
	}
	w.u16(uint16(len(rs)))
	for _, r := range rs {
		w.i32(int32(r))
	}
}

func (w *bodyWriter) bytesAndErr() ([]byte, error) {
	if w.err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", w.err)
	}
	return w.buf.Bytes(), nil
}

// bodyReader mirrors bodyWriter for decoding. Any short read marks the body
// corrupt; decoders check err at convenient points.
type bodyReader struct {
	r   *bytes.Reader
	err error
}

func newBodyReader(body []byte) *bodyReader {
	return &bodyReader{r: bytes.NewReader(body)}
}

func (r *bodyReader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = fmt.Errorf("%w: truncated body", format.ErrCorrupt)
	}
}

func (r *bodyReader) u8() uint8   { var v uint8; r.read(&v); return v }
func (r *bodyReader) u16() uint16 { var v uint16; r.read(&v); return v }
func (r *bodyReader) u32() uint32 { var v uint32; r.read(&v); return v }
func (r *bodyReader) i16() int16  { var v int16; r.read(&v); return v }
func (r *bodyReader) i32() int32  { var v int32; r.read(&v); return v }
func (r *bodyReader) i64() int64  { var v int64; r.read(&v); return v }

func (r *bodyReader) runes() []rune {
	n := int(r.u16())
	if r.err != nil {
		return nil
	}
	rs := make([]rune, n)
	for i := 0; i < n; i++ {
		rs[i] = rune(r.i32())
	}
	return rs
}

// remaining returns how many body bytes are left, used to sanity-check
// counts before allocating.
func (r *bodyReader) remaining() int {
	return r.r.Len()
}

func corruptf(msg string, args ...any) error {
	return fmt.Errorf("%w: %s", format.ErrCorrupt, fmt.Sprintf(msg, args...))
}
