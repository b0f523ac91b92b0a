package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
)

// Header carries the version tag and the attribute table of a dictionary
// file. Attributes are free-form string pairs; the engine stores the locale,
// the instance id, the creation date and the capacity limits here.
type Header struct {
	Version Version
	Attrs   map[string]string
}

// Clone returns a deep copy so callers can stage attribute changes without
// touching the live header.
func (h Header) Clone() Header {
	attrs := make(map[string]string, len(h.Attrs))
	for k, v := range h.Attrs {
		attrs[k] = v
	}
	return Header{Version: h.Version, Attrs: attrs}
}

// EncodeFile assembles a complete dictionary file image from a header and an
// already-encoded body.
func EncodeFile(h Header, body []byte) ([]byte, error) {
	if !Valid(h.Version) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, Magic); err != nil {
		return nil, fmt.Errorf("failed to write magic: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(h.Version)); err != nil {
		return nil, fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(0)); err != nil {
		return nil, fmt.Errorf("failed to write flags: %w", err)
	}
	if err := encodeAttrs(&buf, h.Attrs); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(body))); err != nil {
		return nil, fmt.Errorf("failed to write body length: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(body)); err != nil {
		return nil, fmt.Errorf("failed to write body checksum: %w", err)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeFile splits a dictionary file image into its header and verified
// body. The body checksum is checked before anything else trusts the bytes.
func DecodeFile(data []byte) (Header, []byte, error) {
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return Header{}, nil, fmt.Errorf("%w: missing magic", ErrCorrupt)
	}
	if magic != Magic {
		return Header{}, nil, ErrBadMagic
	}

	var rawVersion, flags uint16
	if err := binary.Read(r, binary.LittleEndian, &rawVersion); err != nil {
		return Header{}, nil, fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return Header{}, nil, fmt.Errorf("%w: missing flags", ErrCorrupt)
	}
	version := Version(rawVersion)
	if !Valid(version) {
		return Header{}, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rawVersion)
	}

	attrs, err := decodeAttrs(r)
	if err != nil {
		return Header{}, nil, err
	}

	var bodyLen, bodyCRC uint32
	if err := binary.Read(r, binary.LittleEndian, &bodyLen); err != nil {
		return Header{}, nil, fmt.Errorf("%w: missing body length", ErrCorrupt)
	}
	if err := binary.Read(r, binary.LittleEndian, &bodyCRC); err != nil {
		return Header{}, nil, fmt.Errorf("%w: missing body checksum", ErrCorrupt)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Header{}, nil, fmt.Errorf("%w: truncated body", ErrCorrupt)
	}
	if crc32.ChecksumIEEE(body) != bodyCRC {
		return Header{}, nil, fmt.Errorf("%w: body checksum mismatch", ErrCorrupt)
	}

	return Header{Version: version, Attrs: attrs}, body, nil
}

// encodeAttrs writes the attribute table with sorted keys so identical
// headers always produce identical bytes.
func encodeAttrs(buf *bytes.Buffer, attrs map[string]string) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := binary.Write(buf, binary.LittleEndian, uint16(len(keys))); err != nil {
		return fmt.Errorf("failed to write attribute count: %w", err)
	}
	for _, k := range keys {
		if err := writeString(buf, k); err != nil {
			return err
		}
		if err := writeString(buf, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

func decodeAttrs(r *bytes.Reader) (map[string]string, error) {
	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: missing attribute count", ErrCorrupt)
	}
	attrs := make(map[string]string, count)
	for i := 0; i < int(count); i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		attrs[k] = v
	}
	return attrs, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("attribute string too long: %d bytes", len(s))
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return fmt.Errorf("failed to write string length: %w", err)
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("%w: missing string length", ErrCorrupt)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: truncated string", ErrCorrupt)
	}
	return string(b), nil
}
