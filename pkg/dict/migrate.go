package dict

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/wordvault/internal/format"
	"github.com/bastiangx/wordvault/internal/store"
)

// MigrateTo rewrites the dictionary file at the target format version and
// swaps the in-memory image for the freshly decoded result, so session and
// file never disagree about what the version can carry. Entries the target
// cannot express (two-word contexts, history records) are dropped;
// everything else is preserved. An unknown target fails with the dictionary
// untouched. Migration compacts as a side effect, which invalidates
// iteration tokens.
func (d *Dictionary) MigrateTo(target Version) error {
	if err := d.mutable(); err != nil {
		return err
	}
	if !format.Valid(target) {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, target)
	}
	if target == d.header.Version {
		return d.Flush()
	}
	from := d.header.Version

	d.store.Compact()
	body, err := d.store.EncodeBody(target)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary at version %d: %w", int(target), err)
	}
	h := d.header.Clone()
	h.Version = target
	data, err := format.EncodeFile(h, body)
	if err != nil {
		return fmt.Errorf("failed to encode dictionary file: %w", err)
	}
	if err := format.WriteFileAtomic(d.path, data); err != nil {
		return fmt.Errorf("failed to write dictionary %s: %w", d.path, err)
	}

	migrated, err := store.DecodeBody(target, body, d.store.ConfigOf())
	if err != nil {
		return fmt.Errorf("failed to reload migrated dictionary: %w", err)
	}
	d.store = migrated
	d.header = h

	log.Debug("Migrated dictionary",
		"path", d.path,
		"from", int(from),
		"to", int(target),
		"words", d.store.UnigramCount())
	return nil
}

// MigrateFile opens the dictionary at path, migrates it to target and
// closes the session again. It exists for batch tooling that rewrites many
// files in one go.
func MigrateFile(path string, target Version) error {
	d, err := Open(path)
	if err != nil {
		return err
	}
	if err := d.MigrateTo(target); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}
