// Package importer copies words from external dictionary databases into a
// session.
package importer

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/bastiangx/wordvault/pkg/dict"
)

// Result summarises one import run.
type Result struct {
	Imported int
	Skipped  int
}

// FromAndroidDB copies rows from an Android personal dictionary database
// (the `words` table with word/frequency/locale/shortcut columns) into an
// open session. Rows tagged with a different language are skipped when the
// session carries a locale attribute; rows with an empty locale apply to
// every language.
func FromAndroidDB(dbPath string, d *dict.Dictionary) (Result, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT word, frequency, locale, shortcut FROM words`)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read words table: %w", err)
	}
	defer rows.Close()

	sessionLocale := d.Attribute(dict.AttrLocale)
	var res Result
	for rows.Next() {
		var word string
		var freq int
		var locale, shortcut sql.NullString
		if err := rows.Scan(&word, &freq, &locale, &shortcut); err != nil {
			return res, fmt.Errorf("failed to scan row: %w", err)
		}
		if word == "" {
			res.Skipped++
			continue
		}
		if sessionLocale != "" && locale.Valid && locale.String != "" && !localeMatches(sessionLocale, locale.String) {
			res.Skipped++
			continue
		}

		var opts dict.UnigramOptions
		if shortcut.Valid && shortcut.String != "" {
			// personal shortcuts always outrank regular suggestions
			opts.ShortcutTarget = shortcut.String
			opts.ShortcutProb = dict.MaxProbability
		}
		if err := d.AddUnigram(word, freq, opts); err != nil {
			return res, err
		}
		if d.GetFrequency(word) == dict.NotAProbability {
			res.Skipped++
			continue
		}
		res.Imported++
	}
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("failed to iterate words table: %w", err)
	}

	log.Debug("Imported personal dictionary",
		"db", dbPath,
		"words", res.Imported,
		"skipped", res.Skipped)
	return res, nil
}

// localeMatches accepts exact matches and language-only matches, so a
// session locale of "en" takes "en_US" rows and vice versa.
func localeMatches(sessionLocale, rowLocale string) bool {
	if strings.EqualFold(sessionLocale, rowLocale) {
		return true
	}
	return strings.EqualFold(baseLang(sessionLocale), baseLang(rowLocale))
}

func baseLang(locale string) string {
	if i := strings.IndexAny(locale, "_-"); i >= 0 {
		return locale[:i]
	}
	return locale
}
