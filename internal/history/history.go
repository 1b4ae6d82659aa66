// Package history keeps the client's most recent searches in a local
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/elofiber/viabilidade-ftth/internal/geo"
)

// MaxEntries is how many searches are kept.
const MaxEntries = 10

// Entry is one recorded search.
type Entry struct {
	Input       string
	Coordinate  geo.Coordinate
	Timestamp   time.Time
	ResultCount int
}

// Summary aggregates the stored searches.
type Summary struct {
	Total       int
	WithResults int
	MeanResults float64
	Last        *Entry
}

// Store is a SQLite-backed history.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    input        TEXT    NOT NULL,
    lat          REAL    NOT NULL,
    lng          REAL    NOT NULL,
    searched_at  INTEGER NOT NULL,
    result_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS searches_searched_at ON searches (searched_at DESC, id DESC);
`

// DefaultPath is ~/.viabctl/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "history: resolve home directory")
	}
	return filepath.Join(home, ".viabctl", "history.db"), nil
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, eris.Wrap(err, "history: create data directory")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, eris.Wrap(err, "history: open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "history: apply schema")
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Add records e and trims everything beyond the newest MaxEntries.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "history: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO searches (input, lat, lng, searched_at, result_count) VALUES (?, ?, ?, ?, ?)`,
		e.Input, e.Coordinate.Lat, e.Coordinate.Lng, e.Timestamp.UnixNano(), e.ResultCount,
	); err != nil {
		return eris.Wrap(err, "history: insert entry")
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM searches WHERE id NOT IN (
    SELECT id FROM searches ORDER BY searched_at DESC, id DESC LIMIT ?
)`, MaxEntries); err != nil {
		return eris.Wrap(err, "history: trim entries")
	}

	return eris.Wrap(tx.Commit(), "history: commit")
}

// List returns the stored searches, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input, lat, lng, searched_at, result_count FROM searches ORDER BY searched_at DESC, id DESC LIMIT ?`,
		MaxEntries,
	)
	if err != nil {
		return nil, eris.Wrap(err, "history: list entries")
	}
	defer rows.Close()

	entries := make([]Entry, 0, MaxEntries)
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Input, &e.Coordinate.Lat, &e.Coordinate.Lng, &ts, &e.ResultCount); err != nil {
			return nil, eris.Wrap(err, "history: scan entry")
		}
		e.Timestamp = time.Unix(0, ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "history: iterate entries")
	}
	return entries, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM searches`); err != nil {
		return eris.Wrap(err, "history: clear")
	}
	return nil
}

// Summarize aggregates the stored searches.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(entries), nil
}

// Summarize aggregates entries, which must be newest first.
func Summarize(entries []Entry) Summary {
	var sum Summary
	if len(entries) == 0 {
		return sum
	}
	total := 0
	for _, e := range entries {
		if e.ResultCount > 0 {
			sum.WithResults++
		}
		total += e.ResultCount
	}
	sum.Total = len(entries)
	sum.MeanResults = float64(total) / float64(len(entries))
	last := entries[0]
	sum.Last = &last
	return sum
}
