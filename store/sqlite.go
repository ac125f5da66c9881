package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/deepnoodle-ai/shortprog/errz"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	start REAL NOT NULL,
	length INTEGER NOT NULL,
	entries INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS witnesses (
	start REAL NOT NULL,
	end_value REAL NOT NULL,
	program TEXT NOT NULL,
	run_id TEXT NOT NULL REFERENCES runs(id),
	PRIMARY KEY (start, end_value)
);`

const sqliteUpsert = `
INSERT INTO witnesses (start, end_value, program, run_id) VALUES (?, ?, ?, ?)
ON CONFLICT (start, end_value) DO UPDATE
SET program = excluded.program, run_id = excluded.run_id
WHERE length(excluded.program) <= length(witnesses.program)`

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errz.Wrap(errz.ErrStore, err, "opening database")
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errz.Wrap(errz.ErrStore, err, "setting busy timeout")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errz.Wrap(errz.ErrStore, err, "creating tables")
	}
	return &SQLite{db: db}, nil
}

// Save writes all entries of run in a single transaction.
func (s *SQLite) Save(ctx context.Context, run Run) error {
	if err := validate(run); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errz.Wrap(errz.ErrStore, err, "beginning transaction")
	}
	defer tx.Rollback()

	id := run.ID.String()
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (id, start, length, entries) VALUES (?, ?, ?, ?)",
		id, run.Start, run.Length, len(run.Entries),
	); err != nil {
		return errz.Wrap(errz.ErrStore, err, "saving run %s", id)
	}
	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return errz.Wrap(errz.ErrStore, err, "preparing insert")
	}
	defer stmt.Close()
	for _, e := range run.Entries {
		if _, err := stmt.ExecContext(ctx, e.Start, e.End, e.Program, id); err != nil {
			return errz.Wrap(errz.ErrStore, err, "saving witness %q", e.Program)
		}
	}
	if err := tx.Commit(); err != nil {
		return errz.Wrap(errz.ErrStore, err, "committing run %s", id)
	}
	return nil
}

// Lookup returns the witness stored for (start, end).
func (s *SQLite) Lookup(ctx context.Context, start, end float64) (string, bool, error) {
	var program string
	err := s.db.QueryRowContext(ctx,
		"SELECT program FROM witnesses WHERE start = ? AND end_value = ?", start, end,
	).Scan(&program)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errz.Wrap(errz.ErrStore, err, "querying witness")
	}
	return program, true, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
