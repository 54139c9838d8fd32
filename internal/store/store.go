// Package store persists the playback position of each session in SQLite so
// a browser that comes back with the same cookie resumes where it stopped.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	section    TEXT NOT NULL DEFAULT '',
	idx        INTEGER NOT NULL DEFAULT 2,
	repeat     INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
)`

// Position is the persisted part of a session's playback state.
type Position struct {
	SessionID string
	Section   string
	Index     int
	Repeat    bool
	UpdatedAt time.Time
}

// Store is a SQLite backed position repository.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. The path can be ":memory:".
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer avoids SQLITE_BUSY and keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts or replaces the position of p.SessionID.
func (s *Store) Save(ctx context.Context, p Position) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, section, idx, repeat, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			section = excluded.section,
			idx = excluded.idx,
			repeat = excluded.repeat,
			updated_at = excluded.updated_at`,
		p.SessionID, p.Section, p.Index, p.Repeat, p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Load returns the saved position of id. ok is false when none exists.
func (s *Store) Load(ctx context.Context, id string) (p Position, ok bool, err error) {
	var updated int64
	row := s.db.QueryRowContext(ctx,
		`SELECT id, section, idx, repeat, updated_at FROM sessions WHERE id = ?`, id)
	err = row.Scan(&p.SessionID, &p.Section, &p.Index, &p.Repeat, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to load position: %w", err)
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return p, true, nil
}

// Prune deletes positions not updated since before.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune positions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
