// Package catalog keeps the local book metadata table (cover images keyed by book id)
// that the display layer joins onto search results.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("book not found in catalog")

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL DEFAULT '',
	cover_url TEXT NOT NULL DEFAULT ''
);`

// Entry is one row of the metadata table.
type Entry struct {
	ID       string
	Title    string
	CoverURL string
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite file at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes entries in one transaction, replacing rows with the same id.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (id, title, cover_url) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, cover_url = excluded.cover_url`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Title, e.CoverURL); err != nil {
			return fmt.Errorf("upsert %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Cover returns the cover image URL for a book id.
func (s *Store) Cover(ctx context.Context, id string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx, `SELECT cover_url FROM books WHERE id = ?`, id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cover %s: %w", id, err)
	}
	return url, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
