// Package sqlite provides a SQLite-backed history storage slot using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const slotID = 1

// Storage holds the serialized history array in a one-row slot table.
type Storage struct {
	db *sql.DB
}

// Open opens (and initializes) the SQLite database at path.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The slot is single-writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS history_slot (
			id   INTEGER PRIMARY KEY CHECK (id = 1),
			data BLOB NOT NULL
		)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &Storage{db: db}, nil
}

// Load returns the slot contents, or (nil, nil) when no row exists.
func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM history_slot WHERE id = ?`, slotID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history slot: %w", err)
	}
	return data, nil
}

// Save replaces the slot contents.
func (s *Storage) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history_slot (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		slotID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save history slot: %w", err)
	}
	return nil
}

// Clear removes the slot row.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM history_slot WHERE id = ?`, slotID,
	); err != nil {
		return fmt.Errorf("failed to clear history slot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}
