package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/freight/internal/core"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// SQLite stores the collection in a local SQLite database. Change signals
// only reach subscribers in this process.
type SQLite struct {
	*Broadcaster

	DB  *sql.DB
	key string
}

var _ core.Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database file at path and
// prepares the kv table.
func OpenSQLite(ctx context.Context, path, key string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: sql.Open: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: ping: %w", err)
	}

	s := NewSQLite(db, key)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database. Call Migrate before first use.
func NewSQLite(db *sql.DB, key string) *SQLite {
	return &SQLite{Broadcaster: NewBroadcaster(), DB: db, key: key}
}

// Migrate creates the kv table if it does not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite migrate: create kv: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

func (s *SQLite) LoadAll(ctx context.Context) ([]core.Shipment, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite store: db is nil")
	}

	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?;`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Shipment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load: query kv: %w", err)
	}
	return decode(s.key, []byte(value)), nil
}

func (s *SQLite) SaveAll(ctx context.Context, shipments []core.Shipment) error {
	if s.DB == nil {
		return errors.New("sqlite store: db is nil")
	}

	data, err := encode(shipments)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO kv (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at;
	`, s.key, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite save: upsert kv: %w", err)
	}
	return nil
}

func (s *SQLite) NotifyChanged(ctx context.Context) error {
	s.Notify()
	return nil
}
