// Package sqlite stores launchkit collections in a local SQLite database
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrPathRequired  = errors.New("sqlite path is required")
	ErrNotConfigured = errors.New("sqlite store is not configured")
	ErrEmptyKey      = errors.New("empty collection key")
)

const schema = `CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store keeps one row per collection. It satisfies persistence.Store.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the database at path, creating it and its schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) SaveJSON(ctx context.Context, key string, data []byte) error {
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO collections (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, data, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save collection %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadJSON(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil || s.sqlDB == nil {
		return nil, false, ErrNotConfigured
	}
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load collection %s: %w", key, err)
	}
	return payload, true, nil
}

// UpdatedAt returns when key was last saved.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	if s == nil || s.sqlDB == nil {
		return time.Time{}, false, ErrNotConfigured
	}
	var ms int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT updated_at FROM collections WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load collection %s: %w", key, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Healthcheck returns a probe that pings the database.
func (s *Store) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if s == nil || s.sqlDB == nil {
			return ErrNotConfigured
		}
		return s.sqlDB.PingContext(ctx)
	}
}
