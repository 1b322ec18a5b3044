// Package cache is the device-local, best-effort mirror of the theme
// preference. It is fast to read at startup and never authoritative.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/HerbHall/palette/internal/store"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("cache: key not found")

// KV is a string-keyed string store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, entries map[string]string) error
}

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create cache_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
				key        TEXT     PRIMARY KEY,
				value      TEXT     NOT NULL,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`)
			return err
		},
	},
}

const upsertEntry = `INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

// SQLiteKV is a KV backed by a SQLite table.
type SQLiteKV struct {
	db *store.DB
}

// NewSQLiteKV migrates the cache schema on db and returns a KV over it.
func NewSQLiteKV(ctx context.Context, db *store.DB) (*SQLiteKV, error) {
	if err := db.Migrate(ctx, "cache", migrations); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.SQL().QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.SQL().ExecContext(ctx, upsertEntry, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetMany upserts entries in one transaction, in key order.
func (s *SQLiteKV) SetMany(ctx context.Context, entries map[string]string) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for _, key := range slices.Sorted(maps.Keys(entries)) {
			if _, err := tx.ExecContext(ctx, upsertEntry, key, entries[key]); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}
		return nil
	})
}

// MemoryKV is an in-process KV, used when no cache file is configured.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) SetMany(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.values, entries)
	return nil
}
