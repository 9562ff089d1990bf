// Package kvstore implements ports.KVStore on SQLite and in memory.
package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/devbush/tabr/internal/adapters/kvstore/migrations"
	"github.com/devbush/tabr/internal/domain"
	"github.com/devbush/tabr/internal/ports"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps both storage tiers in one SQLite database
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) and migrates the store at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps WAL contention out of the picture for a single-user tool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, tier ports.Tier, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, string(tier))
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_entries WHERE tier = ? AND key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get %s keys: %w", tier, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", tier, err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s entries: %w", tier, err)
	}

	return result, nil
}

func (s *SQLiteStore) Set(ctx context.Context, tier ports.Tier, values map[string][]byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s write: %w", tier, err)
	}

	now := time.Now().UTC().UnixMilli()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv_entries (tier, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(tier, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			string(tier), key, value, now,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set %s/%s: %w", tier, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s write: %w", tier, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, tier ports.Tier, keys []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, 0, len(keys)+1)
	args = append(args, string(tier))
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE tier = ? AND key IN (`+placeholders+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("remove %s keys: %w", tier, err)
	}
	return nil
}

var _ ports.KVStore = (*SQLiteStore)(nil)
