package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outlook/api/internal/kv"
)

// KVStore implements kv.Store on the kv_entries table.
type KVStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ kv.Store = (*KVStore)(nil)

func NewKVStore(db *sql.DB, dialect Dialect) *KVStore {
	return &KVStore{db: db, dialect: dialect}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT entry_value FROM kv_entries WHERE entry_key=%s`, s.dialect.placeholder(1))
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read kv %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO kv_entries (entry_key, entry_value, updated_at)
		VALUES (%s, %s, CURRENT_TIMESTAMP)
		ON CONFLICT (entry_key) DO UPDATE SET entry_value=excluded.entry_value, updated_at=excluded.updated_at
	`, s.dialect.placeholder(1), s.dialect.placeholder(2))
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("write kv %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM kv_entries WHERE entry_key=%s`, s.dialect.placeholder(1))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete kv %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *KVStore) Close() error {
	return s.db.Close()
}
