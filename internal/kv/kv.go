// Package kv provides the key/value repository that backs decisions, published
// overrides, publish metadata and page-view counters.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when a key has no value.
	ErrNotFound = errors.New("kv: key not found")
	// ErrCorrupt marks a stored value that does not decode.
	ErrCorrupt = errors.New("kv: corrupt value")
)

// Store is an opaque get/set/delete store over string keys. Each call is atomic
// for its key; there are no multi-key transactions.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// GetJSON decodes the value at key into target. It reports false when the key
// is absent.
func GetJSON(ctx context.Context, s Store, key string, target any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
