package store

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
)

func TestOpenKVSQLiteMigratesAndServes(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		KVBackend:     config.BackendSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "nested", "ops.db"),
		MigrationsDir: migrationsDir,
	}

	store, err := OpenKV(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite kv: %v", err)
	}
	defer store.Close()

	if err := kv.SetJSON(ctx, store, "ops:decisions:2025-12-31", []string{"a"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got []string
	found, err := kv.GetJSON(ctx, store, "ops:decisions:2025-12-31", &got)
	if err != nil || !found || len(got) != 1 {
		t.Fatalf("expected stored value, got %v %v %v", got, found, err)
	}
}

func TestOpenKVMemoryAndUnknown(t *testing.T) {
	store, err := OpenKV(context.Background(), config.Config{KVBackend: config.BackendMemory}, nil)
	if err != nil {
		t.Fatalf("open memory kv: %v", err)
	}
	if _, ok := store.(*kv.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if _, err := OpenKV(context.Background(), config.Config{KVBackend: "etcd"}, nil); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}

func TestOpenKVRedisUnreachable(t *testing.T) {
	_, err := OpenKV(context.Background(), config.Config{KVBackend: config.BackendRedis, RedisURL: "redis://127.0.0.1:1/0"}, nil)
	if err == nil {
		t.Fatal("expected unreachable redis to fail")
	}
}
