package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
)

// OpenKV opens the kv backend named by cfg.KVBackend. SQL backends are
// migrated before use.
func OpenKV(ctx context.Context, cfg config.Config, logger *zap.Logger) (kv.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.KVBackend {
	case config.BackendRedis:
		store, err := kv.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("kv: using redis")
		return store, nil
	case config.BackendPostgres:
		return openSQL(ctx, DialectPostgres, cfg.DatabaseURL, cfg.MigrationsDir, logger)
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return openSQL(ctx, DialectSQLite, cfg.SQLitePath, cfg.MigrationsDir, logger)
	case config.BackendMemory:
		logger.Warn("kv: using in-memory store, nothing survives a restart")
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown KV_BACKEND %q (expected redis, postgres, sqlite or memory)", cfg.KVBackend)
	}
}

func openSQL(ctx context.Context, dialect Dialect, dsn, migrationsDir string, logger *zap.Logger) (kv.Store, error) {
	db, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db, dialect, migrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	logger.Info("kv: using sql", zap.String("dialect", string(dialect)))
	return NewKVStore(db, dialect), nil
}
