package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/logging"
	"outlook/api/internal/store"
)

func main() {
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("OUTLOOK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opsctl",
		Short: "Outlook operator CLI",
		Long: `opsctl works the weekly review loop from a terminal.
- runs: list the review runs on disk, or convert a legacy run file.
- decisions: show or clear the operator decisions stored for a run.
- patch: parse a publish patch, or publish it into the override layer.
- trending: show the most viewed company pages.`,
		SilenceUsage: true,
	}
	addPersistentFlags(root)
	root.AddCommand(patchCmd())
	root.AddCommand(decisionsCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(trendingCmd())
	return root
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("data-dir", "", "data directory (overrides DATA_DIR)")
	root.PersistentFlags().String("kv-backend", "", "redis, postgres, sqlite or memory (overrides KV_BACKEND)")
	root.PersistentFlags().String("redis-url", "", "redis url (overrides REDIS_URL)")
	root.PersistentFlags().String("database-url", "", "postgres dsn (overrides DATABASE_URL)")
	root.PersistentFlags().String("sqlite-path", "", "sqlite file (overrides SQLITE_PATH)")
	root.PersistentFlags().Bool("debug", false, "debug logging")
	for _, name := range []string{"json", "data-dir", "kv-backend", "redis-url", "database-url", "sqlite-path", "debug"} {
		_ = viper.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}
}

// loadConfig layers OUTLOOK_* variables and flags over the server config.
func loadConfig() config.Config {
	cfg := config.Load()
	if v := viper.GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v := viper.GetString("kv-backend"); v != "" {
		cfg.KVBackend = strings.ToLower(v)
	}
	if v := viper.GetString("redis-url"); v != "" {
		cfg.RedisURL = v
	}
	if v := viper.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := viper.GetString("sqlite-path"); v != "" {
		cfg.SQLitePath = v
	}
	if viper.GetBool("debug") {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New("console", cfg.Debug())
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func withStore(ctx context.Context, fn func(context.Context, config.Config, kv.Store, *zap.Logger) error) error {
	cfg := loadConfig()
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	kvStore, err := store.OpenKV(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer kvStore.Close()
	return fn(ctx, cfg, kvStore, logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(header)
	return tw
}
