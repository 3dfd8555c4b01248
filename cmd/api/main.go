package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/app"
	"outlook/api/internal/config"
	"outlook/api/internal/logging"
	"outlook/api/internal/ops"
	"outlook/api/internal/outlook"
	"outlook/api/internal/search"
	"outlook/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	logger, err := logging.New(cfg.LogFormat, cfg.Debug())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := outlook.LoadCatalog(filepath.Join(cfg.DataDir, "companies.json"))
	if err != nil {
		logger.Fatal("loading companies failed", zap.Error(err))
	}
	runs, err := ops.LoadRuns(filepath.Join(cfg.DataDir, "runs"))
	if err != nil {
		logger.Fatal("loading runs failed", zap.Error(err))
	}

	kvStore, err := store.OpenKV(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("kv connection failed", zap.String("backend", cfg.KVBackend), zap.Error(err))
	}
	defer kvStore.Close()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewLocal(catalog.All()), logger)

	service := app.New(cfg, kvStore, catalog, ops.NewRunIndex(runs), searchService, logger)
	service.Bootstrap(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("outlook API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}
