// Package main implements the entry point for the chronicle API server,
// which schedules generative enrichment tasks for chronicle entities and
// persists their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/lorekeep/chronicle-api/internal/config"
	"github.com/lorekeep/chronicle-api/internal/platform/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"worker_count", cfg.Scheduler.WorkerCount,
		"worker_kind", cfg.Scheduler.WorkerKind)

	if err := run(cfg, appLogger, *migrateOnly); err != nil {
		appLogger.Error("server exited with error", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}

func run(cfg *config.Config, appLogger *slog.Logger, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := runMigrations(db, appLogger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if migrateOnly {
		appLogger.Info("migrations applied, exiting")
		return db.Close()
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
