package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lorekeep/chronicle-api/internal/config"
	"github.com/lorekeep/chronicle-api/internal/enrich"
	"github.com/lorekeep/chronicle-api/internal/events"
	"github.com/lorekeep/chronicle-api/internal/platform/postgres"
	"github.com/lorekeep/chronicle-api/internal/scheduler"
	"github.com/lorekeep/chronicle-api/internal/store"
	"github.com/lorekeep/chronicle-api/internal/worker"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	enrichmentStore store.EnrichmentStore

	executor      enrich.Executor
	resolver      *enrich.CallResolver
	sharedRuntime *worker.SharedRuntime
	scheduler     *scheduler.Scheduler
	progress      *events.FanoutSink
}

// newApplication creates a new application instance with all dependencies
// initialized. Core dependencies like configuration, logger, and database
// connection must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	enrichmentStore := postgres.NewPostgresEnrichmentStore(db, logger)
	app.enrichmentStore = enrichmentStore

	executor, err := enrich.NewGeminiExecutor(
		ctx,
		logger.With("component", "gemini_executor"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini executor: %w", err)
	}
	app.executor = executor
	logger.Info("Gemini executor initialized",
		"text_model", cfg.LLM.TextModel,
		"image_model", cfg.LLM.ImageModel)

	app.resolver = enrich.NewCallResolver(cfg.LLM, cfg.Scheduler.InContextKinds)

	workerKind := worker.Kind(cfg.Scheduler.WorkerKind)
	if workerKind == worker.KindShared {
		app.sharedRuntime = worker.NewSharedRuntime(logger)
		if err := app.sharedRuntime.Start(executor); err != nil {
			return nil, fmt.Errorf("failed to start shared worker runtime: %w", err)
		}
		logger.Info("shared worker runtime started")
	}
	factory := worker.NewFactory(workerKind, executor, app.sharedRuntime, logger)

	app.progress = events.NewFanoutSink(logger)
	app.progress.Register(events.NewLogSink(logger))

	metrics := scheduler.NewMetrics(prometheus.DefaultRegisterer)

	app.scheduler = scheduler.New(
		scheduler.Config{WorkerCount: cfg.Scheduler.WorkerCount},
		factory,
		executor,
		app.resolver,
		enrichmentStore,
		app.progress,
		metrics,
		logger,
	)
	if err := app.scheduler.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Shutdown()
	}
	if app.sharedRuntime != nil {
		app.sharedRuntime.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
