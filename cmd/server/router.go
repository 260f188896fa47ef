package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lorekeep/chronicle-api/internal/api"
	apiMiddleware "github.com/lorekeep/chronicle-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	enrichmentHandler := api.NewEnrichmentHandler(app.scheduler, app.logger)
	queueHandler := api.NewQueueHandler(app.scheduler, app.logger)
	recordHandler := api.NewRecordHandler(app.enrichmentStore, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Run sessions
		r.Post("/runs", enrichmentHandler.BeginRun)

		// Task queue
		r.Post("/enrichments", enrichmentHandler.Enqueue)
		r.Delete("/enrichments", enrichmentHandler.CancelAll)
		r.Delete("/enrichments/{id}", enrichmentHandler.Cancel)
		r.Post("/enrichments/{id}/retry", enrichmentHandler.Retry)

		r.Get("/queue/stats", queueHandler.Stats)
		r.Get("/queue/tasks", queueHandler.Tasks)
		r.Post("/queue/clear-completed", queueHandler.ClearCompleted)

		// Persisted results
		r.Get("/records", recordHandler.List)
		r.Get("/records/{id}", recordHandler.Get)
		r.Delete("/records/{id}", recordHandler.Delete)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
