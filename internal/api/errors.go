package api

import (
	"errors"
	"net/http"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/enrich"
	"github.com/lorekeep/chronicle-api/internal/scheduler"
	"github.com/lorekeep/chronicle-api/internal/store"
)

// statusForError maps scheduler and store errors to HTTP status codes, with a
// client-safe message. Unknown errors map to 500 with a generic message so
// internals never leak to the client.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		return http.StatusNotFound, "task not found"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, scheduler.ErrNoActiveRun):
		return http.StatusConflict, "no active run: open a run before enqueuing"
	case errors.Is(err, scheduler.ErrPoolNotInitialized):
		return http.StatusServiceUnavailable, "worker pool is not initialized"
	case errors.Is(err, scheduler.ErrSchedulerClosed):
		return http.StatusServiceUnavailable, "scheduler is shut down"
	case errors.Is(err, enrich.ErrUnknownKind):
		return http.StatusBadRequest, "unknown enrichment kind"
	case errors.Is(err, domain.ErrEmptyEntityID),
		errors.Is(err, domain.ErrInvalidEntityKind),
		errors.Is(err, domain.ErrEmptyField):
		return http.StatusBadRequest, "invalid enrichment subject"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "record already exists"
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest, "invalid record"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
