package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/api/shared"
	"github.com/lorekeep/chronicle-api/internal/scheduler"
)

// EnrichmentHandler handles run-session and task-queue HTTP requests.
type EnrichmentHandler struct {
	scheduler *scheduler.Scheduler
	validator *validator.Validate
	logger    *slog.Logger
}

// NewEnrichmentHandler creates a new EnrichmentHandler. If logger is nil, a
// default logger will be used.
func NewEnrichmentHandler(sched *scheduler.Scheduler, logger *slog.Logger) *EnrichmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichmentHandler{
		scheduler: sched,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "enrichment_handler")),
	}
}

// BeginRun handles POST /api/runs requests. It opens a run session; tasks can
// only be enqueued inside one.
func (h *EnrichmentHandler) BeginRun(w http.ResponseWriter, r *http.Request) {
	var req BeginRunRequest
	// An empty body is allowed; the run id is generated server-side.
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	runID := h.scheduler.BeginRun(req.RunID)
	shared.RespondWithJSON(w, r, http.StatusCreated, RunResponse{RunID: runID})
}

// Enqueue handles POST /api/enrichments requests. Admitted tasks run
// asynchronously, so the response is 202 Accepted with the task ids.
func (h *EnrichmentHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ids, err := h.scheduler.Enqueue(enqueueItemsFromRequest(req.Items))
	if err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	h.logger.Info("tasks enqueued", slog.Int("count", len(ids)))
	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{TaskIDs: ids})
}

// Cancel handles DELETE /api/enrichments/{id} requests.
func (h *EnrichmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.Cancel(id); err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CancelAll handles DELETE /api/enrichments requests.
func (h *EnrichmentHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	h.scheduler.CancelAll()
	w.WriteHeader(http.StatusNoContent)
}

// Retry handles POST /api/enrichments/{id}/retry requests. Retrying a task
// that is not in error is accepted and leaves the task unchanged.
func (h *EnrichmentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.Retry(id); err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *EnrichmentHandler) taskIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}
