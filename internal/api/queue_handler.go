package api

import (
	"log/slog"
	"net/http"

	"github.com/lorekeep/chronicle-api/internal/api/shared"
	"github.com/lorekeep/chronicle-api/internal/scheduler"
)

// QueueHandler exposes read-only queue state and housekeeping operations.
type QueueHandler struct {
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// NewQueueHandler creates a new QueueHandler. If logger is nil, a default
// logger will be used.
func NewQueueHandler(sched *scheduler.Scheduler, logger *slog.Logger) *QueueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueHandler{
		scheduler: sched,
		logger:    logger.With(slog.String("component", "queue_handler")),
	}
}

// Stats handles GET /api/queue/stats requests.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, statsToResponse(h.scheduler.Stats()))
}

// Tasks handles GET /api/queue/tasks requests, returning the queue in
// insertion order.
func (h *QueueHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.scheduler.Tasks()
	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = taskToResponse(t)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// ClearCompleted handles POST /api/queue/clear-completed requests.
func (h *QueueHandler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed := h.scheduler.ClearCompleted()
	h.logger.Info("cleared completed tasks via API", slog.Int("removed", removed))
	shared.RespondWithJSON(w, r, http.StatusOK, ClearCompletedResponse{Removed: removed})
}
