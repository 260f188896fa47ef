package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/api/shared"
	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/store"
)

// RecordHandler serves persisted enrichment records.
type RecordHandler struct {
	records store.EnrichmentStore
	logger  *slog.Logger
}

// NewRecordHandler creates a new RecordHandler. If logger is nil, a default
// logger will be used.
func NewRecordHandler(records store.EnrichmentStore, logger *slog.Logger) *RecordHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordHandler{
		records: records,
		logger:  logger.With(slog.String("component", "record_handler")),
	}
}

// Get handles GET /api/records/{id} requests.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid record ID")
		return
	}

	record, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(record))
}

// List handles GET /api/records requests. Records are filtered either by
// subject (entity_id + entity_kind + field) or by run_id; one of the two
// filters is required.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := intQuery(q.Get("limit"), 20)
	offset := intQuery(q.Get("offset"), 0)

	if runID := q.Get("run_id"); runID != "" {
		records, err := h.records.ListByRun(r.Context(), runID, limit, offset)
		if err != nil {
			status, message := statusForError(err)
			shared.RespondWithErrorAndLog(w, r, status, message, err)
			return
		}
		h.respondList(w, r, records)
		return
	}

	entityID, err := uuid.Parse(q.Get("entity_id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Provide either run_id or a valid entity_id filter")
		return
	}
	subject := domain.SubjectRef{
		EntityID:   entityID,
		EntityKind: domain.EntityKind(q.Get("entity_kind")),
		Field:      q.Get("field"),
	}
	if err := subject.Validate(); err != nil {
		status, message := statusForError(err)
		shared.RespondWithError(w, r, status, message)
		return
	}

	records, err := h.records.ListBySubject(r.Context(), subject, limit, offset)
	if err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}
	h.respondList(w, r, records)
}

// Delete handles DELETE /api/records/{id} requests.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid record ID")
		return
	}

	if err := h.records.Delete(r.Context(), id); err != nil {
		status, message := statusForError(err)
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) respondList(w http.ResponseWriter, r *http.Request, records []*domain.EnrichmentRecord) {
	out := make([]RecordResponse, len(records))
	for i, record := range records {
		out[i] = recordToResponse(record)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

func intQuery(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
