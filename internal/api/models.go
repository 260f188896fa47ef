package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/enrich"
	"github.com/lorekeep/chronicle-api/internal/scheduler"
)

// BeginRunRequest represents the request body for opening a run session.
// RunID is optional; a fresh one is generated when omitted.
type BeginRunRequest struct {
	RunID string `json:"run_id" validate:"omitempty,max=128"`
}

// RunResponse represents the response data for a run session.
type RunResponse struct {
	RunID string `json:"run_id"`
}

// SubjectRequest identifies the entity field an enrichment targets.
type SubjectRequest struct {
	EntityID   uuid.UUID `json:"entity_id"   validate:"required"`
	EntityKind string    `json:"entity_kind" validate:"required,oneof=character location event chronicle"`
	Field      string    `json:"field"       validate:"required,min=1,max=128"`
}

// EnqueueItemRequest represents one task in an enqueue request.
type EnqueueItemRequest struct {
	Kind    string          `json:"kind"    validate:"required,oneof=text image narrative"`
	Payload json.RawMessage `json:"payload" validate:"required"`
	Subject SubjectRequest  `json:"subject" validate:"required"`
}

// EnqueueRequest represents the request body for enqueuing enrichment tasks.
type EnqueueRequest struct {
	Items []EnqueueItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// EnqueueResponse carries the ids of the admitted tasks, in request order.
type EnqueueResponse struct {
	TaskIDs []uuid.UUID `json:"task_ids"`
}

// TaskResponse represents one task's queue state.
type TaskResponse struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Subject     SubjectRequest  `json:"subject"`
	QueuedAt    time.Time       `json:"queued_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StatsResponse represents queue composition counts.
type StatsResponse struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Errored   int `json:"errored"`
	Total     int `json:"total"`
}

// ClearCompletedResponse reports how many tasks a clear pass removed.
type ClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// RecordResponse represents a persisted enrichment record.
type RecordResponse struct {
	ID        uuid.UUID       `json:"id"`
	Subject   SubjectRequest  `json:"subject"`
	RunID     string          `json:"run_id"`
	Kind      string          `json:"kind"`
	Model     string          `json:"model"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

func subjectFromRequest(s SubjectRequest) domain.SubjectRef {
	return domain.SubjectRef{
		EntityID:   s.EntityID,
		EntityKind: domain.EntityKind(s.EntityKind),
		Field:      s.Field,
	}
}

func subjectToResponse(s domain.SubjectRef) SubjectRequest {
	return SubjectRequest{
		EntityID:   s.EntityID,
		EntityKind: string(s.EntityKind),
		Field:      s.Field,
	}
}

func enqueueItemsFromRequest(items []EnqueueItemRequest) []scheduler.EnqueueItem {
	out := make([]scheduler.EnqueueItem, len(items))
	for i, item := range items {
		out[i] = scheduler.EnqueueItem{
			Kind:    enrich.Kind(item.Kind),
			Payload: item.Payload,
			Subject: subjectFromRequest(item.Subject),
		}
	}
	return out
}

func taskToResponse(t scheduler.Task) TaskResponse {
	resp := TaskResponse{
		ID:       t.ID,
		Kind:     string(t.Kind),
		Status:   string(t.Status),
		Subject:  subjectToResponse(t.Subject),
		QueuedAt: t.QueuedAt,
		Result:   t.Result,
		Error:    t.Error,
	}
	if !t.StartedAt.IsZero() {
		started := t.StartedAt
		resp.StartedAt = &started
	}
	if !t.CompletedAt.IsZero() {
		completed := t.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

func statsToResponse(st scheduler.Stats) StatsResponse {
	return StatsResponse{
		Queued:    st.Queued,
		Running:   st.Running,
		Completed: st.Completed,
		Errored:   st.Errored,
		Total:     st.Total,
	}
}

func recordToResponse(r *domain.EnrichmentRecord) RecordResponse {
	return RecordResponse{
		ID:        r.ID,
		Subject:   subjectToResponse(r.Subject),
		RunID:     r.RunID,
		Kind:      r.Kind,
		Model:     r.Model,
		Output:    r.Output,
		CreatedAt: r.CreatedAt,
	}
}
