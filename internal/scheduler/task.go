package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// Status represents the current state of a task in the queue.
type Status string

// Possible task status values
const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Task is one queue item: an opaque enrichment payload plus the lifecycle
// bookkeeping the scheduler maintains for it. A task has exactly one status
// at any time; its worker assignment is tracked out-of-band by the scheduler.
type Task struct {
	ID      uuid.UUID         `json:"id"`
	Kind    enrich.Kind       `json:"kind"`
	Payload json.RawMessage   `json:"payload"`
	Subject domain.SubjectRef `json:"subject"`

	Status      Status    `json:"status"`
	QueuedAt    time.Time `json:"queued_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Debug  *enrich.Debug   `json:"debug,omitempty"`
}

// EnqueueItem is the caller-supplied description of a task to admit.
type EnqueueItem struct {
	Kind    enrich.Kind       `json:"kind"`
	Payload json.RawMessage   `json:"payload"`
	Subject domain.SubjectRef `json:"subject"`
}

// Stats is a live snapshot of queue composition, for progress UIs.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Errored   int `json:"errored"`
	Total     int `json:"total"`
}

// Reconciler receives the normalized record of every completed task whose
// call configuration propagates results. It is the scheduler's sole
// integration point with application state.
//
// Apply is invoked synchronously from the scheduler's control path; it must
// not call back into the scheduler. An implementation that needs to enqueue
// follow-up work must defer that to its own goroutine.
type Reconciler interface {
	Apply(ctx context.Context, record *domain.EnrichmentRecord) error
}

// Resolver supplies the call configuration for a task's kind at dispatch
// time, so a task always runs with the latest configuration rather than
// whatever was current at enqueue.
type Resolver interface {
	Resolve(kind enrich.Kind) (enrich.CallConfig, error)
}
