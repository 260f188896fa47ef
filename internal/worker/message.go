package worker

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// MessageType identifies a lifecycle message sent from a worker to the
// scheduler.
type MessageType string

// Message types in the worker protocol
const (
	// MessageReady signals the worker acknowledged initialization.
	MessageReady MessageType = "ready"

	// MessageStarted signals execution of a task began.
	MessageStarted MessageType = "started"

	// MessageThinkingDelta carries a streamed reasoning fragment.
	MessageThinkingDelta MessageType = "thinking_delta"

	// MessageTextDelta carries a streamed output fragment.
	MessageTextDelta MessageType = "text_delta"

	// MessageComplete carries the terminal result of a task.
	MessageComplete MessageType = "complete"

	// MessageError carries the terminal failure of a task.
	MessageError MessageType = "error"
)

// ErrNotInitialized is the infrastructure failure reported when a worker's
// backing primitive was never initialized. The scheduler recognizes it by
// text and engages the reconnect supervisor.
var ErrNotInitialized = errors.New("worker not initialized")

// IsNotInitialized reports whether an error string from a worker indicates
// the not-initialized infrastructure failure.
func IsNotInitialized(errText string) bool {
	return strings.Contains(strings.ToLower(errText), "worker not initialized")
}

// Message is one inbound protocol message from a worker (or the in-context
// execution path) to the scheduler.
type Message struct {
	Type     MessageType
	WorkerID int

	// TaskID is set on every message type except ready.
	TaskID uuid.UUID

	// Delta is the streamed fragment for thinking_delta and text_delta.
	Delta string

	// Result is set on complete.
	Result *enrich.Result

	// Err is the failure text on error messages.
	Err string
}
