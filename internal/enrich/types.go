package enrich

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Kind identifies what sort of enrichment a task performs.
type Kind string

// Supported enrichment kinds
const (
	// KindText generates descriptive prose for an entity field.
	KindText Kind = "text"

	// KindImage generates an illustration for an entity.
	KindImage Kind = "image"

	// KindNarrative synthesizes a narrative passage from several entities.
	KindNarrative Kind = "narrative"
)

// Valid reports whether k is a known enrichment kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindNarrative:
		return true
	}
	return false
}

// CallConfig is the resolved model-call configuration merged into a task at
// dispatch time. It tells the executor which model to use and tells the
// scheduler how the task participates in the queue.
type CallConfig struct {
	// Model is the provider model name to call.
	Model string `json:"model"`

	// InContext routes the task through the scheduler's in-context execution
	// path instead of dispatching it to a worker.
	InContext bool `json:"in_context"`

	// Propagate indicates the result should be handed to the reconciliation
	// bridge on completion. Image results skip it; their bytes stay on the
	// task record for a separate storage path.
	Propagate bool `json:"propagate"`
}

// Request is the execute message posted to a worker (or run in-context). It
// carries only what execution needs: queue bookkeeping fields never cross
// this boundary.
type Request struct {
	TaskID  uuid.UUID       `json:"task_id"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	Call    CallConfig      `json:"call"`
}

// Prompt is the payload shape shared by all enrichment kinds.
type Prompt struct {
	// Text is the assembled prompt for the model.
	Text string `json:"prompt"`

	// Style optionally constrains tone or rendering style.
	Style string `json:"style,omitempty"`
}

// Delta is one streamed fragment of model output.
type Delta struct {
	TaskID uuid.UUID `json:"task_id"`

	// Thinking marks reasoning output as opposed to final text.
	Thinking bool `json:"thinking"`

	Text string `json:"text"`
}

// Debug carries trace metadata about a model call, attached to the task for
// inspection but never used by scheduling logic.
type Debug struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	LatencyMS int64  `json:"latency_ms"`
}

// Result is the terminal output of a successful execution.
type Result struct {
	Output json.RawMessage `json:"output"`
	Debug  *Debug          `json:"debug,omitempty"`
}

// TextOutput is the normalized output record for text and narrative kinds.
type TextOutput struct {
	Text string `json:"text"`
}

// ImageOutput is the normalized output record for image generation.
type ImageOutput struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}
