package enrich

import "context"

// Executor fulfils enrichment requests against an external generative model.
// This interface is the boundary between the scheduling core and the model
// integration; workers and the in-context fallback both run requests through
// it.
type Executor interface {
	// Execute runs the request to completion, invoking onDelta for each
	// streamed output fragment. onDelta may be nil. Cancelling ctx aborts the
	// underlying call.
	Execute(ctx context.Context, req Request, onDelta func(Delta)) (*Result, error)
}
