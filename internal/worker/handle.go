package worker

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// Kind identifies which backing primitive a worker handle uses.
type Kind string

// Worker backend kinds
const (
	// KindDedicated gives each worker its own goroutine.
	KindDedicated Kind = "dedicated"

	// KindShared multiplexes all workers onto one process-wide runtime.
	KindShared Kind = "shared"
)

// Handle is the uniform interface over both worker backends. The scheduler
// never branches on the backend in use except for teardown semantics, which
// Terminate encapsulates.
type Handle interface {
	// ID returns the worker's stable numeric id within the pool.
	ID() int

	// Kind reports which backend the handle uses.
	Kind() Kind

	// Execute posts an execute message to the worker. It never blocks the
	// caller; execution happens out-of-band and reports back via messages.
	Execute(req enrich.Request)

	// Abort signals the worker to halt the identified task, best-effort.
	// Workers can hold multiple logical tasks, so the id selects which one.
	Abort(taskID uuid.UUID)

	// Terminate tears the handle down. For dedicated workers this stops the
	// backing goroutine; for shared workers it detaches the handle while the
	// shared runtime keeps serving other pools.
	Terminate()
}

// Factory creates the worker with the given pool id, wired to send protocol
// messages to out. The scheduler rebuilds pools through it, and tests inject
// scripted implementations.
type Factory func(id int, out chan<- Message) Handle

// NewFactory returns the production factory for the configured backend kind.
// If the shared backend is requested but the shared runtime is not running,
// it falls back to dedicated workers so pool creation always succeeds.
func NewFactory(kind Kind, exec enrich.Executor, rt *SharedRuntime, logger *slog.Logger) Factory {
	if kind == KindShared && (rt == nil || !rt.Running()) {
		logger.Warn("shared worker runtime unavailable, falling back to dedicated workers")
		kind = KindDedicated
	}

	return func(id int, out chan<- Message) Handle {
		if kind == KindShared {
			return NewShared(id, rt, out)
		}
		return NewDedicated(id, exec, out, logger)
	}
}
