package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// sharedInboxSize bounds the shared runtime's job queue across all handles.
const sharedInboxSize = 64

// Runtime lifecycle errors
var (
	ErrAlreadyStarted = errors.New("shared runtime is already started")
)

// sharedJob pairs a request with the handle it was submitted through, so the
// runtime can report back with the right worker id. done is the handle's
// detach signal: once it closes, messages for this job are dropped so a
// terminated handle's unread channel cannot block the runtime loop.
type sharedJob struct {
	req      enrich.Request
	out      chan<- Message
	done     <-chan struct{}
	workerID int
}

// SharedRuntime is a single process-wide execution loop that serves every
// shared worker handle. It is the analog of a cross-context shared worker:
// handles come and go with pool rebuilds while the runtime persists.
type SharedRuntime struct {
	logger *slog.Logger

	mu      sync.Mutex
	exec    enrich.Executor
	inbox   chan sharedJob
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	aborts  map[uuid.UUID]context.CancelFunc
}

// NewSharedRuntime creates a stopped shared runtime.
func NewSharedRuntime(logger *slog.Logger) *SharedRuntime {
	return &SharedRuntime{
		logger: logger.With("component", "shared_runtime"),
		aborts: make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start launches the runtime loop with the given executor.
func (rt *SharedRuntime) Start(exec enrich.Executor) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.running {
		return ErrAlreadyStarted
	}

	rt.exec = exec
	rt.inbox = make(chan sharedJob, sharedInboxSize)
	rt.ctx, rt.cancel = context.WithCancel(context.Background())
	rt.running = true

	go rt.loop(rt.ctx, rt.inbox)
	rt.logger.Info("shared runtime started")
	return nil
}

// Stop halts the runtime loop and cancels any running task. Handles that
// submit afterwards receive not-initialized errors.
func (rt *SharedRuntime) Stop() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.running {
		return
	}
	rt.cancel()
	rt.running = false
	rt.logger.Info("shared runtime stopped")
}

// Running reports whether the runtime loop is serving jobs.
func (rt *SharedRuntime) Running() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.running
}

// submit hands a job to the runtime loop. Returns false if the runtime is
// not running or its inbox is saturated.
func (rt *SharedRuntime) submit(job sharedJob) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.running {
		return false
	}
	select {
	case rt.inbox <- job:
		return true
	default:
		rt.logger.Error("shared runtime inbox overflow", "task_id", job.req.TaskID)
		return false
	}
}

// abort cancels the identified task if it is running in the shared loop.
func (rt *SharedRuntime) abort(taskID uuid.UUID) {
	rt.mu.Lock()
	cancel, ok := rt.aborts[taskID]
	rt.mu.Unlock()
	if ok {
		cancel()
	}
}

func (rt *SharedRuntime) loop(ctx context.Context, inbox <-chan sharedJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-inbox:
			rt.run(ctx, job)
		}
	}
}

// run executes one job, reporting through the submitting handle's channel.
func (rt *SharedRuntime) run(ctx context.Context, job sharedJob) {
	taskCtx, cancel := context.WithCancel(ctx)
	rt.mu.Lock()
	exec := rt.exec
	rt.aborts[job.req.TaskID] = cancel
	rt.mu.Unlock()
	defer func() {
		cancel()
		rt.mu.Lock()
		delete(rt.aborts, job.req.TaskID)
		rt.mu.Unlock()
	}()

	emit := func(msg Message) {
		select {
		case job.out <- msg:
		case <-job.done:
		case <-ctx.Done():
		}
	}

	emit(Message{Type: MessageStarted, WorkerID: job.workerID, TaskID: job.req.TaskID})

	onDelta := func(delta enrich.Delta) {
		msgType := MessageTextDelta
		if delta.Thinking {
			msgType = MessageThinkingDelta
		}
		emit(Message{Type: msgType, WorkerID: job.workerID, TaskID: delta.TaskID, Delta: delta.Text})
	}

	result, err := Run(taskCtx, exec, job.req, onDelta)
	if err != nil {
		emit(Message{Type: MessageError, WorkerID: job.workerID, TaskID: job.req.TaskID, Err: err.Error()})
		return
	}
	emit(Message{Type: MessageComplete, WorkerID: job.workerID, TaskID: job.req.TaskID, Result: result})
}

// Shared is a worker handle multiplexed onto the shared runtime.
type Shared struct {
	id   int
	rt   *SharedRuntime
	out  chan<- Message
	done chan struct{}
	once sync.Once
}

// NewShared creates a shared-backend handle. The handle acknowledges
// readiness as soon as it is attached; initialization failures surface at
// execute time as not-initialized errors.
func NewShared(id int, rt *SharedRuntime, out chan<- Message) *Shared {
	s := &Shared{
		id:   id,
		rt:   rt,
		out:  out,
		done: make(chan struct{}),
	}

	go func() {
		select {
		case s.out <- Message{Type: MessageReady, WorkerID: s.id}:
		case <-s.done:
		}
	}()

	return s
}

// ID returns the worker's pool id.
func (s *Shared) ID() int { return s.id }

// Kind reports the shared backend.
func (s *Shared) Kind() Kind { return KindShared }

// Execute submits the request to the shared runtime. If the runtime is gone,
// the handle reports the not-initialized infrastructure failure so the
// scheduler's reconnect supervisor can rebuild the pool.
func (s *Shared) Execute(req enrich.Request) {
	if s.rt == nil || !s.rt.submit(sharedJob{req: req, out: s.out, done: s.done, workerID: s.id}) {
		msg := Message{
			Type:     MessageError,
			WorkerID: s.id,
			TaskID:   req.TaskID,
			Err:      ErrNotInitialized.Error(),
		}
		select {
		case s.out <- msg:
		case <-s.done:
		}
	}
}

// Abort forwards the abort to the shared runtime.
func (s *Shared) Abort(taskID uuid.UUID) {
	if s.rt != nil {
		s.rt.abort(taskID)
	}
}

// Terminate detaches the handle. The shared runtime keeps running; messages
// for tasks it is still executing on this handle's behalf are dropped rather
// than written to a channel nobody reads past the scheduler's pool rebuild.
func (s *Shared) Terminate() {
	s.once.Do(func() { close(s.done) })
}

// Ensure Shared implements Handle
var _ Handle = (*Shared)(nil)
