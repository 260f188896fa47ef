package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// inboxSize bounds how many execute messages a worker can hold before the
// sender drops them. The scheduler dispatches at most one task per worker at
// a time, so the buffer only absorbs protocol races.
const inboxSize = 16

// Dedicated is a worker backed by its own goroutine. Execute messages queue
// on a private inbox and run strictly one at a time.
type Dedicated struct {
	id     int
	exec   enrich.Executor
	out    chan<- Message
	inbox  chan enrich.Request
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	aborts map[uuid.UUID]context.CancelFunc
}

// NewDedicated creates a dedicated worker and starts its goroutine. The
// worker reports ready once the goroutine is running.
func NewDedicated(id int, exec enrich.Executor, out chan<- Message, logger *slog.Logger) *Dedicated {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dedicated{
		id:     id,
		exec:   exec,
		out:    out,
		inbox:  make(chan enrich.Request, inboxSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("component", "dedicated_worker", "worker_id", id),
		aborts: make(map[uuid.UUID]context.CancelFunc),
	}

	go d.loop()
	return d
}

// ID returns the worker's pool id.
func (d *Dedicated) ID() int { return d.id }

// Kind reports the dedicated backend.
func (d *Dedicated) Kind() Kind { return KindDedicated }

// Execute posts a request to the worker's inbox. Requests posted after
// termination, or past a full inbox, are dropped with a log entry; the
// scheduler's dispatch precondition makes overflow unreachable in practice.
func (d *Dedicated) Execute(req enrich.Request) {
	select {
	case d.inbox <- req:
	case <-d.ctx.Done():
		d.logger.Warn("execute after terminate, dropping request", "task_id", req.TaskID)
	default:
		d.logger.Error("worker inbox overflow, dropping request", "task_id", req.TaskID)
	}
}

// Abort cancels the identified task if it is currently running here.
func (d *Dedicated) Abort(taskID uuid.UUID) {
	d.mu.Lock()
	cancel, ok := d.aborts[taskID]
	d.mu.Unlock()
	if ok {
		d.logger.Debug("aborting task", "task_id", taskID)
		cancel()
	}
}

// Terminate stops the worker goroutine and cancels any running task.
func (d *Dedicated) Terminate() {
	d.cancel()
}

func (d *Dedicated) loop() {
	d.logger.Debug("starting worker")
	d.emit(Message{Type: MessageReady, WorkerID: d.id})

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("stopping worker")
			return
		case req := <-d.inbox:
			d.run(req)
		}
	}
}

// run executes one request and emits its terminal message.
func (d *Dedicated) run(req enrich.Request) {
	if d.exec == nil {
		d.emit(Message{
			Type:     MessageError,
			WorkerID: d.id,
			TaskID:   req.TaskID,
			Err:      ErrNotInitialized.Error(),
		})
		return
	}

	taskCtx, cancel := context.WithCancel(d.ctx)
	d.mu.Lock()
	d.aborts[req.TaskID] = cancel
	d.mu.Unlock()
	defer func() {
		cancel()
		d.mu.Lock()
		delete(d.aborts, req.TaskID)
		d.mu.Unlock()
	}()

	d.emit(Message{Type: MessageStarted, WorkerID: d.id, TaskID: req.TaskID})

	result, err := Run(taskCtx, d.exec, req, d.deltaFunc())
	if err != nil {
		d.emit(Message{Type: MessageError, WorkerID: d.id, TaskID: req.TaskID, Err: err.Error()})
		return
	}
	d.emit(Message{Type: MessageComplete, WorkerID: d.id, TaskID: req.TaskID, Result: result})
}

func (d *Dedicated) deltaFunc() func(enrich.Delta) {
	return func(delta enrich.Delta) {
		msgType := MessageTextDelta
		if delta.Thinking {
			msgType = MessageThinkingDelta
		}
		d.emit(Message{Type: msgType, WorkerID: d.id, TaskID: delta.TaskID, Delta: delta.Text})
	}
}

func (d *Dedicated) emit(msg Message) {
	select {
	case d.out <- msg:
	case <-d.ctx.Done():
	}
}

// Ensure Dedicated implements Handle
var _ Handle = (*Dedicated)(nil)
