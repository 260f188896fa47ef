package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/enrich"
	"github.com/lorekeep/chronicle-api/internal/events"
	"github.com/lorekeep/chronicle-api/internal/worker"
)

// messageBuffer sizes each pool's inbound message channel. It must absorb
// every worker's burst of protocol messages while the control path holds the
// scheduler lock, including the ready burst emitted during a pool rebuild.
const messageBuffer = 256

// Common errors returned by the Scheduler
var (
	ErrSchedulerClosed    = errors.New("scheduler is closed")
	ErrNoActiveRun        = errors.New("no active run: begin a run before enqueuing tasks")
	ErrPoolNotInitialized = errors.New("worker pool is not initialized")
	ErrTaskNotFound       = errors.New("task not found")
)

// Config holds configuration for the Scheduler.
type Config struct {
	// WorkerCount is the size of the worker pool. If zero or negative, a
	// default of 4 is used.
	WorkerCount int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{WorkerCount: 4}
}

// Scheduler owns the task queue and the worker pool. All queue mutations and
// scheduling decisions happen under one mutex: public operations lock it
// directly, and a single goroutine per pool drains worker messages and locks
// per message. That serialization is what makes the state machine safe
// without any further coordination beyond the in-flight-reconnect flag and
// the inline side table.
type Scheduler struct {
	cfg        Config
	factory    worker.Factory
	exec       enrich.Executor
	resolver   Resolver
	reconciler Reconciler
	progress   events.Sink
	metrics    *Metrics
	logger     *slog.Logger

	mu    sync.Mutex
	runID string

	tasks       []*Task
	byID        map[uuid.UUID]*Task
	assignments map[uuid.UUID]int

	workers   []*workerState
	msgs      chan worker.Message
	stopPool  chan struct{}
	poolReady bool

	// reconnecting guards against concurrent pool rebuilds; see reconnect.go.
	reconnecting      bool
	reconnectAttempts map[uuid.UUID]int
	autoRetry         map[uuid.UUID]struct{}

	// inline tracks tasks executing in the scheduler's own context, so a
	// redundant dispatch pass cannot pick them up again and cancel can reach
	// them. Values abort the inline execution.
	inline map[uuid.UUID]context.CancelFunc

	closed bool
	wg     sync.WaitGroup
}

// New creates a Scheduler. The factory builds pool workers on (re)initialize;
// exec runs tasks routed through the in-context path; resolver supplies the
// call configuration merged into each dispatch; reconciler may be nil to skip
// result propagation; progress may be nil to discard progress events;
// metrics may be nil to record nothing.
func New(
	cfg Config,
	factory worker.Factory,
	exec enrich.Executor,
	resolver Resolver,
	reconciler Reconciler,
	progress events.Sink,
	metrics *Metrics,
	logger *slog.Logger,
) *Scheduler {
	if cfg.WorkerCount <= 0 {
		def := DefaultConfig().WorkerCount
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", def)
		cfg.WorkerCount = def
	}
	if progress == nil {
		progress = events.NopSink{}
	}

	return &Scheduler{
		cfg:               cfg,
		factory:           factory,
		exec:              exec,
		resolver:          resolver,
		reconciler:        reconciler,
		progress:          progress,
		metrics:           metrics,
		logger:            logger.With("component", "scheduler"),
		byID:              make(map[uuid.UUID]*Task),
		assignments:       make(map[uuid.UUID]int),
		reconnectAttempts: make(map[uuid.UUID]int),
		autoRetry:         make(map[uuid.UUID]struct{}),
		inline:            make(map[uuid.UUID]context.CancelFunc),
	}
}

// BeginRun opens a run session and returns its identifier. If runID is empty
// a fresh one is generated. Enqueue requires an open run.
func (s *Scheduler) BeginRun(runID string) string {
	if runID == "" {
		runID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
	s.logger.Info("run started", "run_id", runID)
	return runID
}

// RunID returns the current run identifier, or empty if no run is open.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Initialize tears down any existing pool and builds a new one, re-attaching
// message handling and re-assigning still-queued tasks to the new workers.
func (s *Scheduler) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.initializePoolLocked()
	return nil
}

// initializePoolLocked rebuilds the worker pool: the previous pool's message
// consumer is stopped, its handles terminated, and a fresh pool with a fresh
// message channel takes over. Tasks orphaned mid-run by the teardown go back
// to queued so the new pool picks them up.
func (s *Scheduler) initializePoolLocked() {
	if s.stopPool != nil {
		close(s.stopPool)
	}
	for _, w := range s.workers {
		w.handle.Terminate()
	}

	s.msgs = make(chan worker.Message, messageBuffer)
	s.stopPool = make(chan struct{})
	s.wg.Add(1)
	go s.consume(s.msgs, s.stopPool)

	s.workers = make([]*workerState, s.cfg.WorkerCount)
	for i := range s.workers {
		s.workers[i] = newWorkerState(i)
	}
	for _, w := range s.workers {
		w.handle = s.factory(w.id, s.msgs)
	}
	s.poolReady = false

	s.reassignQueuedLocked()
	s.logger.Info("worker pool initialized", "worker_count", len(s.workers))
}

// reassignQueuedLocked re-runs assignment for every task the new pool should
// eventually execute. Workers acknowledge readiness asynchronously, so the
// selector usually sees no ready worker here and assignment falls back to
// worker 0; the scheduler loop still visits every queued task once readiness
// arrives, so placement evens out as tasks drain.
func (s *Scheduler) reassignQueuedLocked() {
	for _, t := range s.tasks {
		if t.Status != StatusRunning {
			continue
		}
		if _, ok := s.inline[t.ID]; ok {
			continue
		}
		// The worker running this task is gone and can no longer report.
		t.Status = StatusQueued
		t.StartedAt = time.Time{}
	}

	for _, t := range s.tasks {
		if t.Status != StatusQueued {
			continue
		}
		w := selectWorker(s.workers, s.byID)
		wid := 0
		if w != nil {
			wid = w.id
		}
		s.assignments[t.ID] = wid
		s.workers[wid].pending[t.ID] = struct{}{}
	}
}

// Enqueue admits one or more tasks, assigning each to the least-busy worker
// as the batch builds up so a burst does not pile onto a single worker.
// Returns the admitted task ids in order.
func (s *Scheduler) Enqueue(items []EnqueueItem) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}
	if s.runID == "" {
		s.logger.Error("enqueue rejected: no active run", "item_count", len(items))
		return nil, ErrNoActiveRun
	}
	if len(s.workers) == 0 {
		return nil, ErrPoolNotInitialized
	}

	for _, item := range items {
		if !item.Kind.Valid() {
			return nil, fmt.Errorf("%w: %q", enrich.ErrUnknownKind, item.Kind)
		}
		if err := item.Subject.Validate(); err != nil {
			return nil, fmt.Errorf("invalid subject: %w", err)
		}
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		t := &Task{
			ID:       uuid.New(),
			Kind:     item.Kind,
			Payload:  item.Payload,
			Subject:  item.Subject,
			Status:   StatusQueued,
			QueuedAt: time.Now().UTC(),
		}

		// Selection sees the batch-so-far through the pending sets, keeping
		// assignment and queue mutation a single atomic step.
		w := selectWorker(s.workers, s.byID)
		wid := 0
		if w != nil {
			wid = w.id
		}

		s.tasks = append(s.tasks, t)
		s.byID[t.ID] = t
		s.assignments[t.ID] = wid
		s.workers[wid].pending[t.ID] = struct{}{}
		ids = append(ids, t.ID)

		s.logger.Debug("task enqueued",
			"task_id", t.ID,
			"kind", t.Kind,
			"worker_id", wid,
			"queue_len", len(s.tasks))
	}

	s.dispatchLocked()
	s.observeLocked()
	return ids, nil
}

// Cancel removes a task from the queue. A running task's executor is told to
// abort, best-effort, and its worker slot frees immediately.
func (s *Scheduler) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	t, ok := s.byID[id]
	if !ok {
		return ErrTaskNotFound
	}

	if t.Status == StatusRunning {
		if cancel, inlined := s.inline[id]; inlined {
			cancel()
		} else if wid, assigned := s.assignments[id]; assigned {
			if w := s.workerLocked(wid); w != nil {
				w.handle.Abort(id)
				if w.current == id {
					w.current = uuid.Nil
				}
			}
		}
	}

	s.removeTaskLocked(t)
	s.logger.Info("task cancelled", "task_id", id)
	s.dispatchLocked()
	s.observeLocked()
	return nil
}

// CancelAll aborts every worker's current task and empties the queue.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for _, w := range s.workers {
		if w.current != uuid.Nil {
			w.handle.Abort(w.current)
			w.current = uuid.Nil
		}
		w.pending = make(map[uuid.UUID]struct{})
	}
	for _, cancel := range s.inline {
		cancel()
	}

	s.inline = make(map[uuid.UUID]context.CancelFunc)
	s.assignments = make(map[uuid.UUID]int)
	s.reconnectAttempts = make(map[uuid.UUID]int)
	s.autoRetry = make(map[uuid.UUID]struct{})
	s.tasks = nil
	s.byID = make(map[uuid.UUID]*Task)

	s.logger.Info("all tasks cancelled")
	s.observeLocked()
}

// Retry re-queues a task that ended in error. Retrying a task in any other
// status is a no-op.
func (s *Scheduler) Retry(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	t, ok := s.byID[id]
	if !ok {
		return ErrTaskNotFound
	}

	if s.retryLocked(t) {
		s.dispatchLocked()
		s.observeLocked()
	}
	return nil
}

// retryLocked resets an errored task to queued with a fresh assignment.
// Assignment and status mutation happen together in this one critical
// section, so a concurrent enqueue can never observe a half-retried task.
func (s *Scheduler) retryLocked(t *Task) bool {
	if t.Status != StatusError {
		s.logger.Debug("retry ignored for task not in error",
			"task_id", t.ID,
			"status", t.Status)
		return false
	}

	w := selectWorker(s.workers, s.byID)
	wid := 0
	if w != nil {
		wid = w.id
	}
	s.assignments[t.ID] = wid
	s.workers[wid].pending[t.ID] = struct{}{}

	t.Status = StatusQueued
	t.QueuedAt = time.Now().UTC()
	t.StartedAt = time.Time{}
	t.CompletedAt = time.Time{}
	t.Error = ""
	t.Result = nil
	t.Debug = nil

	s.logger.Info("task re-queued", "task_id", t.ID, "worker_id", wid)
	return true
}

// ClearCompleted removes all complete tasks, returning how many were removed.
// Queued, running, and errored tasks are untouched.
func (s *Scheduler) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}

	kept := s.tasks[:0]
	removed := 0
	for _, t := range s.tasks {
		if t.Status != StatusComplete {
			kept = append(kept, t)
			continue
		}
		delete(s.byID, t.ID)
		delete(s.assignments, t.ID)
		removed++
	}
	s.tasks = kept

	if removed > 0 {
		s.logger.Info("cleared completed tasks", "removed", removed)
		s.observeLocked()
	}
	return removed
}

// Stats returns a snapshot of queue composition.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Scheduler) statsLocked() Stats {
	var st Stats
	for _, t := range s.tasks {
		switch t.Status {
		case StatusQueued:
			st.Queued++
		case StatusRunning:
			st.Running++
		case StatusComplete:
			st.Completed++
		case StatusError:
			st.Errored++
		}
	}
	st.Total = len(s.tasks)
	return st
}

// Tasks returns a copy of the queue in insertion order.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = *t
	}
	return out
}

// PoolReady reports whether every worker in the pool has acknowledged
// initialization.
func (s *Scheduler) PoolReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poolReady
}

// Shutdown terminates the pool, aborts in-context executions, and stops
// message handling. The scheduler cannot be used afterwards.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.stopPool != nil {
		close(s.stopPool)
		s.stopPool = nil
	}
	for _, w := range s.workers {
		w.handle.Terminate()
	}
	for _, cancel := range s.inline {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler shut down")
}

// consume drains one pool's message channel until that pool is replaced or
// the scheduler shuts down.
func (s *Scheduler) consume(msgs <-chan worker.Message, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case msg := <-msgs:
			s.mu.Lock()
			if !s.closed {
				s.handleLocked(msg)
			}
			s.mu.Unlock()
		}
	}
}

// handleLocked processes one protocol message from a worker or from the
// in-context execution path.
func (s *Scheduler) handleLocked(msg worker.Message) {
	switch msg.Type {
	case worker.MessageReady:
		s.handleReadyLocked(msg.WorkerID)

	case worker.MessageStarted:
		s.progress.Publish(events.Progress{
			TaskID: msg.TaskID,
			Stage:  events.StageStarted,
			At:     time.Now().UTC(),
		})

	case worker.MessageThinkingDelta:
		s.progress.Publish(events.Progress{
			TaskID: msg.TaskID,
			Stage:  events.StageThinking,
			Delta:  msg.Delta,
			At:     time.Now().UTC(),
		})

	case worker.MessageTextDelta:
		s.progress.Publish(events.Progress{
			TaskID: msg.TaskID,
			Stage:  events.StageText,
			Delta:  msg.Delta,
			At:     time.Now().UTC(),
		})

	case worker.MessageComplete:
		s.settleLocked(msg, true)

	case worker.MessageError:
		s.settleLocked(msg, false)

	default:
		s.logger.Warn("unknown worker message type", "type", msg.Type)
	}
}

func (s *Scheduler) handleReadyLocked(workerID int) {
	w := s.workerLocked(workerID)
	if w == nil {
		return
	}
	w.ready = true

	if !s.poolReady && s.allReadyLocked() {
		s.poolReady = true
		s.logger.Info("worker pool ready", "worker_count", len(s.workers))
		if s.reconnecting {
			s.replayAutoRetryLocked()
			s.reconnecting = false
		}
	}

	s.dispatchWorkerLocked(w)
	s.observeLocked()
}

// settleLocked applies the terminal transition for a task. Worker tasks and
// in-context tasks both arrive here, so the bookkeeping is identical on both
// paths.
func (s *Scheduler) settleLocked(msg worker.Message, success bool) {
	w := s.workerLocked(msg.WorkerID)
	if w != nil && w.current == msg.TaskID {
		w.current = uuid.Nil
	}

	t, ok := s.byID[msg.TaskID]
	if !ok || t.Status != StatusRunning {
		// Cancelled or already settled while the message was in flight.
		if w != nil {
			s.dispatchWorkerLocked(w)
		}
		return
	}

	delete(s.inline, t.ID)
	delete(s.assignments, t.ID)
	if w != nil {
		delete(w.pending, t.ID)
	}
	t.CompletedAt = time.Now().UTC()

	if success {
		t.Status = StatusComplete
		if msg.Result != nil {
			t.Result = msg.Result.Output
			t.Debug = msg.Result.Debug
		}
		delete(s.reconnectAttempts, t.ID)
		delete(s.autoRetry, t.ID)
		s.metrics.taskCompleted()
		s.logger.Info("task complete", "task_id", t.ID, "kind", t.Kind)
		s.reconcileLocked(t)
	} else {
		t.Status = StatusError
		t.Error = msg.Err
		s.metrics.taskFailed()
		s.logger.Warn("task failed", "task_id", t.ID, "kind", t.Kind, "error", msg.Err)

		if worker.IsNotInitialized(msg.Err) {
			s.superviseReconnectLocked(t, w)
			// The pool may have been rebuilt; the old state is stale.
			w = s.workerLocked(msg.WorkerID)
		}
	}

	if w != nil {
		s.dispatchWorkerLocked(w)
	}
	s.observeLocked()
}

// reconcileLocked hands a completed task's normalized output to the
// reconciliation bridge, unless the task's call configuration keeps the
// result out of entity state.
func (s *Scheduler) reconcileLocked(t *Task) {
	if s.reconciler == nil {
		return
	}
	call, err := s.resolver.Resolve(t.Kind)
	if err != nil || !call.Propagate {
		return
	}

	record, err := domain.NewEnrichmentRecord(t.Subject, s.runID, string(t.Kind), call.Model, t.Result)
	if err != nil {
		s.logger.Error("failed to build enrichment record",
			"task_id", t.ID,
			"error", err)
		return
	}
	if err := s.reconciler.Apply(context.Background(), record); err != nil {
		s.logger.Error("failed to reconcile task result",
			"task_id", t.ID,
			"record_id", record.ID,
			"error", err)
	}
}

// dispatchLocked runs one scheduling pass over the whole pool.
func (s *Scheduler) dispatchLocked() {
	for _, w := range s.workers {
		s.dispatchWorkerLocked(w)
	}
}

// dispatchWorkerLocked pushes work to one worker. It is idempotent: the
// no-current-task precondition guarantees at most one task runs per worker
// however many times a pass is triggered. In-context tasks release the slot
// immediately, so the pass keeps going until the worker is occupied or its
// backlog is empty.
func (s *Scheduler) dispatchWorkerLocked(w *workerState) {
	if !w.ready {
		return
	}
	for w.current == uuid.Nil {
		t := s.nextQueuedLocked(w.id)
		if t == nil {
			return
		}

		call, err := s.resolver.Resolve(t.Kind)
		if err != nil {
			delete(s.assignments, t.ID)
			delete(w.pending, t.ID)
			t.Status = StatusError
			t.Error = err.Error()
			t.CompletedAt = time.Now().UTC()
			s.metrics.taskFailed()
			s.logger.Error("cannot resolve call configuration", "task_id", t.ID, "error", err)
			continue
		}

		t.Status = StatusRunning
		t.StartedAt = time.Now().UTC()
		delete(w.pending, t.ID)

		// The request carries only what execution needs; queue bookkeeping
		// never crosses the worker boundary.
		req := enrich.Request{
			TaskID:  t.ID,
			Kind:    t.Kind,
			Payload: t.Payload,
			Call:    call,
		}

		if call.InContext {
			s.runInlineLocked(t, w.id, req)
			continue
		}

		w.current = t.ID
		s.logger.Debug("dispatching task to worker", "task_id", t.ID, "worker_id", w.id)
		w.handle.Execute(req)
	}
}

// nextQueuedLocked returns the oldest queued task assigned to the worker that
// is not already executing in-context, or nil.
func (s *Scheduler) nextQueuedLocked(workerID int) *Task {
	for _, t := range s.tasks {
		if t.Status != StatusQueued {
			continue
		}
		if wid, ok := s.assignments[t.ID]; !ok || wid != workerID {
			continue
		}
		if _, executing := s.inline[t.ID]; executing {
			continue
		}
		return t
	}
	return nil
}

// runInlineLocked starts in-context execution for a task. The task is marked
// in the inline side table before the goroutine launches, so no later
// dispatch pass can double-dispatch it while its settlement is pending.
func (s *Scheduler) runInlineLocked(t *Task, workerID int, req enrich.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	s.inline[t.ID] = cancel
	s.logger.Debug("running task in scheduler context", "task_id", t.ID, "kind", t.Kind)

	s.wg.Add(1)
	go s.runInline(ctx, workerID, req)
}

// runInline executes a task in the scheduler's own context instead of a
// worker, reporting the same protocol messages so settlement follows the
// identical transition path.
func (s *Scheduler) runInline(ctx context.Context, workerID int, req enrich.Request) {
	defer s.wg.Done()

	s.progress.Publish(events.Progress{
		TaskID: req.TaskID,
		Stage:  events.StageStarted,
		At:     time.Now().UTC(),
	})

	onDelta := func(delta enrich.Delta) {
		stage := events.StageText
		if delta.Thinking {
			stage = events.StageThinking
		}
		s.progress.Publish(events.Progress{
			TaskID: delta.TaskID,
			Stage:  stage,
			Delta:  delta.Text,
			At:     time.Now().UTC(),
		})
	}

	result, err := worker.Run(ctx, s.exec, req, onDelta)

	msg := worker.Message{WorkerID: workerID, TaskID: req.TaskID}
	if err != nil {
		msg.Type = worker.MessageError
		msg.Err = err.Error()
	} else {
		msg.Type = worker.MessageComplete
		msg.Result = result
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handleLocked(msg)
}

func (s *Scheduler) workerLocked(id int) *workerState {
	if id < 0 || id >= len(s.workers) {
		return nil
	}
	return s.workers[id]
}

func (s *Scheduler) allReadyLocked() bool {
	for _, w := range s.workers {
		if !w.ready {
			return false
		}
	}
	return len(s.workers) > 0
}

func (s *Scheduler) removeTaskLocked(t *Task) {
	delete(s.byID, t.ID)
	delete(s.assignments, t.ID)
	delete(s.autoRetry, t.ID)
	delete(s.reconnectAttempts, t.ID)
	delete(s.inline, t.ID)
	for _, w := range s.workers {
		delete(w.pending, t.ID)
	}
	for i, candidate := range s.tasks {
		if candidate.ID == t.ID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
}

func (s *Scheduler) observeLocked() {
	s.metrics.observeStats(s.statsLocked())
}
