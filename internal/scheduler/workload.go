package scheduler

import (
	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/enrich"
	"github.com/lorekeep/chronicle-api/internal/worker"
)

// Task weights for workload estimation. Image generation takes roughly an
// order of magnitude longer than text, so the estimate is a proxy for
// expected completion time, not a literal task count.
const (
	defaultTaskWeight = 1
	imageTaskWeight   = 10
)

// workerState is the scheduler's view of one pool worker. It is mutated only
// under the scheduler's mutex.
type workerState struct {
	id     int
	handle worker.Handle

	// ready is set once the worker acknowledges initialization.
	ready bool

	// current is the task running on the worker, or uuid.Nil when idle.
	current uuid.UUID

	// pending holds tasks assigned to this worker but not yet started.
	pending map[uuid.UUID]struct{}
}

func newWorkerState(id int) *workerState {
	return &workerState{
		id:      id,
		current: uuid.Nil,
		pending: make(map[uuid.UUID]struct{}),
	}
}

func taskWeight(kind enrich.Kind) int {
	if kind == enrich.KindImage {
		return imageTaskWeight
	}
	return defaultTaskWeight
}

// workloadOf estimates a worker's outstanding cost: the weight of its running
// task plus the weight of every pending assignment that is still queued.
// Pending tasks that were cancelled or started elsewhere do not count.
func workloadOf(w *workerState, byID map[uuid.UUID]*Task) int {
	load := 0
	if w.current != uuid.Nil {
		if t, ok := byID[w.current]; ok {
			load += taskWeight(t.Kind)
		}
	}
	for id := range w.pending {
		t, ok := byID[id]
		if !ok || t.Status != StatusQueued {
			continue
		}
		load += taskWeight(t.Kind)
	}
	return load
}

// selectWorker returns the ready worker with the strictly lowest estimated
// workload, first-seen winning ties, or nil if no worker is ready yet.
func selectWorker(workers []*workerState, byID map[uuid.UUID]*Task) *workerState {
	var best *workerState
	bestLoad := 0
	for _, w := range workers {
		if !w.ready {
			continue
		}
		load := workloadOf(w, byID)
		if best == nil || load < bestLoad {
			best = w
			bestLoad = load
		}
	}
	return best
}
