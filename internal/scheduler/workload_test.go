package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// addTask registers a task directly in the lookup used by the estimator.
func addTask(byID map[uuid.UUID]*Task, kind enrich.Kind, status Status) *Task {
	t := &Task{ID: uuid.New(), Kind: kind, Status: status}
	byID[t.ID] = t
	return t
}

func TestTaskWeight(t *testing.T) {
	assert.Equal(t, 1, taskWeight(enrich.KindText))
	assert.Equal(t, 1, taskWeight(enrich.KindNarrative))
	assert.Equal(t, 10, taskWeight(enrich.KindImage))
}

func TestWorkloadOrdering(t *testing.T) {
	byID := make(map[uuid.UUID]*Task)

	// Worker A: two pending text tasks. Worker B: one pending image task.
	a := newWorkerState(0)
	a.ready = true
	for i := 0; i < 2; i++ {
		task := addTask(byID, enrich.KindText, StatusQueued)
		a.pending[task.ID] = struct{}{}
	}

	b := newWorkerState(1)
	b.ready = true
	img := addTask(byID, enrich.KindImage, StatusQueued)
	b.pending[img.ID] = struct{}{}

	assert.Equal(t, 2, workloadOf(a, byID))
	assert.Equal(t, 10, workloadOf(b, byID))
	assert.Less(t, workloadOf(a, byID), workloadOf(b, byID))
}

func TestWorkloadCountsRunningTask(t *testing.T) {
	byID := make(map[uuid.UUID]*Task)

	w := newWorkerState(0)
	w.ready = true
	running := addTask(byID, enrich.KindImage, StatusRunning)
	w.current = running.ID

	pending := addTask(byID, enrich.KindText, StatusQueued)
	w.pending[pending.ID] = struct{}{}

	assert.Equal(t, 11, workloadOf(w, byID))
}

func TestWorkloadIgnoresStalePending(t *testing.T) {
	byID := make(map[uuid.UUID]*Task)

	w := newWorkerState(0)
	w.ready = true

	// A pending entry whose task was cancelled (gone from the lookup).
	w.pending[uuid.New()] = struct{}{}

	// A pending entry whose task already started elsewhere.
	started := addTask(byID, enrich.KindText, StatusRunning)
	w.pending[started.ID] = struct{}{}

	live := addTask(byID, enrich.KindText, StatusQueued)
	w.pending[live.ID] = struct{}{}

	assert.Equal(t, 1, workloadOf(w, byID))
}

func TestSelectWorker(t *testing.T) {
	byID := make(map[uuid.UUID]*Task)

	w0 := newWorkerState(0)
	w1 := newWorkerState(1)
	workers := []*workerState{w0, w1}

	t.Run("no ready worker returns nil", func(t *testing.T) {
		assert.Nil(t, selectWorker(workers, byID))
	})

	t.Run("only ready workers considered", func(t *testing.T) {
		w1.ready = true
		task := addTask(byID, enrich.KindImage, StatusQueued)
		w1.pending[task.ID] = struct{}{}

		// w0 would be cheaper but is not ready.
		assert.Same(t, w1, selectWorker(workers, byID))
	})

	t.Run("lowest workload wins", func(t *testing.T) {
		w0.ready = true
		assert.Same(t, w0, selectWorker(workers, byID))
	})

	t.Run("ties break in pool order", func(t *testing.T) {
		fresh0 := newWorkerState(0)
		fresh0.ready = true
		fresh1 := newWorkerState(1)
		fresh1.ready = true
		assert.Same(t, fresh0, selectWorker([]*workerState{fresh0, fresh1}, byID))
	})
}
