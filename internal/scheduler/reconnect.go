package scheduler

// maxReconnectAttempts bounds how many automatic pool rebuilds a single task
// can trigger. A task that fails the same way again afterwards stays in
// error for manual retry.
const maxReconnectAttempts = 1

// superviseReconnectLocked handles an infrastructure-level failure: the
// worker's backing primitive was never initialized. Within the per-task
// retry budget it flags the task for automatic replay, takes the affected
// worker out of readiness, and rebuilds the whole pool. The in-flight
// reconnect flag collapses concurrent failures into one rebuild; the flagged
// tasks replay together once the rebuilt pool reports full readiness.
func (s *Scheduler) superviseReconnectLocked(t *Task, w *workerState) {
	attempts := s.reconnectAttempts[t.ID]
	if attempts >= maxReconnectAttempts {
		s.logger.Warn("reconnect budget exhausted, leaving task in error",
			"task_id", t.ID,
			"attempts", attempts)
		return
	}
	s.reconnectAttempts[t.ID] = attempts + 1
	s.autoRetry[t.ID] = struct{}{}

	if w != nil {
		w.ready = false
	}

	if s.reconnecting {
		return
	}
	s.reconnecting = true
	s.metrics.reconnect()
	s.logger.Warn("worker backing primitive lost, rebuilding pool", "task_id", t.ID)
	s.initializePoolLocked()
}

// replayAutoRetryLocked re-queues every task flagged for automatic retry, in
// queue order. Called once the rebuilt pool reports full readiness.
func (s *Scheduler) replayAutoRetryLocked() {
	if len(s.autoRetry) == 0 {
		return
	}

	replayed := 0
	for _, t := range s.tasks {
		if _, flagged := s.autoRetry[t.ID]; !flagged {
			continue
		}
		delete(s.autoRetry, t.ID)
		if s.retryLocked(t) {
			replayed++
		}
	}

	s.logger.Info("replayed tasks after pool rebuild", "count", replayed)
	s.dispatchLocked()
	s.observeLocked()
}
