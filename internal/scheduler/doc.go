// Package scheduler manages the enrichment task queue and its worker pool.
// It assigns each admitted task to the least-busy worker, walks tasks through
// the queued/running/complete/error lifecycle, supervises automatic pool
// rebuilds after infrastructure failures, and hands completed results to the
// reconciliation bridge exactly once per task.
package scheduler
