// Package worker provides the execution contexts that run enrichment tasks on
// behalf of the scheduler. Two interchangeable backends implement the same
// Handle interface: a dedicated backend giving each worker its own goroutine,
// and a shared backend multiplexing all workers onto one process-wide runtime.
// Workers report back to the scheduler through a uniform message protocol.
package worker
