package worker

import (
	"context"
	"fmt"

	"github.com/lorekeep/chronicle-api/internal/enrich"
)

// Run invokes the executor with panic recovery so an uncaught crash in the
// model integration degrades to a task-level error instead of taking down
// the execution context. Both worker backends and the scheduler's in-context
// path run requests through it.
func Run(
	ctx context.Context,
	exec enrich.Executor,
	req enrich.Request,
	onDelta func(enrich.Delta),
) (result *enrich.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("worker crashed: %v", r)
		}
	}()
	return exec.Execute(ctx, req, onDelta)
}
