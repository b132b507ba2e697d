package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dag"
)

// ErrUnknownTarget is returned by Run for a name that is neither a task nor
// a pipeline.
var ErrUnknownTarget = errors.New("unknown task or pipeline")

// Run executes the named task or pipeline. It returns nil when ctx is
// canceled, which is how long-running pipelines end.
func (a *App) Run(ctx context.Context, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger.With("run_id", uuid.NewString()))
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.", "target", name)

	if _, ok := a.registry.Resolve(name); !ok {
		return fmt.Errorf("%w %q", ErrUnknownTarget, name)
	}

	logger.Info("🚀 Starting execution...", "target", name, "workers", a.workers)
	start := time.Now()
	err := a.execute(ctx, name)
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		logger.Info("🛑 Execution interrupted.", "target", name, "duration", time.Since(start).Round(time.Millisecond))
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("🏁 Execution finished.", "target", name, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// execute compiles name into a plan and runs it on a fresh executor.
func (a *App) execute(ctx context.Context, name string) error {
	plan, err := dag.Compile(dag.Ref(name), a.registry.Resolve)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Dependency graph built.", "node_count", len(plan.Nodes), "long_running", plan.LongRunningCount())

	failFast := true
	if p, ok := a.registry.Pipeline(name); ok {
		failFast = p.FailFast
	}
	exec := dag.NewExecutor(plan, func(ctx context.Context, taskName string) error {
		return a.registry.Invoke(ctx, taskName, a.env)
	}, dag.Options{Workers: a.workers, FailFast: failFast})
	return exec.Run(ctx)
}

// trigger is the task.TriggerFunc handed to tasks such as watch.
func (a *App) trigger(ctx context.Context, name string) error {
	return a.execute(ctx, name)
}
