package registry

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Invoke runs a single registered task with its configured input.
func (r *Registry) Invoke(ctx context.Context, name string, env *task.Env) error {
	t, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	input, err := r.Input(name)
	if err != nil {
		return err
	}

	ctx = ctxlog.With(ctx, "task", name)
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Starting task")
	start := time.Now()

	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(env)}
	if t.NewInput != nil {
		callArgs = append(callArgs, reflect.ValueOf(input))
	}
	results := reflect.ValueOf(t.Fn).Call(callArgs)
	if errResult, _ := results[0].Interface().(error); errResult != nil {
		logger.Error("❌ Task failed", "error", errResult, "duration", time.Since(start).Round(time.Millisecond))
		return fmt.Errorf("task %q: %w", name, errResult)
	}

	logger.Info("✅ Finished task", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
