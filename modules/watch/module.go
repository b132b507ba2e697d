// Package watch is the task that keeps rebuilding while files change.
package watch

import (
	"context"
	"errors"

	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the watch task. Without rule blocks the
// default table applies.
type Input struct {
	Rules []watch.Rule `hcl:"rule,block"`
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if len(in.Rules) == 0 {
		in.Rules = watch.DefaultRules()
	}
	return watch.ValidateRules(in.Rules)
}

// TaskRefs implements registry.Referrer.
func (in *Input) TaskRefs() []string {
	var names []string
	for _, rule := range in.Rules {
		names = append(names, rule.Tasks...)
	}
	return names
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "watch",
		Description: "Rebuild on change: styles, scripts, sprites, images, html",
		NewInput:    func() any { return &Input{} },
		Fn:          Run,
		LongRunning: true,
	})
}

// Run is the handler for the watch task. It blocks until ctx is canceled
// and waits for in-flight rebuilds before returning.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	if env.Trigger == nil {
		return errors.New("no task trigger configured")
	}
	queue := watch.NewQueue(watch.RunFunc(env.Trigger))
	w := &watch.Watcher{
		Root: env.AppRoot,
		Dispatcher: &watch.Dispatcher{
			Rules:   input.Rules,
			Trigger: queue.Trigger,
			Reload: func(ctx context.Context, path string) {
				env.Notifier.Reload(ctx, path)
			},
		},
	}
	err := w.Run(ctx)
	queue.Wait()
	return err
}
