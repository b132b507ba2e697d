package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/dag"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredTask holds the compiled Go parts of a task.
type RegisteredTask struct {
	Name        string
	Description string
	// NewInput returns a pointer to the task's input struct, pre-filled with
	// defaults. Nil when the task takes no configuration.
	NewInput func() any
	// Fn is func(context.Context, *task.Env) error or
	// func(context.Context, *task.Env, *Input) error.
	Fn any
	// LongRunning tasks only return once their context is canceled.
	LongRunning bool
}

// RegisteredPipeline is a named composition of tasks and other pipelines.
type RegisteredPipeline struct {
	Name        string
	Description string
	Step        dag.Step
	// FailFast aborts the whole pipeline on the first failure.
	FailFast bool
}

// Normalizer is implemented by input structs that need post-decode defaults
// or validation.
type Normalizer interface {
	Normalize() error
}

// Referrer is implemented by inputs that name other tasks or pipelines.
// Configure checks every returned name resolves.
type Referrer interface {
	TaskRefs() []string
}

// Registry holds all the registered tasks and pipelines for a single
// application instance.
type Registry struct {
	tasks     map[string]*RegisteredTask
	pipelines map[string]*RegisteredPipeline

	// mu guards inputs, which Input fills lazily from concurrent workers.
	mu     sync.Mutex
	inputs map[string]any
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		tasks:     make(map[string]*RegisteredTask),
		pipelines: make(map[string]*RegisteredPipeline),
		inputs:    make(map[string]any),
	}
}

// RegisterTask registers a task handler. Registering a name twice panics.
func (r *Registry) RegisterTask(t *RegisteredTask) {
	r.claim(t.Name, "task")
	slog.Debug("Registering task.", "name", t.Name)
	r.tasks[t.Name] = t
}

// RegisterPipeline registers a pipeline. Registering a name twice panics.
func (r *Registry) RegisterPipeline(p *RegisteredPipeline) {
	r.claim(p.Name, "pipeline")
	slog.Debug("Registering pipeline.", "name", p.Name, "step", p.Step.String())
	r.pipelines[p.Name] = p
}

func (r *Registry) claim(name, kind string) {
	if name == "" {
		panic(fmt.Sprintf("%s registered without a name", kind))
	}
	_, isTask := r.tasks[name]
	_, isPipeline := r.pipelines[name]
	if isTask || isPipeline {
		panic(fmt.Sprintf("%s with name '%s' already registered", kind, name))
	}
}

// Task returns the task registered under name.
func (r *Registry) Task(name string) (*RegisteredTask, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Pipeline returns the pipeline registered under name.
func (r *Registry) Pipeline(name string) (*RegisteredPipeline, bool) {
	p, ok := r.pipelines[name]
	return p, ok
}

// Tasks returns every registered task sorted by name.
func (r *Registry) Tasks() []*RegisteredTask {
	out := make([]*RegisteredTask, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pipelines returns every registered pipeline sorted by name.
func (r *Registry) Pipelines() []*RegisteredPipeline {
	out := make([]*RegisteredPipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve implements dag.Resolver.
func (r *Registry) Resolve(name string) (dag.Target, bool) {
	if p, ok := r.pipelines[name]; ok {
		return dag.Target{Pipeline: p.Step}, true
	}
	if t, ok := r.tasks[name]; ok {
		return dag.Target{LongRunning: t.LongRunning}, true
	}
	return dag.Target{}, false
}
