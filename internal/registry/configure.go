package registry

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/dag"
)

// Configure decodes each task's configuration block from model into a fresh
// input struct. Tasks without a block keep their defaults. A block naming an
// unregistered task is an error.
func (r *Registry) Configure(model *config.Model) error {
	names := make([]string, 0, len(model.Tasks))
	for name := range model.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := r.tasks[name]; !ok {
			block := model.Tasks[name]
			return fmt.Errorf("%s: task block %q does not name a registered task", block.Range.String(), name)
		}
	}

	inputs := make(map[string]any, len(r.tasks))
	for _, t := range r.Tasks() {
		block := model.Tasks[t.Name]

		if t.NewInput == nil {
			if block != nil {
				var empty struct{}
				if diags := gohcl.DecodeBody(block.Body, model.EvalContext, &empty); diags.HasErrors() {
					return fmt.Errorf("task %q takes no configuration: %w", t.Name, diags)
				}
			}
			continue
		}

		input := t.NewInput()
		if block != nil {
			if diags := gohcl.DecodeBody(block.Body, model.EvalContext, input); diags.HasErrors() {
				return fmt.Errorf("failed to decode configuration for task %q: %w", t.Name, diags)
			}
		}
		if n, ok := input.(Normalizer); ok {
			if err := n.Normalize(); err != nil {
				return fmt.Errorf("invalid configuration for task %q: %w", t.Name, err)
			}
		}
		if ref, ok := input.(Referrer); ok {
			for _, name := range ref.TaskRefs() {
				if _, ok := r.Resolve(name); !ok {
					return fmt.Errorf("invalid configuration for task %q: unknown task or pipeline %q", t.Name, name)
				}
			}
		}
		inputs[t.Name] = input
	}

	r.mu.Lock()
	r.inputs = inputs
	r.mu.Unlock()
	return nil
}

// Input returns the decoded input for the named task, building a default one
// when Configure has not seen it.
func (r *Registry) Input(name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input, ok := r.inputs[name]; ok {
		return input, nil
	}
	t, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("unknown task %q", name)
	}
	if t.NewInput == nil {
		return nil, nil
	}
	input := t.NewInput()
	if n, ok := input.(Normalizer); ok {
		if err := n.Normalize(); err != nil {
			return nil, fmt.Errorf("invalid configuration for task %q: %w", name, err)
		}
	}
	r.inputs[name] = input
	return input, nil
}

func refNames(p *RegisteredPipeline) []string {
	return dag.RefNames(p.Step)
}
