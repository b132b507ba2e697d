// Package scripts bundles the entry script with the prebuilt library bundle
// into the minified page script.
package scripts

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/minify"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the scripts task.
type Input struct {
	// Sources are concatenated in order, relative to the app root.
	Sources []string `hcl:"sources,optional"`
	Output  string   `hcl:"output,optional"`
}

func newInput() any {
	return &Input{
		Sources: []string{"js/main.js", "js/libs.min.js"},
		Output:  "js/main.min.js",
	}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if len(in.Sources) != 2 {
		return fmt.Errorf("sources must list exactly two files (entry script, then library bundle), got %d", len(in.Sources))
	}
	if in.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "scripts",
		Description: "Concatenate js/main.js and js/libs.min.js into js/main.min.js",
		NewInput:    newInput,
		Fn:          Run,
	})
}

// Run is the handler for the scripts task.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	paths := make([]string, len(input.Sources))
	for i, s := range input.Sources {
		paths[i] = env.App(s)
	}

	bundle, err := fsutil.Concat(paths, "\n")
	if err != nil {
		return err
	}
	out, err := minify.JS(input.Output, bundle)
	if err != nil {
		return fmt.Errorf("failed to minify %s: %w", input.Output, err)
	}

	dst := env.App(input.Output)
	if err := env.WriteOutput(ctx, dst, out); err != nil {
		return err
	}
	env.Notifier.Reload(ctx, env.URLPath(dst))
	return nil
}
