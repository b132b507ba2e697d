// Package htmlinclude assembles the top-level HTML pages from templates and
// partials using include directives.
package htmlinclude

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the html task. Source and Output are
// relative to the app root; Templates are globs relative to Source.
type Input struct {
	Source    string   `hcl:"source,optional"`
	Templates []string `hcl:"templates,optional"`
	Output    string   `hcl:"output,optional"`
	Prefix    string   `hcl:"prefix,optional"`
	MaxDepth  int      `hcl:"max_depth,optional"`
}

func newInput() any {
	return &Input{
		Source:    "html",
		Templates: []string{"*.html"},
		Output:    ".",
		Prefix:    "@",
		MaxDepth:  DefaultMaxDepth,
	}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if in.Prefix == "" {
		return fmt.Errorf("prefix must not be empty")
	}
	if in.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", in.MaxDepth)
	}
	if len(in.Templates) == 0 {
		return fmt.Errorf("templates must not be empty")
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "html",
		Description: "Expand @include directives in html/*.html into the app root",
		NewInput:    newInput,
		Fn:          Run,
	})
}

// Run is the handler for the html task.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	srcRoot := env.App(input.Source)
	templates, err := fsutil.Glob(srcRoot, input.Templates...)
	if err != nil {
		return err
	}

	e := &Expander{Prefix: input.Prefix, MaxDepth: input.MaxDepth}
	written := make([]string, 0, len(templates))
	for _, rel := range templates {
		out, err := e.ExpandFile(filepath.Join(srcRoot, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		dst := env.App(input.Output, filepath.FromSlash(rel))
		if err := env.WriteOutput(ctx, dst, out); err != nil {
			return err
		}
		written = append(written, env.URLPath(dst))
	}

	if len(written) > 0 {
		env.Notifier.Reload(ctx, written...)
	}
	return nil
}
