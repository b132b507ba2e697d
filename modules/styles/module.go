// Package styles compiles the SCSS entry into the minified, vendor-prefixed
// stylesheet and pushes it to connected browsers without a full reload.
package styles

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/minify"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Input defines the arguments for the styles task.
type Input struct {
	// Entry is the stylesheet entry, relative to the app root.
	Entry string `hcl:"entry,optional"`
	// Output is the compiled stylesheet, relative to the app root.
	Output string `hcl:"output,optional"`
	// IncludePaths are extra Sass load paths, relative to the app root.
	IncludePaths []string `hcl:"include_paths,optional"`
	// Targets are esbuild engine targets such as "chrome111" or "ie11".
	Targets []string `hcl:"targets,optional"`
	// Grid adds -ms- fallbacks for CSS grid declarations.
	Grid bool `hcl:"grid,optional"`
}

// DefaultTargets approximates "last 10 versions" of the major browsers.
var DefaultTargets = []string{"chrome111", "edge111", "firefox111", "safari15", "ios15", "opera97", "ie11"}

func newInput() any {
	return &Input{
		Entry:   "scss/style.scss",
		Output:  "css/style.min.css",
		Targets: append([]string(nil), DefaultTargets...),
		Grid:    true,
	}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if in.Entry == "" || in.Output == "" {
		return fmt.Errorf("entry and output must not be empty")
	}
	if _, err := parseTargets(in.Targets); err != nil {
		return err
	}
	return nil
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Compiler overrides the Dart Sass compiler, mainly for tests.
	Compiler Compiler

	once sync.Once
}

func (m *Module) compiler() Compiler {
	m.once.Do(func() {
		if m.Compiler == nil {
			m.Compiler = &DartSass{}
		}
	})
	return m.Compiler
}

// Close stops the Sass compiler process if one was started.
func (m *Module) Close() error {
	if c, ok := m.Compiler.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "styles",
		Description: "Compile scss/style.scss into css/style.min.css",
		NewInput:    newInput,
		Fn:          m.run,
	})
}

func (m *Module) run(ctx context.Context, env *task.Env, input *Input) error {
	includePaths := make([]string, 0, len(input.IncludePaths))
	for _, p := range input.IncludePaths {
		includePaths = append(includePaths, env.App(p))
	}

	css, err := Build(ctx, m.compiler(), env.App(input.Entry), includePaths, input)
	if err != nil {
		return err
	}

	out := env.App(input.Output)
	if err := env.WriteOutput(ctx, out, css); err != nil {
		return err
	}
	env.Notifier.InjectCSS(ctx, env.URLPath(out))
	return nil
}

// Build runs the full stylesheet pipeline for entry: Sass compilation,
// prefixing and minification, then the optional grid fallbacks.
func Build(ctx context.Context, c Compiler, entry string, includePaths []string, input *Input) ([]byte, error) {
	compiled, err := c.Compile(ctx, entry, includePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", entry, err)
	}

	targets, err := parseTargets(input.Targets)
	if err != nil {
		return nil, err
	}
	prefixed, err := minify.PrefixCSS(filepath.Base(entry), compiled, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to prefix %s: %w", entry, err)
	}

	if !input.Grid {
		return prefixed, nil
	}
	out, err := AddGridFallbacks(prefixed)
	if err != nil {
		return nil, fmt.Errorf("failed to add grid fallbacks to %s: %w", entry, err)
	}
	return out, nil
}
