// Package libs bundles third-party browser libraries from node_modules into
// the prebuilt library bundles the page loads.
package libs

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

// Input defines the arguments for both library tasks. Sources are
// relative to the project directory; Output is relative to the app root.
type Input struct {
	Sources []string `hcl:"sources,optional"`
	Output  string   `hcl:"output,optional"`
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if len(in.Sources) == 0 {
		return fmt.Errorf("sources must not be empty")
	}
	if in.Output == "" {
		return fmt.Errorf("output must not be empty")
	}
	return nil
}

func newJSInput() any {
	return &Input{
		Sources: []string{
			"node_modules/aos/dist/aos.js",
			"node_modules/choices.js/public/assets/scripts/choices.min.js",
			"node_modules/swiper/swiper-bundle.min.js",
		},
		Output: "js/libs.min.js",
	}
}

func newCSSInput() any {
	return &Input{
		Sources: []string{
			"node_modules/aos/dist/aos.css",
			"node_modules/choices.js/public/assets/styles/base.min.css",
			"node_modules/choices.js/public/assets/styles/choices.min.css",
			"node_modules/swiper/swiper-bundle.css",
		},
		Output: "css/libs.min.css",
	}
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "libs-js",
		Description: "Concatenate library scripts into js/libs.min.js",
		NewInput:    newJSInput,
		Fn:          RunJS,
	})
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "libs-css",
		Description: "Concatenate and minify library styles into css/libs.min.css",
		NewInput:    newCSSInput,
		Fn:          RunCSS,
	})
}

func (in *Input) paths(env *task.Env) []string {
	paths := make([]string, len(in.Sources))
	for i, s := range in.Sources {
		paths[i] = env.Project(s)
	}
	return paths
}

// RunJS concatenates the library scripts without minifying them; they ship
// pre-minified.
func RunJS(ctx context.Context, env *task.Env, input *Input) error {
	bundle, err := fsutil.Concat(input.paths(env), "\n")
	if err != nil {
		return err
	}
	return env.WriteOutput(ctx, env.App(input.Output), bundle)
}

// RunCSS concatenates and minifies the library stylesheets.
func RunCSS(ctx context.Context, env *task.Env, input *Input) error {
	bundle, err := fsutil.Concat(input.paths(env), "\n")
	if err != nil {
		return err
	}
	out, err := minify.CSS(bundle)
	if err != nil {
		return fmt.Errorf("failed to minify %s: %w", input.Output, err)
	}
	return env.WriteOutput(ctx, env.App(input.Output), out)
}
