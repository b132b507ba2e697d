// Package fonts converts TrueType sources into WOFF2 web fonts.
package fonts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the fonts task, relative to the app root.
type Input struct {
	Sources string `hcl:"sources,optional"`
}

func newInput() any {
	return &Input{Sources: "fonts/*.ttf"}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "fonts",
		Description: "Convert fonts/*.ttf to .woff2",
		NewInput:    newInput,
		Fn:          Run,
	})
}

// Run is the handler for the fonts task. Each output sits next to its
// source with the extension replaced.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	files, err := fsutil.Glob(env.AppRoot, input.Sources)
	if err != nil {
		return err
	}
	for _, rel := range files {
		src := env.App(filepath.FromSlash(rel))
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		woff2, err := EncodeWOFF2(data)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".woff2"
		if err := env.WriteOutput(ctx, dst, woff2); err != nil {
			return err
		}
	}
	return nil
}
