// Package export produces the distribution tree: clean removes it, export
// copies the allow-listed build artifacts from the app root into it.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

const (
	ImagesDerived = "derived"
	ImagesAll     = "all"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the export task. Globs are relative to
// the app root.
type Input struct {
	Include []string `hcl:"include,optional"`
	// Images selects "derived" (images/dist and the sprite) or "all"
	// (everything under images/).
	Images string `hcl:"images,optional"`
}

// DefaultInclude is the export allow-list, excluding images.
var DefaultInclude = []string{
	"*.html",
	"favicon/**/*.*",
	"fonts/**/*.*",
	"css/style.min.css",
	"js/main.min.js",
}

var imageGlobs = map[string][]string{
	ImagesDerived: {"images/dist/**/*.*", "images/sprite.svg"},
	ImagesAll:     {"images/**/*.*"},
}

func newInput() any {
	return &Input{
		Include: append([]string(nil), DefaultInclude...),
		Images:  ImagesDerived,
	}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if _, ok := imageGlobs[in.Images]; !ok {
		return fmt.Errorf("images must be %q or %q, got %q", ImagesDerived, ImagesAll, in.Images)
	}
	return nil
}

// Patterns returns the complete allow-list.
func (in *Input) Patterns() []string {
	return append(append([]string(nil), in.Include...), imageGlobs[in.Images]...)
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "clean",
		Description: "Remove the distribution directory",
		Fn:          Clean,
	})
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "export",
		Description: "Copy build artifacts from the app root into the distribution directory",
		NewInput:    newInput,
		Fn:          Export,
	})
}

// Clean removes the distribution directory. A missing directory is fine.
func Clean(ctx context.Context, env *task.Env) error {
	if err := os.RemoveAll(env.DistDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", env.DistDir, err)
	}
	ctxlog.FromContext(ctx).Info("🧹 Removed distribution directory", "path", env.DistDir)
	return nil
}

// Export copies every allow-listed file, preserving its path relative to
// the app root.
func Export(ctx context.Context, env *task.Env, input *Input) error {
	files, err := fsutil.Glob(env.AppRoot, input.Patterns()...)
	if err != nil {
		return err
	}

	var total uint64
	for _, rel := range files {
		src := env.App(filepath.FromSlash(rel))
		dst := env.Dist(filepath.FromSlash(rel))
		if err := fsutil.CopyFile(src, dst); err != nil {
			return err
		}
		if info, err := os.Stat(dst); err == nil {
			total += uint64(info.Size())
		}
	}
	ctxlog.FromContext(ctx).Info("📦 Exported build", "files", len(files), "size", humanize.Bytes(total), "dist", env.DistDir)
	return nil
}
