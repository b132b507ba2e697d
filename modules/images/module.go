// Package images derives optimized variants of every image source: AVIF,
// WebP and a recompressed copy in the original format, mirrored from
// images/src into images/dist. Outputs newer than their source are skipped.
package images

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
	"golang.org/x/sync/errgroup"
)

// Input defines the arguments for the images task. Paths are relative to
// the app root; Exclude globs are relative to Source.
type Input struct {
	Source      string   `hcl:"source,optional"`
	Output      string   `hcl:"output,optional"`
	Exclude     []string `hcl:"exclude,optional"`
	AVIFQuality int      `hcl:"avif_quality,optional"`
	WebPQuality int      `hcl:"webp_quality,optional"`
	JPEGQuality int      `hcl:"jpeg_quality,optional"`
	// Workers bounds how many files are processed at once.
	Workers int `hcl:"workers,optional"`
}

func newInput() any {
	return &Input{
		Source:      "images/src",
		Output:      "images/dist",
		Exclude:     []string{"*.svg"},
		AVIFQuality: 50,
		WebPQuality: 75,
		JPEGQuality: 75,
		Workers:     1,
	}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if in.Source == "" || in.Output == "" {
		return fmt.Errorf("source and output must not be empty")
	}
	if in.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", in.Workers)
	}
	for _, q := range []int{in.AVIFQuality, in.WebPQuality, in.JPEGQuality} {
		if q < 1 || q > 100 {
			return fmt.Errorf("quality must be between 1 and 100, got %d", q)
		}
	}
	return nil
}

// Module implements the registry.Module interface for this package.
type Module struct {
	// Variants overrides the encoders applied to raster sources, mainly
	// for tests.
	Variants func(in *Input) []Encoder
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "images",
		Description: "Optimize images/src into images/dist (avif, webp, recompressed)",
		NewInput:    newInput,
		Fn:          m.run,
	})
}

func defaultVariants(in *Input) []Encoder {
	return []Encoder{
		AVIF{Quality: in.AVIFQuality},
		WebP{Quality: in.WebPQuality},
		Optimized{JPEGQuality: in.JPEGQuality},
	}
}

// encodersFor picks the outputs for one source file.
func encodersFor(ext string, variants []Encoder, in *Input) []Encoder {
	if !rasterExts[ext] {
		// SVG is minified; anything else is copied through unchanged.
		return []Encoder{Optimized{JPEGQuality: in.JPEGQuality}}
	}
	if ext != ".webp" {
		return variants
	}
	// A WebP source already has its WebP variant at the copy's path.
	var out []Encoder
	for _, v := range variants {
		if v.Ext() != "" {
			out = append(out, v)
		}
	}
	return out
}

// Stats summarizes a run.
type Stats struct {
	Written int
	Skipped int
	Failed  int
}

func (m *Module) run(ctx context.Context, env *task.Env, input *Input) error {
	variants := defaultVariants
	if m.Variants != nil {
		variants = m.Variants
	}
	stats, err := Process(ctx, env, input, variants(input))
	ctxlog.FromContext(ctx).Info("🖼️ Images processed", "written", stats.Written, "skipped", stats.Skipped, "failed", stats.Failed)
	return err
}

// Process converts every source file. A failure on one file does not stop
// the others; all failures are returned together.
func Process(ctx context.Context, env *task.Env, input *Input, variants []Encoder) (Stats, error) {
	srcRoot := env.App(input.Source)
	patterns := []string{"**"}
	for _, ex := range input.Exclude {
		patterns = append(patterns, "!"+ex)
	}
	files, err := fsutil.Glob(srcRoot, patterns...)
	if err != nil {
		return Stats{}, err
	}

	var (
		mu      sync.Mutex
		stats   Stats
		errs    = make([]error, len(files))
		clashes = findCollisions(files, variants, input)
	)
	logger := ctxlog.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(input.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			var written, skipped int
			err := clashes[rel]
			if err == nil {
				written, skipped, err = processFile(gctx, env, input, variants, srcRoot, rel)
			}
			mu.Lock()
			stats.Written += written
			stats.Skipped += skipped
			if err != nil {
				stats.Failed++
			}
			mu.Unlock()
			if err != nil {
				logger.Error("Failed to process image.", "file", rel, "error", err)
				errs[i] = fmt.Errorf("%s: %w", rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if err := errors.Join(errs...); err != nil {
		return stats, fmt.Errorf("%d of %d images failed: %w", stats.Failed, len(files), err)
	}
	return stats, nil
}

// findCollisions reports sources that would write the same output file, such
// as a.png and a.jpg both producing a.avif. Neither source of a clash is
// processed.
func findCollisions(files []string, variants []Encoder, input *Input) map[string]error {
	owner := make(map[string]string)
	clashes := make(map[string]error)
	for _, rel := range files {
		for _, enc := range encodersFor(lowerExt(rel), variants, input) {
			out := outputName(rel, enc)
			first, taken := owner[out]
			if !taken {
				owner[out] = rel
				continue
			}
			err := fmt.Errorf("output %s is produced by both %s and %s", out, first, rel)
			if clashes[first] == nil {
				clashes[first] = err
			}
			if clashes[rel] == nil {
				clashes[rel] = err
			}
		}
	}
	return clashes
}

func processFile(ctx context.Context, env *task.Env, input *Input, variants []Encoder, srcRoot, rel string) (written, skipped int, err error) {
	srcPath := filepath.Join(srcRoot, filepath.FromSlash(rel))
	srcStamp, err := fsutil.StampOf(srcPath)
	if err != nil {
		return 0, 0, err
	}

	var src *Source
	for _, enc := range encodersFor(lowerExt(rel), variants, input) {
		dst := env.App(input.Output, filepath.FromSlash(outputName(rel, enc)))
		dstStamp, err := fsutil.StampOf(dst)
		if err != nil {
			return written, skipped, err
		}
		if !fsutil.NeedsUpdate(srcStamp, dstStamp) {
			skipped++
			continue
		}

		if src == nil {
			data, err := os.ReadFile(srcPath)
			if err != nil {
				return written, skipped, err
			}
			src = &Source{Path: rel, Ext: lowerExt(rel), Data: data}
		}
		out, err := enc.Encode(src)
		if err != nil {
			return written, skipped, err
		}
		if err := env.WriteOutput(ctx, dst, out); err != nil {
			return written, skipped, err
		}
		written++
	}
	return written, skipped, nil
}
