package styles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// Compiler turns an SCSS entry file into CSS.
type Compiler interface {
	Compile(ctx context.Context, entry string, includePaths []string) ([]byte, error)
}

// DartSass compiles with the embedded Dart Sass protocol. The compiler
// process is started on first use and reused for later builds.
type DartSass struct {
	// Binary is the path of the dart-sass executable; empty means "sass"
	// from PATH.
	Binary string

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transpiler != nil {
		return d.transpiler, nil
	}
	t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: d.Binary})
	if err != nil {
		return nil, fmt.Errorf("failed to start dart sass: %w", err)
	}
	d.transpiler = t
	return t, nil
}

// Compile implements Compiler.
func (d *DartSass) Compile(ctx context.Context, entry string, includePaths []string) ([]byte, error) {
	src, err := os.ReadFile(entry)
	if err != nil {
		return nil, err
	}
	t, err := d.start()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Compiling stylesheet.", "entry", entry, "include_paths", includePaths)
	res, err := t.Execute(godartsass.Args{
		Source:       string(src),
		URL:          "file://" + filepath.ToSlash(abs),
		SourceSyntax: godartsass.SourceSyntaxSCSS,
		OutputStyle:  godartsass.OutputStyleCompressed,
		IncludePaths: append([]string{filepath.Dir(abs)}, includePaths...),
	})
	if err != nil {
		return nil, err
	}
	return []byte(res.CSS), nil
}

// Close stops the compiler process.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transpiler == nil {
		return nil
	}
	err := d.transpiler.Close()
	d.transpiler = nil
	return err
}
