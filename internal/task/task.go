// Package task defines what a running task handler receives: the resolved
// project layout and the shared collaborators it may call back into.
package task

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/devserver"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// Notifier pushes live-reload events to connected browsers. Paths are URL
// paths relative to the app root, e.g. "/css/style.min.css".
type Notifier interface {
	Reload(ctx context.Context, paths ...string)
	InjectCSS(ctx context.Context, paths ...string)
}

// TriggerFunc runs another registered task or pipeline by name.
type TriggerFunc func(ctx context.Context, name string) error

// Env is the environment handed to every task handler.
type Env struct {
	// ProjectDir is the directory the tool was started in.
	ProjectDir string
	// AppRoot is the source and generated tree.
	AppRoot string
	// DistDir is the export destination.
	DistDir string

	Notifier Notifier
	Server   *devserver.Server
	Trigger  TriggerFunc
}

// App joins elements onto the app root.
func (e *Env) App(elem ...string) string {
	return filepath.Join(append([]string{e.AppRoot}, elem...)...)
}

// Dist joins elements onto the distribution directory.
func (e *Env) Dist(elem ...string) string {
	return filepath.Join(append([]string{e.DistDir}, elem...)...)
}

// Project resolves path against the project directory unless it is absolute.
func (e *Env) Project(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.ProjectDir, path)
}

// URLPath converts a file under the app root into the URL path the dev
// server serves it at. Files outside the app root map to "".
func (e *Env) URLPath(file string) string {
	rel, err := filepath.Rel(e.AppRoot, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return "/" + filepath.ToSlash(rel)
}

// WriteOutput writes a generated file and logs its size.
func (e *Env) WriteOutput(ctx context.Context, path string, data []byte) error {
	if err := fsutil.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Info("📝 Wrote file", "path", e.display(path), "size", humanize.Bytes(uint64(len(data))))
	return nil
}

func (e *Env) display(path string) string {
	if rel, err := filepath.Rel(e.ProjectDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// Nop is a Notifier that drops every event.
type Nop struct{}

// Reload implements Notifier.
func (Nop) Reload(context.Context, ...string) {}

// InjectCSS implements Notifier.
func (Nop) InjectCSS(context.Context, ...string) {}
