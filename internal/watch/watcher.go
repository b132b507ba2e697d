package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// watchedOps are the event kinds that count as a change.
const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher feeds file-system events under Root to a Dispatcher.
type Watcher struct {
	Root       string
	Dispatcher *Dispatcher
	// ready, when set, is closed once the initial directories are watched.
	ready chan struct{}
}

// Run watches Root recursively until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.Root); err != nil {
		return err
	}
	logger.Info("👀 Watching for changes", "root", w.Root, "rules", len(w.Dispatcher.Rules))
	if w.ready != nil {
		close(w.ready)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch loop stopped.")
			return nil
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&watchedOps == 0 {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", ev.Name, "error", err)
					}
					// Files created before the directory was added emit no events.
					w.dispatchExisting(ctx, ev.Name)
					continue
				}
			}
			rel, err := filepath.Rel(w.Root, ev.Name)
			if err != nil {
				continue
			}
			w.Dispatcher.Handle(ctx, filepath.ToSlash(rel))
		}
	}
}

func (w *Watcher) dispatchExisting(ctx context.Context, dir string) {
	files, err := fsutil.Glob(dir, "**")
	if err != nil {
		return
	}
	for _, f := range files {
		if rel, err := filepath.Rel(w.Root, filepath.Join(dir, f)); err == nil {
			w.Dispatcher.Handle(ctx, filepath.ToSlash(rel))
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	dirs, err := fsutil.Dirs(dir)
	if err != nil {
		return fmt.Errorf("failed to list directories under %s: %w", dir, err)
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}
	return nil
}
