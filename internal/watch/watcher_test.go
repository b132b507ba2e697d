package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerLog struct {
	mu    sync.Mutex
	names []string
}

func (l *triggerLog) add(_ context.Context, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *triggerLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func startWatcher(t *testing.T, root string, log *triggerLog) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		Root:       root,
		Dispatcher: &Dispatcher{Rules: DefaultRules(), Trigger: log.add},
		ready:      make(chan struct{}),
	}
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	select {
	case <-w.ready:
	case err := <-done:
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not become ready")
	}
}

func TestWatcher_StyleEditTriggersStyles(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scss", "blocks"), 0o755))
	log := &triggerLog{}
	startWatcher(t, root, log)

	// --- Act ---
	require.NoError(t, os.WriteFile(filepath.Join(root, "scss", "blocks", "_nav.scss"), []byte("a{}"), 0o644))

	// --- Assert ---
	require.Eventually(t, func() bool { return len(log.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, name := range log.snapshot() {
		assert.Equal(t, "styles", name)
	}
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	root := t.TempDir()
	log := &triggerLog{}
	startWatcher(t, root, log)

	// --- Act ---
	dir := filepath.Join(root, "images", "src", "new")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o644))

	// --- Assert ---
	require.Eventually(t, func() bool {
		for _, n := range log.snapshot() {
			if n == "images" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
