package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/stretchr/testify/require"
)

// WriteTree creates files under root. Keys are slash-separated relative paths.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// ReadFile returns the content of a file, failing the test if it is missing.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Touch sets the modification time of path to now plus offset.
func Touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

// NewEnv returns a task environment rooted in a fresh temporary project
// directory, with its app root at "app" and dist at "dist", and a
// recording notifier.
func NewEnv(t *testing.T) (*task.Env, *RecordingNotifier) {
	t.Helper()
	project := t.TempDir()
	notifier := &RecordingNotifier{}
	return &task.Env{
		ProjectDir: project,
		AppRoot:    filepath.Join(project, "app"),
		DistDir:    filepath.Join(project, "dist"),
		Notifier:   notifier,
	}, notifier
}

// Context returns a background context carrying a logger. Logs are discarded
// unless BGGO_TEST_LOGS=true.
func Context(t *testing.T) context.Context {
	t.Helper()
	var w io.Writer = io.Discard
	if os.Getenv("BGGO_TEST_LOGS") == "true" {
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}
