package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	err := Execute(context.Background(), args, out, logs)
	return out.String(), logs.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestExecute_Tasks(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dir := t.TempDir()

	// --- Act ---
	out, _, err := execute(t, "tasks", "--dir", dir)

	// --- Assert ---
	require.NoError(t, err)
	for _, want := range []string{"styles", "watch", "task (long-running)", "build", "pipeline (fail-fast)", "series(clean, export)"} {
		assert.Contains(t, out, want)
	}
}

func TestExecute_RunsNamedTask(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"dist/stale.html": "old"})

	// --- Act ---
	_, logs, err := execute(t, "--dir", dir, "--log-format", "json", "clean")

	// --- Assert ---
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
	assert.Contains(t, logs, `"task":"clean"`)
	assert.Contains(t, logs, `"run_id":`)
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown flag", args: []string{"--nope"}, wantMsg: "unknown flag: --nope"},
		{name: "too many targets", args: []string{"styles", "scripts"}, wantMsg: "accepts at most 1 arg"},
		{name: "invalid log level", args: []string{"--log-level", "loud", "clean"}, wantMsg: "invalid log level"},
		{name: "invalid workers", args: []string{"--workers", "0", "clean"}, wantMsg: "worker count"},
		{name: "unknown target", args: []string{"stylez"}, wantMsg: `unknown task or pipeline "stylez"`},
		{name: "missing explicit config", args: []string{"--config", "missing.hcl", "clean"}, wantMsg: "failed to load configuration"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// --- Arrange ---
			args := append([]string{"--dir", t.TempDir()}, tc.args...)

			// --- Act ---
			_, _, err := execute(t, args...)

			// --- Assert ---
			exitErr := requireExitCode(t, err, 2)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestExecute_TaskFailureIsNotUsageError(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"app/js/main.js": "let x = ;"})

	// --- Act ---
	_, _, err := execute(t, "--dir", dir, "scripts")

	// --- Assert ---
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestExecute_ConfigFileIsRead(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dir := t.TempDir()
	cfg := filepath.Join(dir, "custom.hcl")
	require.NoError(t, os.WriteFile(cfg, []byte("dist_dir = \"public\"\n"), 0o644))
	testutil.WriteTree(t, dir, map[string]string{"public/a.txt": "x", "dist/b.txt": "y"})

	// --- Act ---
	_, _, err := execute(t, "-C", dir, "-c", cfg, "clean")

	// --- Assert ---
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "public"))
	assert.FileExists(t, filepath.Join(dir, "dist", "b.txt"))
}
