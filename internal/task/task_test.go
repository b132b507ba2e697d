package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv_Paths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	env := &Env{
		ProjectDir: root,
		AppRoot:    filepath.Join(root, "app"),
		DistDir:    filepath.Join(root, "dist"),
	}

	assert.Equal(t, filepath.Join(root, "app", "css", "style.min.css"), env.App("css", "style.min.css"))
	assert.Equal(t, filepath.Join(root, "dist", "index.html"), env.Dist("index.html"))
	assert.Equal(t, filepath.Join(root, "node_modules", "aos.js"), env.Project("node_modules/aos.js"))
	assert.Equal(t, "/abs/path.js", env.Project("/abs/path.js"))

	assert.Equal(t, "/css/style.min.css", env.URLPath(env.App("css", "style.min.css")))
	assert.Equal(t, "", env.URLPath(filepath.Join(root, "dist", "x.css")))
}

func TestEnv_WriteOutputCreatesParents(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	env := &Env{ProjectDir: root, AppRoot: filepath.Join(root, "app")}

	err := env.WriteOutput(context.Background(), env.App("images", "dist", "a", "b.webp"), []byte("data"))

	require.NoError(t, err)
	got, err := os.ReadFile(env.App("images", "dist", "a", "b.webp"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}
