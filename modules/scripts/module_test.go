package scripts

import (
	"strings"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripts_ConcatenatesInOrder(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	env, notifier := testutil.NewEnv(t)
	testutil.WriteTree(t, env.AppRoot, map[string]string{
		"js/main.js":     `console.log("main-first");`,
		"js/libs.min.js": `console.log("libs-second");`,
	})

	// --- Act ---
	err := Run(testutil.Context(t), env, newInput().(*Input))

	// --- Assert ---
	require.NoError(t, err)
	out := testutil.ReadFile(t, env.App("js", "main.min.js"))
	first, second := strings.Index(out, "main-first"), strings.Index(out, "libs-second")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "reload", events[0].Kind)
	assert.Equal(t, []string{"/js/main.min.js"}, events[0].Paths)
}

func TestScripts_SeparatorKeepsStatementsApart(t *testing.T) {
	t.Parallel()
	// Without a newline between files, a trailing line comment would swallow
	// the next file.
	env, _ := testutil.NewEnv(t)
	testutil.WriteTree(t, env.AppRoot, map[string]string{
		"js/main.js":     "window.a = 1 // trailing comment",
		"js/libs.min.js": "window.b = 2",
	})

	require.NoError(t, Run(testutil.Context(t), env, newInput().(*Input)))

	assert.Contains(t, testutil.ReadFile(t, env.App("js", "main.min.js")), "window.b=2")
}

func TestScripts_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()
		env, notifier := testutil.NewEnv(t)
		testutil.WriteTree(t, env.AppRoot, map[string]string{"js/main.js": "1"})

		err := Run(testutil.Context(t), env, newInput().(*Input))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "libs.min.js")
		assert.Empty(t, notifier.Events())
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		env, _ := testutil.NewEnv(t)
		testutil.WriteTree(t, env.AppRoot, map[string]string{"js/main.js": "function (", "js/libs.min.js": ""})

		err := Run(testutil.Context(t), env, newInput().(*Input))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to minify")
	})

	t.Run("wrong source count", func(t *testing.T) {
		t.Parallel()
		in := &Input{Sources: []string{"js/main.js"}, Output: "js/main.min.js"}
		assert.ErrorContains(t, in.Normalize(), "exactly two files")
	})
}
