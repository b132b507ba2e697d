package dag

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolverFor(pipelines map[string]Step, longRunning ...string) Resolver {
	lr := make(map[string]bool)
	for _, n := range longRunning {
		lr[n] = true
	}
	return func(name string) (Target, bool) {
		if p, ok := pipelines[name]; ok {
			return Target{Pipeline: p}, true
		}
		switch name {
		case "a", "b", "c", "d", "server", "watch":
			return Target{LongRunning: lr[name]}, true
		}
		return Target{}, false
	}
}

func depsOf(t *testing.T, p *Plan, id string) []string {
	t.Helper()
	deps, err := p.Graph.Dependencies(id)
	require.NoError(t, err)
	sort.Strings(deps)
	return deps
}

func TestCompile_Parallel(t *testing.T) {
	t.Parallel()
	// --- Act ---
	plan, err := Compile(Parallel(Refs("a", "b", "c")...), resolverFor(nil))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 3)
	for _, n := range plan.Nodes {
		assert.Empty(t, n.Deps)
		assert.Equal(t, int32(0), n.depCount.Load())
	}
}

func TestCompile_SeriesOfGroups(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	step := Series(Parallel(Refs("a", "b")...), Ref("c"), Parallel(Refs("d")...))

	// --- Act ---
	plan, err := Compile(step, resolverFor(nil))

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, depsOf(t, plan, "a"))
	assert.Empty(t, depsOf(t, plan, "b"))
	assert.Equal(t, []string{"a", "b"}, depsOf(t, plan, "c"))
	assert.Equal(t, []string{"c"}, depsOf(t, plan, "d"))
}

func TestCompile_ExpandsNestedPipelines(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	pipelines := map[string]Step{
		"inner": Parallel(Refs("a", "b")...),
		"outer": Series(Ref("inner"), Ref("c")),
	}

	// --- Act ---
	plan, err := Compile(Ref("outer"), resolverFor(pipelines))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 3)
	assert.Equal(t, []string{"a", "b"}, depsOf(t, plan, "c"))
}

func TestCompile_RepeatedTaskGetsDistinctNodes(t *testing.T) {
	t.Parallel()
	// --- Act ---
	plan, err := Compile(Series(Ref("a"), Ref("b"), Ref("a")), resolverFor(nil))

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 3)
	assert.Equal(t, "a#2", plan.Nodes[2].ID)
	assert.Equal(t, "a", plan.Nodes[2].Task)
	assert.Equal(t, []string{"b"}, depsOf(t, plan, "a#2"))
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		_, err := Compile(Series(Ref("a"), Ref("nope")), resolverFor(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown task or pipeline "nope"`)
	})

	t.Run("self-referencing pipeline", func(t *testing.T) {
		t.Parallel()
		pipelines := map[string]Step{
			"x": Series(Ref("a"), Ref("y")),
			"y": Parallel(Ref("x")),
		}
		_, err := Compile(Ref("x"), resolverFor(pipelines))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x -> y -> x")
	})
}

func TestCompile_LongRunningCount(t *testing.T) {
	t.Parallel()
	plan, err := Compile(Parallel(Refs("a", "server", "watch")...), resolverFor(nil, "server", "watch"))
	require.NoError(t, err)
	assert.Equal(t, 2, plan.LongRunningCount())
}

func TestStepString(t *testing.T) {
	t.Parallel()
	step := Series(Ref("clean"), Parallel(Refs("a", "b")...))
	assert.Equal(t, "series(clean, parallel(a, b))", step.String())
	assert.Equal(t, []string{"clean", "a", "b"}, RefNames(step))
}
