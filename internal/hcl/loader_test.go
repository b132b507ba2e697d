package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetgrid.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingOptionalFileUsesDefaults(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"), false)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAppRoot, model.AppRoot)
	assert.Equal(t, config.DefaultDistDir, model.DistDir)
	assert.Empty(t, model.Tasks)
	assert.Empty(t, model.Source)
	require.NotNil(t, model.EvalContext)
}

func TestLoad_MissingRequiredFileFails(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"), true)
	assert.ErrorContains(t, err, "failed to read configuration")
}

func TestLoad_TaskBlocksAndLayout(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := writeConfig(t, `
		app_root = "site"

		task "styles" {
			entry = format("%s/scss/main.scss", app_root)
		}

		task "server" {
			port = 8080
		}
	`)

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), path, true)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "site", model.AppRoot)
	assert.Equal(t, config.DefaultDistDir, model.DistDir)
	assert.Equal(t, path, model.Source)
	require.Len(t, model.Tasks, 2)

	var styles struct {
		Entry string `hcl:"entry,optional"`
	}
	diags := gohcl.DecodeBody(model.Tasks["styles"].Body, model.EvalContext, &styles)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "site/scss/main.scss", styles.Entry)
}

func TestLoad_DuplicateTaskBlockIsRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
		task "styles" {}
		task "styles" {}
	`)

	_, err := NewLoader().Load(context.Background(), path, true)
	assert.ErrorContains(t, err, `duplicate task block "styles"`)
}

func TestLoad_InvalidHCLIsRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `task "styles" {`)

	_, err := NewLoader().Load(context.Background(), path, true)
	assert.ErrorContains(t, err, "failed to parse HCL file")
}

func TestLoad_UnknownTopLevelAttributeIsRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `output_dir = "out"`)

	_, err := NewLoader().Load(context.Background(), path, true)
	assert.ErrorContains(t, err, "failed to decode HCL file")
}

func TestNewEvalContext_ExposesLayout(t *testing.T) {
	t.Parallel()

	model := config.NewModel()
	model.DistDir = "public"
	evalCtx := NewEvalContext(model)

	expr, diags := hclsyntax.ParseExpression([]byte(`upper(dist_dir)`), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors())
	val, diags := expr.Value(evalCtx)
	require.False(t, diags.HasErrors())
	assert.Equal(t, "PUBLIC", val.AsString())
}
