package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// hclProjectFile represents the top-level structure of a project file for decoding.
type hclProjectFile struct {
	AppRoot string     `hcl:"app_root,optional"`
	DistDir string     `hcl:"dist_dir,optional"`
	Tasks   []*hclTask `hcl:"task,block"`
}

// hclTask represents a single 'task' block for initial decoding from HCL.
type hclTask struct {
	Name      string    `hcl:"name,label"`
	Body      hcl.Body  `hcl:",remain"`
	DeclRange hcl.Range `hcl:",def_range"`
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string, required bool) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading project configuration.", "path", path, "required", required)

	model := config.NewModel()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			logger.Debug("No project configuration found, using defaults.", "path", path)
			model.EvalContext = NewEvalContext(model)
			return model, nil
		}
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	parsed := hclProjectFile{
		AppRoot: model.AppRoot,
		DistDir: model.DistDir,
	}
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	if parsed.AppRoot == "" {
		return nil, fmt.Errorf("%s: app_root must not be empty", path)
	}
	if parsed.DistDir == "" {
		return nil, fmt.Errorf("%s: dist_dir must not be empty", path)
	}

	model.AppRoot = parsed.AppRoot
	model.DistDir = parsed.DistDir
	model.Source = path

	for _, t := range parsed.Tasks {
		if prev, exists := model.Tasks[t.Name]; exists {
			return nil, fmt.Errorf("%s: duplicate task block %q (first defined at %s)", t.DeclRange, t.Name, prev.Range)
		}
		model.Tasks[t.Name] = &config.TaskBlock{
			Name:  t.Name,
			Body:  t.Body,
			Range: t.DeclRange,
		}
	}
	model.EvalContext = NewEvalContext(model)

	logger.Debug("Project configuration loaded.", "app_root", model.AppRoot, "dist_dir", model.DistDir, "task_blocks", len(model.Tasks))
	return model, nil
}
