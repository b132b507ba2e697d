package config

import (
	"github.com/hashicorp/hcl/v2"
)

const (
	// DefaultAppRoot is the source and generated tree, relative to the project.
	DefaultAppRoot = "app"
	// DefaultDistDir is the export destination, relative to the project.
	DefaultDistDir = "dist"
	// DefaultFile is the configuration file looked up in the project directory.
	DefaultFile = "assetgrid.hcl"
)

// Model is the unified, format-agnostic representation of a project's
// configuration.
type Model struct {
	AppRoot string
	DistDir string
	// Tasks holds the per-task argument bodies keyed by task name.
	Tasks map[string]*TaskBlock
	// EvalContext is used to evaluate expressions inside task bodies.
	EvalContext *hcl.EvalContext
	// Source is the file the model was read from, empty for defaults.
	Source string
}

// TaskBlock is the format-agnostic representation of a `task` block.
type TaskBlock struct {
	Name  string
	Body  hcl.Body
	Range hcl.Range
}

// NewModel returns a model populated with the default layout.
func NewModel() *Model {
	return &Model{
		AppRoot: DefaultAppRoot,
		DistDir: DefaultDistDir,
		Tasks:   make(map[string]*TaskBlock),
	}
}
