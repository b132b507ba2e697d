package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// NewEvalContext builds the evaluation context for task bodies: the project
// layout as variables plus a small set of string and list functions.
func NewEvalContext(model *config.Model) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"app_root": cty.StringVal(model.AppRoot),
			"dist_dir": cty.StringVal(model.DistDir),
		},
		Functions: map[string]function.Function{
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
}
