package app

import (
	"github.com/specialistvlad/assetgrid/internal/dag"
	"github.com/specialistvlad/assetgrid/internal/registry"
)

// Pipelines registers the standard pipelines over the core tasks.
type Pipelines struct{}

// Register implements registry.Module.
func (Pipelines) Register(r *registry.Registry) {
	r.RegisterPipeline(&registry.RegisteredPipeline{
		Name:        "default",
		Description: "Build everything, serve with live reload and watch for changes",
		Step:        dag.Parallel(dag.Refs("styles", "scripts", "server", "html", "sprites", "images", "watch")...),
	})
	r.RegisterPipeline(&registry.RegisteredPipeline{
		Name:        "build",
		Description: "Clean the distribution directory, then export into it",
		Step:        dag.Series(dag.Ref("clean"), dag.Ref("export")),
		FailFast:    true,
	})
	r.RegisterPipeline(&registry.RegisteredPipeline{
		Name:        "libs",
		Description: "Bundle third-party library scripts and styles",
		Step:        dag.Parallel(dag.Ref("libs-css"), dag.Ref("libs-js")),
		FailFast:    true,
	})
}
