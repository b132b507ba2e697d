// Package config defines the format-agnostic project configuration model,
// along with the Loader interface for reading it from a source.
//
// The `config.Model` is the single source of truth for the layout of a
// project (app root, distribution directory) and for the per-task argument
// bodies that the registry decodes into each task's input struct. A concrete
// HCL implementation of Loader lives in the `hcl` package.
package config
