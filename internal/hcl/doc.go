// Package hcl provides the HCL implementation of config.Loader. It parses an
// assetgrid.hcl project file into the format-agnostic config.Model, keeping
// each `task` block body undecoded so the registry can bind it to the
// matching task's Go input struct.
package hcl
