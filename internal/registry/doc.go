// Package registry provides the central "glue" for the module system.
//
// Modules register their task handlers and the pipelines that compose them
// under string names. An application validates the registry once at startup,
// decodes each task's configuration block into the handler's input struct,
// and from then on resolves names for the executor and invokes handlers by
// reflection.
package registry
