package config

import (
	"context"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the project configuration at path. When required is false
	// a missing file yields the default model instead of an error.
	Load(ctx context.Context, path string, required bool) (*Model, error)
}
