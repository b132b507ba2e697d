package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ProjectDir is the directory layout paths are resolved against.
	ProjectDir string
	// ConfigPath names the HCL file. When empty, assetgrid.hcl in the
	// project directory is used if it exists.
	ConfigPath string

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "auto"
	}
	if !validLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("invalid log level %q: want debug, info, warn or error", cfg.LogLevel)
	}
	if !validFormats[cfg.LogFormat] {
		return nil, fmt.Errorf("invalid log format %q: want auto, text or json", cfg.LogFormat)
	}
	if cfg.WorkerCount < 1 {
		return nil, errors.New("worker count must be at least 1")
	}
	return &cfg, nil
}
