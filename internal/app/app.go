package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/devserver"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *config.Model
	env      *task.Env
	modules  []registry.Module
	workers  int
}

// NewApp is the constructor for the main application. It loads the project
// configuration, registers modules and decodes every task's input. When no
// modules are given the core set is used. All returned errors are
// configuration errors.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	projectDir, err := filepath.Abs(appConfig.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	configPath, required := appConfig.ConfigPath, true
	if configPath == "" {
		configPath, required = filepath.Join(projectDir, config.DefaultFile), false
	}
	cfgModel, err := loader.Load(ctx, configPath, required)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded.", "source", cfgModel.Source)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	if err := reg.Configure(cfgModel); err != nil {
		return nil, err
	}
	logger.Debug("Task configuration decoded.")

	env, err := newEnv(projectDir, cfgModel)
	if err != nil {
		return nil, err
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfgModel,
		env:      env,
		modules:  modules,
		workers:  appConfig.WorkerCount,
	}
	env.Trigger = a.trigger
	return a, nil
}

func newEnv(projectDir string, model *config.Model) (*task.Env, error) {
	env := &task.Env{ProjectDir: projectDir}
	env.AppRoot = env.Project(model.AppRoot)
	env.DistDir = env.Project(model.DistDir)

	if rel, err := filepath.Rel(env.DistDir, env.AppRoot); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("dist_dir %q must not contain app_root %q", model.DistDir, model.AppRoot)
	}

	server := devserver.New()
	env.Server = server
	env.Notifier = server
	return env, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Env returns the environment handed to every task.
func (a *App) Env() *task.Env {
	return a.env
}

// Close releases resources held by modules, such as a running Sass compiler.
func (a *App) Close() error {
	var errs []error
	for _, mod := range a.modules {
		if c, ok := mod.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
