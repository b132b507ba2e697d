// Package server runs the live-reload development server over the app root.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/specialistvlad/assetgrid/internal/devserver"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the server task.
type Input struct {
	Host string `hcl:"host,optional"`
	Port int    `hcl:"port,optional"`
	// Notify shows a toast in the browser on every live-reload event.
	Notify bool `hcl:"notify,optional"`
}

func newInput() any {
	return &Input{Host: "localhost", Port: 3000}
}

// Normalize implements registry.Normalizer.
func (in *Input) Normalize() error {
	if in.Port < 0 || in.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", in.Port)
	}
	return nil
}

// Addr is the listen address.
func (in *Input) Addr() string {
	return net.JoinHostPort(in.Host, strconv.Itoa(in.Port))
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(&registry.RegisteredTask{
		Name:        "server",
		Description: "Serve the app root with live reload on http://localhost:3000",
		NewInput:    newInput,
		Fn:          Run,
		LongRunning: true,
	})
}

// Run is the handler for the server task. It blocks until ctx is canceled.
func Run(ctx context.Context, env *task.Env, input *Input) error {
	if env.Server == nil {
		return errors.New("no dev server configured")
	}
	return env.Server.Serve(ctx, devserver.Options{
		Root:   env.AppRoot,
		Addr:   input.Addr(),
		Notify: input.Notify,
	})
}
