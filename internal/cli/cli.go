package cli

import (
	"context"
	"errors"
	"io"

	"github.com/specialistvlad/assetgrid/internal/app"
	"github.com/specialistvlad/assetgrid/internal/hcl"
	"github.com/spf13/cobra"
)

// DefaultTarget is run when no task or pipeline is named.
const DefaultTarget = "default"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// options collects the persistent flags shared by every command.
type options struct {
	dir       string
	config    string
	logLevel  string
	logFormat string
	workers   int
}

func (o *options) appConfig() (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		ProjectDir:  o.dir,
		ConfigPath:  o.config,
		LogLevel:    o.logLevel,
		LogFormat:   o.logFormat,
		WorkerCount: o.workers,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newApp builds the application from the parsed flags. Logs go to logW.
func (o *options) newApp(logW io.Writer) (*app.App, error) {
	cfg, err := o.appConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(logW, cfg, hcl.NewLoader())
	if err != nil {
		return nil, usageError(err)
	}
	return a, nil
}

// NewRootCommand builds the assetgrid command tree. Logs are written to
// logW, command output to the command's out writer.
func NewRootCommand(logW io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "assetgrid [flags] [TASK]",
		Short: "Front-end asset build tool",
		Long: `assetgrid compiles styles and scripts, optimizes images, expands HTML
includes, builds an SVG sprite, converts fonts and serves the result with
live reload. Run "assetgrid tasks" to list what can be run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := DefaultTarget
			if len(args) == 1 {
				target = args[0]
			}
			return runTarget(cmd.Context(), opts, logW, target)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", ".", "Project directory")
	flags.StringVarP(&opts.config, "config", "c", "", "Configuration file path (default <dir>/assetgrid.hcl if present)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "auto", "Log output format: auto, text or json")
	flags.IntVar(&opts.workers, "workers", 8, "Number of concurrent workers for the executor")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	rootCmd.AddCommand(newTasksCommand(opts, logW))

	return rootCmd
}

func runTarget(ctx context.Context, opts *options, logW io.Writer, target string) error {
	a, err := opts.newApp(logW)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Run(ctx, target)
	if errors.Is(err, app.ErrUnknownTarget) {
		return usageError(err)
	}
	return err
}

// Execute parses args and runs the requested command.
func Execute(ctx context.Context, args []string, outW, logW io.Writer) error {
	cmd := NewRootCommand(logW)
	cmd.SetArgs(args)
	cmd.SetOut(outW)
	cmd.SetErr(logW)
	return cmd.ExecuteContext(ctx)
}
