package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/spf13/cobra"
)

func newTasksCommand(opts *options, logW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List registered tasks and pipelines",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(logW)
			if err != nil {
				return err
			}
			defer a.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTasks(a.Registry()))
			return err
		},
	}
}

func renderTasks(reg *registry.Registry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Name", "Kind", "Description"})

	for _, t := range reg.Tasks() {
		kind := "task"
		if t.LongRunning {
			kind = "task (long-running)"
		}
		tw.AppendRow(table.Row{t.Name, kind, t.Description})
	}
	tw.AppendSeparator()
	for _, p := range reg.Pipelines() {
		kind := "pipeline"
		if p.FailFast {
			kind = "pipeline (fail-fast)"
		}
		tw.AppendRow(table.Row{p.Name, kind, fmt.Sprintf("%s: %s", p.Description, p.Step)})
	}

	return tw.Render()
}
