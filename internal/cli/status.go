package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/errors"
)

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newStatusCmd(flags))
}

func newStatusCmd(flags *GlobalFlags) *cobra.Command {
	var storeDir string

	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show stored tasks",
		Long: `Show tasks saved to the snapshot store by 'evo serve --persist'
or with store.enabled set in the config.

Without an id every stored task is listed, newest first.

Examples:
  evo status
  evo status 0b8f5a9e-4a1c-4a53-9b8e-2f0c3d6e7a11 --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			factory := NewServiceFactory(GetLogger(), nil)
			cfg, err := factory.LoadConfig(ctx, config.Overrides{StoreDir: storeDir})
			if err != nil {
				return err
			}
			store, err := factory.OpenStore(cfg)
			if err != nil {
				return err
			}
			checkNoColor()
			out := NewOutput(cmd.OutOrStdout(), flags.Output)
			if len(args) == 1 {
				return showTask(ctx, out, store, args[0])
			}
			return listTasks(ctx, out, cmd.OutOrStdout(), store)
		},
	}
	cmd.Flags().StringVar(&storeDir, "store-dir", "", "snapshot directory (default ~/.evo/tasks)")
	return cmd
}

// taskReader is the read side of task.FileStore.
type taskReader interface {
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	List(ctx context.Context) ([]*domain.Task, error)
}

func showTask(ctx context.Context, out *Output, store taskReader, id string) error {
	t, err := store.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewExitCode2Error(err)
		}
		return err
	}
	if out.IsJSON() {
		return out.JSON(t)
	}

	out.Info(out.Status(t.ID, t.Status, t.Stage, t.Progress))
	out.Raw(fmt.Sprintf("Goal:      %s\n", t.Goal))
	if t.Blueprint != "" {
		out.Raw(fmt.Sprintf("Blueprint: %s\n", t.Blueprint))
	}
	out.Raw(fmt.Sprintf("Created:   %s\n", t.CreatedAt.Format(time.RFC3339)))
	out.Raw(fmt.Sprintf("Updated:   %s\n", t.UpdatedAt.Format(time.RFC3339)))
	if t.Error != "" {
		out.Warning(t.Error)
	}
	if t.Results != nil {
		out.Raw(fmt.Sprintf("Iterations: %d  Best score: %.4f  Final score: %.4f\n",
			t.Results.Iterations, t.Results.BestScore, t.Results.Metrics.Score))
		if t.Results.PR != nil && t.Results.PR.URL != "" {
			out.Raw("Pull request: " + t.Results.PR.URL + "\n")
		}
	}
	return nil
}

func listTasks(ctx context.Context, out *Output, w io.Writer, store taskReader) error {
	tasks, err := store.List(ctx)
	if err != nil {
		return err
	}
	if out.IsJSON() {
		snaps := make([]domain.StatusSnapshot, 0, len(tasks))
		for _, t := range tasks {
			snaps = append(snaps, t.Snapshot())
		}
		return out.JSON(snaps)
	}
	if len(tasks) == 0 {
		out.Info("no stored tasks")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tSTAGE\tPROGRESS\tUPDATED\tGOAL")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			t.ID, t.Status, t.Stage, t.Progress, t.UpdatedAt.Format(time.RFC3339), truncate(t.Goal, 50))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
