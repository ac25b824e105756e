package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sentimark/internal/batch"
	"sentimark/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage batch run history",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := runStore(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.History.ListLimit
			}

			summaries, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				rows = append(rows, []string{
					shortID(summary.ID),
					formatStamp(summary.StartedAt),
					truncate(filepath.Base(summary.Source), 28),
					string(summary.Mode),
					strconv.Itoa(summary.Counts.Total),
					strconv.Itoa(summary.Counts.Completed),
					strconv.Itoa(summary.Counts.Failed),
					strconv.Itoa(summary.Counts.CacheHits),
					formatAccuracy(summary.Accuracy),
				})
			}
			table := renderTable(
				[]string{"ID", "Started", "Source", "Mode", "Total", "OK", "Failed", "Cached", "Accuracy"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum runs to list (defaults to history.list_limit)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-review results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := runStore(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}
			if jsonOut {
				return writeJSON(cmd, run)
			}
			printRunDetail(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write the full run as JSON")
	return cmd
}

func printRunDetail(out io.Writer, run *batch.Run) {
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "Started:   %s\n", formatStamp(run.StartedAt))
	fmt.Fprintf(out, "Elapsed:   %s\n", run.Elapsed.Round(time.Second))
	if run.Source != "" {
		fmt.Fprintf(out, "Source:    %s\n", run.Source)
	}
	fmt.Fprintf(out, "Mode:      %s (temperature %.2f)\n", run.Mode, run.Temperature)
	if run.Provider != "" {
		backend := run.Provider
		if run.Model != "" {
			backend += " (" + run.Model + ")"
		}
		fmt.Fprintf(out, "Provider:  %s\n", backend)
	}
	fmt.Fprintf(out, "Completed: %d of %d (%d from cache)\n", run.Counts.Completed, run.Counts.Total, run.Counts.CacheHits)
	if run.Counts.Failed > 0 {
		fmt.Fprintf(out, "Failed:    %d\n", run.Counts.Failed)
	}
	if run.Accuracy != nil {
		fmt.Fprintf(out, "Accuracy:  %s\n", formatAccuracy(run.Accuracy))
	}

	if len(run.Items) == 0 {
		return
	}
	rows := make([][]string, 0, len(run.Items))
	for _, item := range run.Items {
		rows = append(rows, []string{
			strconv.Itoa(item.Index + 1),
			reviewHandle(item),
			itemVerdict(item),
			itemConfidence(item),
			yesNo(item.FromCache),
		})
	}
	table := renderTable(
		[]string{"#", "Review", "Label", "Conf", "Cached"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
	fmt.Fprint(out, table)
}

// reviewHandle labels a run item for display, preferring the dataset ID over
// a snippet of the review text.
func reviewHandle(item batch.Item) string {
	if item.ReviewID != "" {
		return truncate(item.ReviewID, 24)
	}
	return truncate(item.ReviewText, 40)
}

func itemVerdict(item batch.Item) string {
	switch item.State {
	case batch.StateCompleted:
		return item.Result.Label
	case batch.StateFailed:
		return "failed"
	case batch.StateSkipped:
		return "skipped"
	default:
		return string(item.State)
	}
}

func itemConfidence(item batch.Item) string {
	if item.State != batch.StateCompleted {
		return "-"
	}
	return fmt.Sprintf("%.2f", item.Result.Confidence)
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := runStore(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}
			if _, err := store.DeleteRun(cmd.Context(), run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ID)
			return nil
		},
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, warn, err := runStore(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}
}

func runStore(ctx *commandContext) (*runstore.Store, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if cfg.HistoryDB() == "" {
		return nil, "Run history is disabled (set history.enabled = true in config.toml)", nil
	}
	store, err := runstore.Open(cfg)
	if err != nil {
		return nil, "", err
	}
	return store, "", nil
}
