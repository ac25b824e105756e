package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sentimark/internal/batch"
	"sentimark/internal/config"
	"sentimark/internal/dataset"
	"sentimark/internal/logging"
	"sentimark/internal/notifications"
	"sentimark/internal/runlock"
	"sentimark/internal/runstore"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var modeFlag string
	var temperature float64
	var limit int

	cmd := &cobra.Command{
		Use:   "batch <reviews.csv>",
		Short: "Classify every review in a CSV dataset",
		Long: "Classify every review in a CSV dataset.\n\n" +
			"The input needs a review_text column; review_id and sentiment are\n" +
			"optional. Results are written next to the input as\n" +
			"<name>_results.csv unless --output is given. When the dataset\n" +
			"carries ground-truth labels the run is graded against them.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			inputPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			rows, err := dataset.ReadFile(inputPath)
			if err != nil {
				return err
			}
			if limit > 0 && limit < len(rows) {
				rows = rows[:limit]
			}
			if len(rows) == 0 {
				return errors.New("dataset has no rows")
			}

			mode, err := resolveMode(cfg, modeFlag)
			if err != nil {
				return err
			}
			temp := resolveTemperature(cmd, temperature, cfg.Classification.DatasetTemperature)

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = derivedPath(inputPath, "_results")
			} else if target, err = config.ExpandPath(target); err != nil {
				return err
			}

			lock, err := runlock.New(cfg)
			if err != nil {
				return err
			}
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			logger, err := newRunLogger(cfg)
			if err != nil {
				return err
			}
			prov, err := newProvider(cfg, logger)
			if err != nil {
				return err
			}
			engine, _, err := buildClassifier(cfg, logger, prov, batch.NewPacer(pacingInterval(cfg)), true)
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			if err := notifier.NotifyRunStarted(runCtx, filepath.Base(inputPath), len(rows)); err != nil {
				logger.Warn("notify run started", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Classifying %d reviews from %s (%s mode, temperature %.2f, %s)\n",
				len(rows), filepath.Base(inputPath), mode, temp, prov.Name())

			progress := func(item batch.Item, total int) {
				switch item.State {
				case batch.StateCompleted:
					suffix := ""
					if item.FromCache {
						suffix = " (cached)"
					}
					fmt.Fprintf(out, "[%d/%d] %s: %s%s\n", item.Index+1, total, item.ReviewID, item.Result.Label, suffix)
				case batch.StateFailed:
					fmt.Fprintf(out, "[%d/%d] %s: failed: %s\n", item.Index+1, total, item.ReviewID, item.Error)
				}
			}

			scheduler := batch.New(engine, batch.WithLogger(logger), batch.WithProgress(progress))
			run, runErr := scheduler.Run(runCtx, batch.RunRequest{
				Inputs:      dataset.Inputs(rows),
				Mode:        mode,
				Temperature: temp,
				Provider:    prov.Name(),
				Source:      inputPath,
			})
			run.Accuracy = dataset.Accuracy(rows, run.Items)

			// Persistence and the completion notification run on a fresh
			// context so an interrupt still leaves a record behind.
			saveCtx, cancelSave := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelSave()

			if err := dataset.WriteResultsFile(target, rows, run.Items); err != nil {
				return err
			}
			saveRunHistory(saveCtx, cfg, logger, run)

			printRunSummary(out, cfg, rows, run, target)

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					fmt.Fprintln(out, "Run interrupted; partial results recorded")
				} else if err := notifier.NotifyError(saveCtx, runErr, "batch run"); err != nil {
					logger.Warn("notify error", logging.Error(err))
				}
				return runErr
			}

			if err := notifier.NotifyRunCompleted(saveCtx, run.Counts.Completed, run.Counts.Failed, run.Elapsed); err != nil {
				logger.Warn("notify run completed", logging.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Results CSV path (defaults to <input>_results.csv)")
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Resolution mode for mixed reviews (strict or lenient)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature (defaults to classification.dataset_temperature)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Classify only the first N rows (0 = all)")
	return cmd
}

// saveRunHistory records the run when history is enabled. Failures are
// logged, not returned: the classifications already happened and the results
// file is the primary artifact.
func saveRunHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, run batch.Run) {
	if cfg.HistoryDB() == "" {
		return
	}
	store, err := runstore.Open(cfg)
	if err != nil {
		logger.Warn("open run history", logging.Error(err))
		return
	}
	defer store.Close()
	if err := store.SaveRun(ctx, run); err != nil {
		logger.Warn("save run history", logging.Error(err))
	}
}

func printRunSummary(out io.Writer, cfg *config.Config, rows []dataset.Row, run batch.Run, resultsPath string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run %s finished in %s\n", shortID(run.ID), run.Elapsed.Round(time.Second))
	fmt.Fprintf(out, "Completed: %d (%d from cache)\n", run.Counts.Completed, run.Counts.CacheHits)
	if run.Counts.Failed > 0 {
		fmt.Fprintf(out, "Failed: %d\n", run.Counts.Failed)
	}
	if run.Counts.Skipped > 0 {
		fmt.Fprintf(out, "Skipped: %d\n", run.Counts.Skipped)
	}

	actual := dataset.ActualCounts(rows)
	if actual != (dataset.LabelCounts{}) {
		fmt.Fprintf(out, "Accuracy: %s\n", formatAccuracy(run.Accuracy))
		table := renderTable(
			[]string{"Label", "Actual", "Predicted"},
			[][]string{
				{"Positive", strconv.Itoa(actual.Positive), strconv.Itoa(run.Counts.Positive)},
				{"Negative", strconv.Itoa(actual.Negative), strconv.Itoa(run.Counts.Negative)},
				{"Neutral", strconv.Itoa(actual.Neutral), strconv.Itoa(run.Counts.Neutral)},
			},
			[]columnAlignment{alignLeft, alignRight, alignRight},
		)
		fmt.Fprintln(out, table)
	} else {
		fmt.Fprintf(out, "Positive: %d  Negative: %d  Neutral: %d\n",
			run.Counts.Positive, run.Counts.Negative, run.Counts.Neutral)
	}

	fmt.Fprintf(out, "Results: %s\n", resultsPath)
	if cfg.HistoryDB() != "" {
		fmt.Fprintf(out, "Run ID: %s\n", run.ID)
	}
}
