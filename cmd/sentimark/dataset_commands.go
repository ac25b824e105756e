package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sentimark/internal/config"
	"sentimark/internal/dataset"
)

func newDatasetCommand(ctx *commandContext) *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Work with review CSV datasets",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
	}

	datasetCmd.AddCommand(newDatasetSampleCommand(ctx))

	return datasetCmd
}

func newDatasetSampleCommand(ctx *commandContext) *cobra.Command {
	var perLabel int
	var seed int64
	var maxSimilarity float64
	var outputPath string

	cmd := &cobra.Command{
		Use:   "sample <reviews.csv>",
		Short: "Draw a balanced sample from a labeled dataset",
		Long: "Draw a balanced sample from a labeled dataset.\n\n" +
			"Rows are grouped by ground-truth sentiment and --per-label rows are\n" +
			"drawn from each group, skipping near-duplicate reviews. The draw is\n" +
			"deterministic for a given --seed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			rows, err := dataset.ReadFile(inputPath)
			if err != nil {
				return err
			}

			sample, err := dataset.Sample(rows, dataset.SampleOptions{
				PerLabel:      perLabel,
				Seed:          seed,
				MaxSimilarity: maxSimilarity,
			})
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				target = derivedPath(inputPath, "_sample")
			} else if target, err = config.ExpandPath(target); err != nil {
				return err
			}
			if err := dataset.WriteRowsFile(target, sample); err != nil {
				return err
			}

			counts := dataset.ActualCounts(sample)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sampled %d reviews (%d positive, %d negative, %d neutral)\n",
				len(sample), counts.Positive, counts.Negative, counts.Neutral)
			fmt.Fprintf(out, "Sample: %s\n", target)
			return nil
		},
	}

	cmd.Flags().IntVar(&perLabel, "per-label", 5, "Rows to draw per sentiment label")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for a reproducible draw")
	cmd.Flags().Float64Var(&maxSimilarity, "max-similarity", 0.9, "Reject candidates at or above this similarity (0 disables)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Sample CSV path (defaults to <input>_sample.csv)")
	return cmd
}
