package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentimark/internal/classify"
)

type classifyOutput struct {
	Label           string   `json:"label"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	EvidencePhrases []string `json:"evidence_phrases"`
	Model           string   `json:"model,omitempty"`
	FromCache       bool     `json:"from_cache"`
	LatencyMS       int64    `json:"latency_ms,omitempty"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var temperature float64
	var noCache bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "classify [review text]",
		Short: "Classify one review's sentiment",
		Long: "Classify one review's sentiment.\n\n" +
			"The review text comes from the arguments, or from stdin when no\n" +
			"arguments are given.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			text, err := reviewTextFromArgs(cmd, args)
			if err != nil {
				return err
			}
			if text == "" {
				return errors.New("review text is required (pass it as an argument or on stdin)")
			}

			mode, err := resolveMode(cfg, modeFlag)
			if err != nil {
				return err
			}
			temp := resolveTemperature(cmd, temperature, cfg.Classification.SingleTemperature)

			logger, err := newRunLogger(cfg)
			if err != nil {
				return err
			}
			prov, err := newProvider(cfg, logger)
			if err != nil {
				return err
			}
			engine, _, err := buildClassifier(cfg, logger, prov, nil, !noCache)
			if err != nil {
				return err
			}

			out, err := engine.Classify(cmd.Context(), classify.Request{
				ReviewText:  text,
				Mode:        mode,
				Temperature: temp,
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, classifyOutput{
					Label:           out.Result.Label,
					Confidence:      out.Result.Confidence,
					Explanation:     out.Result.Explanation,
					EvidencePhrases: out.Result.EvidencePhrases,
					Model:           out.Model,
					FromCache:       out.FromCache,
					LatencyMS:       out.Latency.Milliseconds(),
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Label: %s\n", out.Result.Label)
			fmt.Fprintf(w, "Confidence: %.2f\n", out.Result.Confidence)
			fmt.Fprintf(w, "Explanation: %s\n", out.Result.Explanation)
			if len(out.Result.EvidencePhrases) > 0 {
				fmt.Fprintf(w, "Evidence: %s\n", strings.Join(out.Result.EvidencePhrases, " | "))
			}
			switch {
			case out.FromCache:
				fmt.Fprintln(w, "Source: cache")
			case out.Model != "":
				fmt.Fprintf(w, "Source: %s (%s)\n", out.Model, out.Latency.Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Resolution mode for mixed reviews (strict or lenient)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature (defaults to classification.single_temperature)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the result cache for this call")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the result as JSON")
	return cmd
}

func reviewTextFromArgs(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read review text from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
