package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sentimark/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check provider and directory readiness",
		// Config loading happens inside RunE so a broken config renders as a
		// failed check instead of a bare error.
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			cfg, err := ctx.ensureConfig()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Configuration", statusError, err.Error(), colorize))
				return errors.New("health checks failed")
			}

			logger, err := newRunLogger(cfg)
			if err != nil {
				return err
			}
			prov, err := newHealthProvider(cfg, logger)
			if err != nil {
				return err
			}

			failed := 0
			for _, result := range preflight.RunAll(cmd.Context(), cfg, prov) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed > 0 {
				return errors.New("health checks failed")
			}
			return nil
		},
	}
}
