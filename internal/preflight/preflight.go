package preflight

import (
	"context"

	"sentimark/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// HealthChecker is the provider surface the health command hands in.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// RunAll executes all applicable preflight checks for the given config.
// A nil checker skips the provider probe.
func RunAll(ctx context.Context, cfg *config.Config, checker HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if checker != nil {
		results = append(results, CheckProvider(ctx, checker))
	}

	return results
}
