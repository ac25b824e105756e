package main

import (
	"log/slog"

	"sentimark/internal/analyzer"
	"sentimark/internal/classify"
	"sentimark/internal/config"
	"sentimark/internal/resultcache"
)

// buildClassifier assembles the single-review engine: prompt builder with any
// configured extra exemplars, optional result cache, optional pacing gate,
// and the provider. The returned cache is nil when caching is off.
func buildClassifier(cfg *config.Config, logger *slog.Logger, prov provider, gate analyzer.Gate, useCache bool) (*analyzer.Analyzer, *resultcache.Cache, error) {
	var extra []classify.Exemplar
	if file := cfg.Classification.ExemplarsFile; file != "" {
		loaded, err := classify.LoadExemplarsFile(file)
		if err != nil {
			return nil, nil, err
		}
		extra = loaded
	}
	builder := classify.NewBuilder(extra...)

	opts := []analyzer.Option{
		analyzer.WithLogger(logger),
		analyzer.WithMaxOutputTokens(maxOutputTokens(cfg)),
	}
	var cache *resultcache.Cache
	if useCache && cfg.Cache.Enabled {
		cache = resultcache.New(cfg.CacheFile(), logger)
		opts = append(opts, analyzer.WithCache(cache))
	}
	if gate != nil {
		opts = append(opts, analyzer.WithGate(gate))
	}
	return analyzer.New(prov, builder, opts...), cache, nil
}
