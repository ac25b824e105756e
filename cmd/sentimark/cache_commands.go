package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sentimark/internal/resultcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show result cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := openCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", cache.Count())
			fmt.Fprintf(out, "File:    %s\n", cfg.CacheFile())
			return nil
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached classifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := openCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			entries := cache.List()
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortKey(entry.Key),
					truncate(entry.ReviewText, 40),
					entry.Result.Label,
					fmt.Sprintf("%.2f", entry.Result.Confidence),
					formatStamp(entry.CachedAt),
				})
			}
			table := renderTable(
				[]string{"Key", "Review", "Label", "Conf", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum entries to list (0 = all)")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove one cached classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := openCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			key, err := resolveCacheKey(cache, args[0])
			if err != nil {
				return err
			}
			if err := cache.Remove(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached result %s\n", shortKey(key))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := openCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached results\n", count)
			return nil
		},
	}
}

// openCache loads the persisted result cache. Inspection only makes sense
// when entries survive between invocations, so a memory-only configuration
// reports a warning instead of an empty cache.
func openCache(ctx *commandContext) (*resultcache.Cache, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.Cache.Enabled {
		return nil, "Result cache is disabled (set cache.enabled = true in config.toml)", nil
	}
	if cfg.CacheFile() == "" {
		return nil, "Result cache is memory-only (set cache.persist = true in config.toml)", nil
	}
	logger, err := newRunLogger(cfg)
	if err != nil {
		return nil, "", err
	}
	return resultcache.New(cfg.CacheFile(), logger), "", nil
}

// shortKey abbreviates the hash component of a cache key for table display.
func shortKey(key string) string {
	if i := strings.LastIndexByte(key, '|'); i >= 0 && len(key)-i > 13 {
		return key[:i+13] + "..."
	}
	return key
}

// resolveCacheKey accepts a full key or an unambiguous prefix, as copied from
// abbreviated list output.
func resolveCacheKey(cache *resultcache.Cache, key string) (string, error) {
	key = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(key), "..."))
	if key == "" {
		return "", errors.New("cache key is required")
	}
	if _, ok := cache.Lookup(key); ok {
		return key, nil
	}
	var matches []string
	for _, entry := range cache.List() {
		if strings.HasPrefix(entry.Key, key) {
			matches = append(matches, entry.Key)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("cache key %q not found", key)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("cache key %q is ambiguous (%d matches)", key, len(matches))
	}
}
