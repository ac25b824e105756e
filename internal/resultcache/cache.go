package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sentimark/internal/classify"
	"sentimark/internal/logging"
)

// Entry is one cached classification outcome. The key encodes review text,
// mode, and temperature, so the same review under different settings lives
// in separate entries.
type Entry struct {
	Key         string          `json:"key"`
	ReviewText  string          `json:"review_text"`
	Mode        classify.Mode   `json:"mode"`
	Temperature float64         `json:"temperature"`
	Result      classify.Result `json:"result"`
	Model       string          `json:"model,omitempty"`
	CachedAt    time.Time       `json:"cached_at"`
}

// ComputeFunc produces a fresh classification for a cache miss. It returns
// the normalized result and the model that produced it.
type ComputeFunc func(ctx context.Context) (classify.Result, string, error)

// Stats summarizes cache effectiveness for the current process.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Cache stores classification results keyed by request identity. With an
// empty path it works purely in memory; otherwise entries persist to a JSON
// file rewritten atomically on every store.
type Cache struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. A nil logger falls back to the no-op logger. When the
// persisted file cannot be read the cache logs a warning and starts empty.
func New(path string, logger *slog.Logger) *Cache {
	logger = logging.WithComponent(logger, "resultcache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load result cache, starting empty",
			logging.String("path", path),
			logging.Error(err))
	}

	return c
}

// GetOrCompute returns the cached result for the request, computing and
// storing it on a miss. Concurrent callers with the same key share a single
// compute call. Failed computes are never cached, so a later attempt for the
// same request reaches the provider again. The hit return is true when this
// caller was served without a provider call of its own.
func (c *Cache) GetOrCompute(ctx context.Context, req classify.Request, compute ComputeFunc) (Entry, bool, error) {
	key := req.CacheKey()
	if entry, ok := c.Lookup(key); ok {
		c.hits.Add(1)
		return entry, true, nil
	}

	var computed bool
	value, err, _ := c.group.Do(key, func() (any, error) {
		if entry, ok := c.Lookup(key); ok {
			return entry, nil
		}
		computed = true
		result, model, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return c.store(req, result, model), nil
	})
	if err != nil {
		c.misses.Add(1)
		return Entry{}, false, err
	}

	entry := value.(Entry)
	if computed {
		c.misses.Add(1)
		return entry, false, nil
	}
	c.hits.Add(1)
	return entry, true, nil
}

// Lookup returns the entry for the given key if present.
func (c *Cache) Lookup(key string) (Entry, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	return entry, found
}

func (c *Cache) store(req classify.Request, result classify.Result, model string) Entry {
	entry := Entry{
		Key:         req.CacheKey(),
		ReviewText:  req.ReviewText,
		Mode:        req.Mode,
		Temperature: req.Temperature,
		Result:      result,
		Model:       model,
		CachedAt:    time.Now().UTC(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry

	if c.path != "" {
		if err := c.save(); err != nil {
			// A persistence failure must not fail the classification that
			// produced the entry; the in-memory copy stays valid.
			c.logger.Warn("failed to persist result cache",
				logging.String("path", c.path),
				logging.Error(err))
		}
	}

	c.logger.Debug("cached classification result",
		logging.String(logging.FieldCacheKey, entry.Key),
		logging.String("label", result.Label),
		logging.Float64("confidence", result.Confidence))

	return entry
}

// Remove deletes an entry by key and persists the change.
func (c *Cache) Remove(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return fmt.Errorf("cache key %q not found", key)
	}

	delete(c.entries, key)

	if c.path != "" {
		if err := c.save(); err != nil {
			return fmt.Errorf("persist cache: %w", err)
		}
	}

	c.logger.Debug("removed cached result", logging.String(logging.FieldCacheKey, key))
	return nil
}

// List returns all entries sorted by CachedAt descending (newest first).
func (c *Cache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	return entries
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)

	if c.path != "" {
		if err := c.save(); err != nil {
			return fmt.Errorf("persist cache: %w", err)
		}
	}

	c.logger.Debug("cleared result cache")
	return nil
}

// Count returns the number of entries in the cache.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Stats reports entry count plus process-lifetime hit and miss totals.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.Count(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// load reads the cache file into memory.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) != "" {
			c.entries[entry.Key] = entry
		}
	}

	c.logger.Debug("loaded result cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))

	return nil
}

// save writes the cache to disk atomically. Callers hold c.mu.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
