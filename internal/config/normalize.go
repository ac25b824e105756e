package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeProvider(); err != nil {
		return err
	}
	if err := c.normalizeClassification(); err != nil {
		return err
	}
	c.normalizeStores()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProvider() error {
	c.Provider.Backend = strings.ToLower(strings.TrimSpace(c.Provider.Backend))
	if c.Provider.Backend == "" {
		c.Provider.Backend = defaultBackend
	}

	g := &c.Provider.Gemini
	g.APIKey = strings.TrimSpace(g.APIKey)
	if g.APIKey == "" {
		g.APIKey = firstEnv("SENTIMARK_GEMINI_API_KEY", "GEMINI_API_KEY")
	}
	g.BaseURL = strings.TrimRight(strings.TrimSpace(g.BaseURL), "/")
	if g.BaseURL == "" {
		g.BaseURL = defaultGeminiBaseURL
	}
	if strings.TrimSpace(g.Model) == "" {
		g.Model = defaultGeminiModel
	}
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = defaultTimeoutSeconds
	}
	if g.MaxOutputTokens <= 0 {
		g.MaxOutputTokens = defaultMaxOutputTokens
	}

	o := &c.Provider.OpenAI
	o.APIKey = strings.TrimSpace(o.APIKey)
	if o.APIKey == "" {
		o.APIKey = firstEnv("SENTIMARK_OPENAI_API_KEY", "OPENAI_API_KEY")
	}
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(o.Model) == "" {
		o.Model = defaultOpenAIModel
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = defaultTimeoutSeconds
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = defaultMaxOutputTokens
	}

	a := &c.Provider.Anthropic
	a.APIKey = strings.TrimSpace(a.APIKey)
	if a.APIKey == "" {
		a.APIKey = firstEnv("SENTIMARK_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	}
	if strings.TrimSpace(a.Model) == "" {
		a.Model = defaultAnthropicModel
	}
	if a.TimeoutSeconds <= 0 {
		a.TimeoutSeconds = defaultTimeoutSeconds
	}
	if a.MaxOutputTokens <= 0 {
		a.MaxOutputTokens = defaultMaxOutputTokens
	}
	return nil
}

func (c *Config) normalizeClassification() error {
	c.Classification.Mode = strings.ToLower(strings.TrimSpace(c.Classification.Mode))
	if c.Classification.Mode == "" {
		c.Classification.Mode = defaultMode
	}
	if c.Classification.SingleTemperature == 0 {
		c.Classification.SingleTemperature = defaultSingleTemp
	}
	if c.Classification.DatasetTemperature == 0 {
		c.Classification.DatasetTemperature = defaultDatasetTemp
	}
	if c.Pacing.RequestIntervalSeconds == 0 {
		c.Pacing.RequestIntervalSeconds = defaultRequestInterval
	}
	if file := strings.TrimSpace(c.Classification.ExemplarsFile); file != "" {
		expanded, err := expandPath(file)
		if err != nil {
			return fmt.Errorf("classification.exemplars_file: %w", err)
		}
		c.Classification.ExemplarsFile = expanded
	} else {
		c.Classification.ExemplarsFile = ""
	}
	return nil
}

func (c *Config) normalizeStores() {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.DataDir, "results_cache.json")
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.DataDir, "runs.db")
	}
	if c.History.ListLimit <= 0 {
		c.History.ListLimit = defaultHistoryListLimit
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
