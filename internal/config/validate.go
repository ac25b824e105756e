package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedBackends = map[string]struct{}{
	"gemini":    {},
	"openai":    {},
	"anthropic": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProvider(); err != nil {
		return err
	}
	if err := c.validateClassification(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProvider() error {
	backend := c.ActiveBackend()
	if _, ok := supportedBackends[backend]; !ok {
		return fmt.Errorf("provider.backend %q is not supported (gemini, openai, anthropic)", c.Provider.Backend)
	}

	var key, envHint string
	switch backend {
	case "gemini":
		key, envHint = c.Provider.Gemini.APIKey, "GEMINI_API_KEY"
	case "openai":
		key, envHint = c.Provider.OpenAI.APIKey, "OPENAI_API_KEY"
	case "anthropic":
		key, envHint = c.Provider.Anthropic.APIKey, "ANTHROPIC_API_KEY"
	}
	if strings.TrimSpace(key) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/sentimark/config.toml"
		}
		return fmt.Errorf("provider.%s.api_key is required. Set %s env var or edit %s (create with 'sentimark config init')", backend, envHint, defaultPath)
	}
	return nil
}

func (c *Config) validateClassification() error {
	switch c.Classification.Mode {
	case "strict", "lenient":
	default:
		return fmt.Errorf("classification.mode %q is not supported (strict, lenient)", c.Classification.Mode)
	}
	if c.Classification.SingleTemperature < 0 || c.Classification.SingleTemperature > 2 {
		return errors.New("classification.single_temperature must be between 0 and 2")
	}
	if c.Classification.DatasetTemperature < 0 || c.Classification.DatasetTemperature > 2 {
		return errors.New("classification.dataset_temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validatePacing() error {
	if c.Pacing.RequestIntervalSeconds < 0 {
		return errors.New("pacing.request_interval_seconds must be >= 0")
	}
	return nil
}
