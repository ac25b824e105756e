// Package config loads and validates the TOML configuration for sentimark.
//
// Load resolves the config path (explicit flag, ~/.config/sentimark, or a
// project-local sentimark.toml), decodes it over the defaults, expands ~ in
// paths, pulls missing API keys from the environment, and validates the
// result. A missing file is not an error; the defaults plus environment
// are enough to run against Gemini.
package config
