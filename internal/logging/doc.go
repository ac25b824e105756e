// Package logging builds the slog loggers used across sentimark.
//
// Two output formats are supported: a human-oriented console format that
// lifts the component attribute into a prefix, and a machine-oriented JSON
// format with ts/level/msg keys. Construction goes through Options so the
// CLI and tests share one code path; NewNop supplies the silent default
// that every long-lived object falls back to when no logger is injected.
package logging
