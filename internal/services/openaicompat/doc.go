// Package openaicompat implements the completion backend for OpenAI-compatible
// chat endpoints. Transient failures (408/429/5xx, timeouts, empty replies)
// retry with a doubling backoff that honors Retry-After when present.
package openaicompat
