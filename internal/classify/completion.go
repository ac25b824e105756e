package classify

import "time"

// CompletionRequest carries a finished prompt to a text-completion backend.
// Backends treat the prompt as opaque and must not alter it.
type CompletionRequest struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Completion is the raw text a backend returned, before any normalization.
type Completion struct {
	Text    string
	Model   string
	Latency time.Duration
}
