package batch

import (
	"time"

	"sentimark/internal/classify"
)

// ItemState tracks one review through a batch run.
type ItemState string

const (
	StatePending   ItemState = "pending"
	StateInFlight  ItemState = "in_flight"
	StateCompleted ItemState = "completed"
	StateFailed    ItemState = "failed"
	StateSkipped   ItemState = "skipped"
)

// Input is one review queued for a batch run.
type Input struct {
	ReviewID   string
	ReviewText string
}

// Item is one review's slot in a run, in input order.
type Item struct {
	Index      int             `json:"index"`
	ReviewID   string          `json:"review_id,omitempty"`
	ReviewText string          `json:"review_text"`
	State      ItemState       `json:"state"`
	Result     classify.Result `json:"result"`
	Model      string          `json:"model,omitempty"`
	FromCache  bool            `json:"from_cache"`
	Latency    time.Duration   `json:"latency"`
	Error      string          `json:"error,omitempty"`
}

// Counts aggregates item outcomes. The per-class tallies cover completed
// items only; failed and skipped items carry no verdict.
type Counts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	CacheHits int `json:"cache_hits"`
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Neutral   int `json:"neutral"`
}

// Run is the record of one batch execution.
type Run struct {
	ID          string        `json:"id"`
	Source      string        `json:"source,omitempty"`
	Mode        classify.Mode `json:"mode"`
	Temperature float64       `json:"temperature"`
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Elapsed     time.Duration `json:"elapsed"`
	Items       []Item        `json:"items"`
	Counts      Counts        `json:"counts"`
	// Accuracy is set by callers holding ground-truth labels; the scheduler
	// never computes it.
	Accuracy *float64 `json:"accuracy,omitempty"`
}

func firstModel(items []Item) string {
	for _, item := range items {
		if item.Model != "" {
			return item.Model
		}
	}
	return ""
}

func tally(items []Item) Counts {
	counts := Counts{Total: len(items)}
	for _, item := range items {
		switch item.State {
		case StateCompleted:
			counts.Completed++
			if item.FromCache {
				counts.CacheHits++
			}
			switch item.Result.Label {
			case classify.LabelPositive:
				counts.Positive++
			case classify.LabelNegative:
				counts.Negative++
			case classify.LabelNeutral:
				counts.Neutral++
			}
		case StateFailed:
			counts.Failed++
		case StateSkipped:
			counts.Skipped++
		}
	}
	return counts
}
