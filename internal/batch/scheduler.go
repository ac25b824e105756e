package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentimark/internal/analyzer"
	"sentimark/internal/classify"
	"sentimark/internal/logging"
	"sentimark/internal/services"
)

// Classifier is the single-review engine the scheduler drives.
type Classifier interface {
	Classify(ctx context.Context, req classify.Request) (analyzer.Classification, error)
}

// RunRequest describes one batch: the reviews plus the settings shared by
// every item. Source is a provenance label for the run record, typically
// the input file path.
type RunRequest struct {
	Inputs      []Input
	Mode        classify.Mode
	Temperature float64
	Provider    string
	Source      string
}

// ProgressFunc observes each item as it reaches a terminal state.
type ProgressFunc func(item Item, total int)

// Scheduler walks a batch sequentially in input order. One review is in
// flight at a time; pacing between provider calls is the classifier's
// concern, so cache hits flow through without delay.
type Scheduler struct {
	classifier Classifier
	logger     *slog.Logger
	progress   ProgressFunc
}

// Option adjusts Scheduler construction.
type Option func(*Scheduler)

// WithLogger sets the logger for run lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithProgress registers a callback invoked after each item settles.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scheduler) { s.progress = fn }
}

// New builds a Scheduler around a classifier.
func New(classifier Classifier, opts ...Option) *Scheduler {
	s := &Scheduler{classifier: classifier}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent(s.logger, "batch")
	return s
}

// Run executes the batch and returns its record. Item failures do not stop
// the run. A configuration error aborts it: the failing item is recorded,
// every later item is skipped, and the error comes back alongside the
// partial run. Cancellation works the same way with the remaining items
// skipped and the context error returned.
func (s *Scheduler) Run(ctx context.Context, req RunRequest) (Run, error) {
	run := Run{
		ID:          uuid.NewString(),
		Source:      req.Source,
		Mode:        req.Mode,
		Temperature: req.Temperature,
		Provider:    req.Provider,
		StartedAt:   time.Now().UTC(),
		Items:       make([]Item, len(req.Inputs)),
	}
	for i, input := range req.Inputs {
		run.Items[i] = Item{
			Index:      i,
			ReviewID:   input.ReviewID,
			ReviewText: input.ReviewText,
			State:      StatePending,
		}
	}

	logger := s.logger.With(logging.String(logging.FieldRunID, run.ID))
	logger.Info("starting batch run",
		logging.Int("item_count", len(run.Items)),
		logging.String("mode", string(req.Mode)),
		logging.Float64("temperature", req.Temperature))

	var runErr error
	for i := range run.Items {
		if err := ctx.Err(); err != nil {
			s.skipFrom(run.Items, i, logger)
			runErr = err
			break
		}

		item := &run.Items[i]
		item.State = StateInFlight

		out, err := s.classifier.Classify(ctx, classify.Request{
			ReviewText:  item.ReviewText,
			Mode:        req.Mode,
			Temperature: req.Temperature,
		})
		if err != nil {
			if canceled(ctx, err) {
				item.State = StateSkipped
				s.settle(*item, len(run.Items))
				s.skipFrom(run.Items, i+1, logger)
				runErr = err
				break
			}
			item.State = StateFailed
			item.Error = err.Error()
			logger.Warn("item failed",
				logging.Int(logging.FieldItemIndex, i),
				logging.Error(err))
			s.settle(*item, len(run.Items))
			if services.Terminal(err) {
				s.skipFrom(run.Items, i+1, logger)
				runErr = err
				break
			}
			continue
		}

		item.State = StateCompleted
		item.Result = out.Result
		item.Model = out.Model
		item.FromCache = out.FromCache
		item.Latency = out.Latency
		logger.Debug("item completed",
			logging.Int(logging.FieldItemIndex, i),
			logging.String("label", out.Result.Label),
			logging.Bool("from_cache", out.FromCache))
		s.settle(*item, len(run.Items))
	}

	run.FinishedAt = time.Now().UTC()
	run.Elapsed = run.FinishedAt.Sub(run.StartedAt)
	run.Counts = tally(run.Items)
	run.Model = firstModel(run.Items)

	logger.Info("batch run finished",
		logging.Int("completed", run.Counts.Completed),
		logging.Int("failed", run.Counts.Failed),
		logging.Int("skipped", run.Counts.Skipped),
		logging.Int("cache_hits", run.Counts.CacheHits),
		logging.Duration("elapsed", run.Elapsed))

	return run, runErr
}

func (s *Scheduler) settle(item Item, total int) {
	if s.progress != nil {
		s.progress(item, total)
	}
}

func (s *Scheduler) skipFrom(items []Item, start int, logger *slog.Logger) {
	for i := start; i < len(items); i++ {
		if items[i].State != StatePending {
			continue
		}
		items[i].State = StateSkipped
		s.settle(items[i], len(items))
	}
	if start < len(items) {
		logger.Info("skipping remaining items", logging.Int("first_skipped", start))
	}
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
