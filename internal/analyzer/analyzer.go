package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sentimark/internal/classify"
	"sentimark/internal/logging"
	"sentimark/internal/resultcache"
	"sentimark/internal/services"
)

const defaultMaxOutputTokens = 256

// Completer is the provider-side contract: deliver a prompt verbatim to a
// model and return its raw text reply. Implementations wrap transport
// failures with services.ErrRemoteCall and credential or endpoint problems
// with services.ErrConfiguration.
type Completer interface {
	Complete(ctx context.Context, req classify.CompletionRequest) (classify.Completion, error)
	Name() string
}

// Gate paces provider calls. Wait blocks until the next call may start and
// Mark records that a call just finished. Cache hits never touch the gate.
type Gate interface {
	Wait(ctx context.Context) error
	Mark()
}

// Classification is one finished classification with its provenance.
type Classification struct {
	Request   classify.Request
	Result    classify.Result
	Model     string
	FromCache bool
	// Latency is the provider round trip for this call. Zero when the
	// result came from the cache.
	Latency time.Duration
}

// Analyzer runs single classifications: build the prompt, consult the
// cache, pace and invoke the provider on a miss, normalize the reply.
type Analyzer struct {
	completer       Completer
	builder         *classify.Builder
	cache           *resultcache.Cache
	gate            Gate
	logger          *slog.Logger
	maxOutputTokens int
}

// Option adjusts Analyzer construction.
type Option func(*Analyzer)

// WithCache attaches a result cache. Without one every call reaches the
// provider.
func WithCache(cache *resultcache.Cache) Option {
	return func(a *Analyzer) { a.cache = cache }
}

// WithGate attaches a pacing gate applied to provider calls.
func WithGate(gate Gate) Option {
	return func(a *Analyzer) { a.gate = gate }
}

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithMaxOutputTokens overrides the completion token budget.
func WithMaxOutputTokens(tokens int) Option {
	return func(a *Analyzer) {
		if tokens > 0 {
			a.maxOutputTokens = tokens
		}
	}
}

// New builds an Analyzer around a completer and prompt builder.
func New(completer Completer, builder *classify.Builder, opts ...Option) *Analyzer {
	a := &Analyzer{
		completer:       completer,
		builder:         builder,
		maxOutputTokens: defaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithComponent(a.logger, "analyzer")
	return a
}

// Classify produces the canonical result for one review. Identical requests
// are served from the cache when one is attached; failures are never cached.
func (a *Analyzer) Classify(ctx context.Context, req classify.Request) (Classification, error) {
	validated, err := classify.NewRequest(req.ReviewText, req.Mode, req.Temperature)
	if err != nil {
		return Classification{}, err
	}

	var callLatency time.Duration
	compute := func(ctx context.Context) (classify.Result, string, error) {
		result, model, latency, err := a.compute(ctx, validated)
		if err != nil {
			return classify.Result{}, "", err
		}
		callLatency = latency
		return result, model, nil
	}

	if a.cache == nil {
		result, model, latency, err := a.compute(ctx, validated)
		if err != nil {
			return Classification{}, err
		}
		return Classification{
			Request: validated,
			Result:  result,
			Model:   model,
			Latency: latency,
		}, nil
	}

	entry, hit, err := a.cache.GetOrCompute(ctx, validated, compute)
	if err != nil {
		return Classification{}, err
	}
	if hit {
		a.logger.Debug("served classification from cache",
			logging.String(logging.FieldCacheKey, entry.Key),
			logging.String("label", entry.Result.Label))
	}
	return Classification{
		Request:   validated,
		Result:    entry.Result,
		Model:     entry.Model,
		FromCache: hit,
		Latency:   callLatency,
	}, nil
}

func (a *Analyzer) compute(ctx context.Context, req classify.Request) (classify.Result, string, time.Duration, error) {
	prompt, err := a.builder.Build(req.ReviewText, req.Mode)
	if err != nil {
		return classify.Result{}, "", 0, err
	}

	if a.gate != nil {
		if err := a.gate.Wait(ctx); err != nil {
			return classify.Result{}, "", 0, err
		}
	}

	start := time.Now()
	completion, err := a.completer.Complete(ctx, classify.CompletionRequest{
		Prompt:          prompt,
		Temperature:     req.Temperature,
		MaxOutputTokens: a.maxOutputTokens,
	})
	if a.gate != nil {
		a.gate.Mark()
	}
	if err != nil {
		if !errors.Is(err, services.ErrRemoteCall) && !errors.Is(err, services.ErrConfiguration) {
			err = services.Wrap(services.ErrRemoteCall, a.completer.Name(), "complete", "", err)
		}
		return classify.Result{}, "", 0, err
	}

	latency := completion.Latency
	if latency <= 0 {
		latency = time.Since(start)
	}

	result, err := classify.Normalize(completion.Text)
	if err != nil {
		return classify.Result{}, "", 0, err
	}

	a.logger.Info("classified review",
		logging.String(logging.FieldProvider, a.completer.Name()),
		logging.String("model", completion.Model),
		logging.String("label", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Duration("latency", latency))

	return result, completion.Model, latency, nil
}
