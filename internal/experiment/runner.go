// Package experiment orchestrates a single controlled comparison run:
// world lookup → retrieval strategy → context assembly → one generation
// call → metrics capture.
//
// All dependencies are injected at construction; the runner holds no global
// state and each run owns its data end to end. Execution is strictly
// sequential: at most one metadata read, one embedding request (similarity
// only), one entity read per category, and exactly one generation request.
package experiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yumozi/llm-gm/internal/dmctx"
	"github.com/yumozi/llm-gm/internal/observe"
	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/pkg/provider/embeddings"
	"github.com/yumozi/llm-gm/pkg/provider/llm"
)

// DefaultMaxTokens caps the generated response length when the request does
// not set one.
const DefaultMaxTokens = 1000

// Request carries the parameters of one experiment run.
type Request struct {
	// PlayerMessage is the player action to respond to.
	PlayerMessage string

	// Strategy is the retrieval strategy tag ("full", "random",
	// "similarity"). Unknown tags fail fast; there is no default.
	Strategy string

	// TopK is the base per-category entity limit. Ignored by the full
	// strategy.
	TopK int

	// SimilarityThreshold is the minimum cosine similarity for the
	// similarity strategy. Ignored by the others.
	SimilarityThreshold float64

	// Temperature is passed through to the generation call.
	Temperature float64

	// MaxTokens caps the generated response; zero means [DefaultMaxTokens].
	MaxTokens int
}

// Runner executes experiment runs against a fixed world.
type Runner struct {
	worlds    store.WorldStore
	retriever *retrieval.Retriever
	embedder  embeddings.Provider
	generator llm.Provider
	metrics   *observe.Metrics
	worldID   string
}

// NewRunner creates a [Runner] for worldID with explicit dependencies.
// metrics may be nil, in which case nothing is recorded.
func NewRunner(
	worlds store.WorldStore,
	retriever *retrieval.Retriever,
	embedder embeddings.Provider,
	generator llm.Provider,
	metrics *observe.Metrics,
	worldID string,
) *Runner {
	return &Runner{
		worlds:    worlds,
		retriever: retriever,
		embedder:  embedder,
		generator: generator,
		metrics:   metrics,
		worldID:   worldID,
	}
}

// Run executes one complete experiment and returns its [Outcome].
//
// A missing world and an unknown strategy tag are fatal: no partial Outcome
// is ever returned. Per-category similarity failures degrade to empty
// categories inside the retriever. Generation failures propagate as-is;
// retrying would distort the measured latency.
func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := observe.StartSpan(ctx, "experiment.run")
	defer span.End()

	strategy, err := retrieval.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}

	w, err := r.worlds.WorldByID(ctx, r.worldID)
	if err != nil {
		return nil, fmt.Errorf("experiment: lookup world: %w", err)
	}

	result, err := r.retrieve(ctx, strategy, req)
	if err != nil {
		return nil, err
	}

	contextStr := dmctx.Assemble(w, result)

	genStart := time.Now()
	resp, err := r.generator.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: dmctx.SystemPrompt,
		UserPrompt:   dmctx.UserPrompt(contextStr, req.PlayerMessage),
		Temperature:  req.Temperature,
		MaxTokens:    cmpOr(req.MaxTokens, DefaultMaxTokens),
	})
	latency := time.Since(genStart)
	r.recordGeneration(ctx, strategy, resp, latency, err)
	if err != nil {
		return nil, fmt.Errorf("experiment: generate response: %w", err)
	}

	counts := result.Counts()
	outcome := &Outcome{
		Strategy:            strategy,
		PlayerMessage:       req.PlayerMessage,
		Context:             contextStr,
		ContextSizeTokens:   len(strings.Fields(contextStr)),
		EntityCounts:        counts,
		TotalEntities:       result.Total(),
		ResponseText:        resp.Content,
		InputTokens:         resp.Usage.PromptTokens,
		OutputTokens:        resp.Usage.CompletionTokens,
		TotalTokens:         resp.Usage.TotalTokens,
		Latency:             latency,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
		Temperature:         req.Temperature,
		Model:               r.generator.ModelID(),
	}

	observe.Logger(ctx).Info("experiment run complete",
		"strategy", strategy,
		"entities", outcome.TotalEntities,
		"input_tokens", outcome.InputTokens,
		"output_tokens", outcome.OutputTokens,
		"latency", latency,
	)
	return outcome, nil
}

// retrieve dispatches to the strategy implementation, timing the retrieval
// (and, for similarity, the preceding embedding call).
func (r *Runner) retrieve(ctx context.Context, strategy retrieval.Strategy, req Request) (retrieval.Result, error) {
	start := time.Now()
	var (
		result retrieval.Result
		err    error
	)

	switch strategy {
	case retrieval.StrategyFull:
		result, err = r.retriever.Full(ctx, r.worldID)

	case retrieval.StrategyRandom:
		result, err = r.retriever.Random(ctx, r.worldID, req.TopK)

	case retrieval.StrategySimilarity:
		var query []float32
		query, err = r.embedQuery(ctx, req.PlayerMessage)
		if err != nil {
			return nil, err
		}
		result, err = r.retriever.Similarity(ctx, r.worldID, query, req.TopK, req.SimilarityThreshold)
	}
	if err != nil {
		return nil, err
	}

	if r.metrics != nil && r.metrics.RetrievalDuration != nil {
		r.metrics.RetrievalDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("strategy", string(strategy))))
	}
	return result, nil
}

// embedQuery generates the query embedding for the similarity strategy.
// Its latency is tracked separately and never counted into the reported
// generation latency.
func (r *Runner) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, span := observe.StartSpan(ctx, "experiment.embed_query")
	defer span.End()

	start := time.Now()
	query, err := r.embedder.Embed(ctx, text)
	r.metrics.RecordProviderCall(ctx, "embeddings", err)
	if r.metrics != nil && r.metrics.EmbeddingDuration != nil {
		r.metrics.EmbeddingDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("experiment: embed player message: %w", err)
	}
	return query, nil
}

// recordGeneration updates generation metrics for one completed (or failed)
// generation call.
func (r *Runner) recordGeneration(ctx context.Context, strategy retrieval.Strategy, resp *llm.CompletionResponse, latency time.Duration, err error) {
	r.metrics.RecordProviderCall(ctx, "llm", err)
	if r.metrics == nil {
		return
	}

	strategyAttr := attribute.String("strategy", string(strategy))
	status := "ok"
	if err != nil {
		status = "error"
	}
	if r.metrics.ExperimentRuns != nil {
		r.metrics.ExperimentRuns.Add(ctx, 1, metric.WithAttributes(
			strategyAttr, attribute.String("status", status)))
	}
	if err != nil {
		return
	}
	if r.metrics.GenerationDuration != nil {
		r.metrics.GenerationDuration.Record(ctx, latency.Seconds(), metric.WithAttributes(strategyAttr))
	}
	if r.metrics.TokensUsed != nil {
		r.metrics.TokensUsed.Add(ctx, int64(resp.Usage.PromptTokens), metric.WithAttributes(
			strategyAttr, attribute.String("kind", "input")))
		r.metrics.TokensUsed.Add(ctx, int64(resp.Usage.CompletionTokens), metric.WithAttributes(
			strategyAttr, attribute.String("kind", "output")))
	}
}

// cmpOr returns v when non-zero, otherwise fallback.
func cmpOr(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}
