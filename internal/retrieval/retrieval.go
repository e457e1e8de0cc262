// Package retrieval implements the three context-construction strategies
// compared by the experiment harness: full retrieval (dump every entity),
// uniform random sampling, and semantic similarity search.
//
// All three produce a [Result] keyed by entity category. Per-category
// failures during similarity search are recorded in the result rather than
// aborting the whole retrieval; the caller decides how loudly to complain.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/world"
)

// Strategy names a context-construction strategy.
type Strategy string

const (
	// StrategyFull returns every entity of the world (the "no RAG" baseline).
	StrategyFull Strategy = "full"

	// StrategyRandom returns a uniform per-category sample without
	// replacement (the "random sampling" baseline).
	StrategyRandom Strategy = "random"

	// StrategySimilarity returns nearest neighbours of the query embedding
	// above a similarity threshold (the RAG condition).
	StrategySimilarity Strategy = "similarity"
)

// ParseStrategy converts a strategy tag into a [Strategy]. Unknown tags are
// a fatal error for the caller; there is no default strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFull, StrategyRandom, StrategySimilarity:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("retrieval: unknown strategy %q (valid: full, random, similarity)", s)
}

// CategoryResult is the outcome of retrieving one category: either a list
// of entities (possibly empty) or a failure reason. A failed category
// contributes no entities but does not invalidate the rest of the result.
type CategoryResult struct {
	Entities []world.Entity
	Err      error
}

// Result maps every consulted category to its retrieval outcome. Categories
// are always present; an absent or failed category reads as empty.
type Result map[world.Category]CategoryResult

// Entities returns the entities of a category, or nil when the category is
// absent or failed.
func (r Result) Entities(c world.Category) []world.Entity {
	return r[c].Entities
}

// Counts returns the per-category entity counts.
func (r Result) Counts() map[world.Category]int {
	counts := make(map[world.Category]int, len(r))
	for c, cr := range r {
		counts[c] = len(cr.Entities)
	}
	return counts
}

// Total returns the total number of retrieved entities across categories.
func (r Result) Total() int {
	total := 0
	for _, cr := range r {
		total += len(cr.Entities)
	}
	return total
}

// Retriever executes retrieval strategies against an entity store.
type Retriever struct {
	entities store.EntityStore
	logger   *slog.Logger
	rng      *rand.Rand
}

// Option is a functional option for [NewRetriever].
type Option func(*Retriever)

// WithLogger sets the logger used for per-category retrieval warnings.
// Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithSeed makes random sampling reproducible. Without it each call draws
// from an auto-seeded source, so repeated runs yield different subsets.
func WithSeed(seed uint64) Option {
	return func(r *Retriever) { r.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// NewRetriever creates a [Retriever] reading from entities.
func NewRetriever(entities store.EntityStore, opts ...Option) *Retriever {
	r := &Retriever{
		entities: entities,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Full retrieves every entity of every category for worldID, in
// store-native order. A category read failure fails the whole retrieval:
// unlike similarity search there is no partial-context story for the
// full-dump baseline.
func (r *Retriever) Full(ctx context.Context, worldID string) (Result, error) {
	result := make(Result, len(world.Categories()))
	for _, c := range world.Categories() {
		entities, err := r.entities.AllEntities(ctx, worldID, c)
		if err != nil {
			return nil, fmt.Errorf("retrieval: full %s: %w", c, err)
		}
		result[c] = CategoryResult{Entities: entities}
	}
	return result, nil
}

// Random retrieves the full result and then draws a uniform sample without
// replacement per category: min(len, k) entities, except rules which draw
// min(len, max(k, 10)).
func (r *Retriever) Random(ctx context.Context, worldID string, topK int) (Result, error) {
	full, err := r.Full(ctx, worldID)
	if err != nil {
		return nil, err
	}

	result := make(Result, len(full))
	for c, cr := range full {
		size := min(len(cr.Entities), c.RandomSampleLimit(topK))
		result[c] = CategoryResult{Entities: r.sample(cr.Entities, size)}
	}
	return result, nil
}

// Similarity retrieves, per category, up to the category's limit of nearest
// neighbours whose cosine similarity to query meets or exceeds threshold.
// A failing category resolves to an empty [CategoryResult] carrying the
// error and a logged warning; other categories still resolve normally.
func (r *Retriever) Similarity(ctx context.Context, worldID string, query []float32, topK int, threshold float64) (Result, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("retrieval: similarity requires a query embedding")
	}

	result := make(Result, len(world.Categories()))
	for _, c := range world.Categories() {
		entities, err := r.entities.MatchEntities(ctx, worldID, c, query, c.SampleLimit(topK), threshold)
		if err != nil {
			r.logger.Warn("category retrieval failed, continuing with empty category",
				"category", c, "err", err)
			result[c] = CategoryResult{Err: err}
			continue
		}
		result[c] = CategoryResult{Entities: entities}
	}
	return result, nil
}

// sample draws size entities uniformly without replacement, preserving
// nothing of the input order.
func (r *Retriever) sample(entities []world.Entity, size int) []world.Entity {
	if size <= 0 {
		return []world.Entity{}
	}

	var perm []int
	if r.rng != nil {
		perm = r.rng.Perm(len(entities))
	} else {
		perm = rand.Perm(len(entities))
	}

	out := make([]world.Entity, size)
	for i := 0; i < size; i++ {
		out[i] = entities[perm[i]]
	}
	return out
}
