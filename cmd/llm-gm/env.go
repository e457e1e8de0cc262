package main

import (
	"context"
	"fmt"

	"github.com/yumozi/llm-gm/internal/config"
	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/observe"
	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/store"
	"github.com/yumozi/llm-gm/internal/store/postgres"
	"github.com/yumozi/llm-gm/internal/world"
	"github.com/yumozi/llm-gm/pkg/provider/embeddings"
	"github.com/yumozi/llm-gm/pkg/provider/llm"
)

// env bundles everything a command needs: the store, providers, the world
// under test and a ready runner. Built once per command invocation.
type env struct {
	store     store.Store
	close     func()
	llm       llm.Provider
	embedder  embeddings.Provider
	metrics   *observe.Metrics
	world     world.World
	retriever *retrieval.Retriever
	runner    *experiment.Runner
}

// openStore connects to PostgreSQL when a DSN is configured, otherwise
// falls back to the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.PostgresDSN == "" {
		return store.NewMemStore(), func() {}, nil
	}
	pg, err := postgres.NewStore(ctx, cfg.Store.PostgresDSN, cfg.Store.EmbeddingDimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return pg, pg.Close, nil
}

// newEnv builds the full experiment environment. The configured world must
// already exist (run seed first).
func newEnv(ctx context.Context, cfg *config.Config) (*env, error) {
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	generator, err := buildLLM(cfg, reg)
	if err != nil {
		closeStore()
		return nil, err
	}
	embedder, err := buildEmbeddings(cfg, reg)
	if err != nil {
		closeStore()
		return nil, err
	}

	w, err := st.WorldByName(ctx, cfg.Experiment.WorldName)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("world %q: %w (run `llm-gm seed` first)", cfg.Experiment.WorldName, err)
	}

	var retrOpts []retrieval.Option
	if cfg.Experiment.Seed != 0 {
		retrOpts = append(retrOpts, retrieval.WithSeed(cfg.Experiment.Seed))
	}
	retriever := retrieval.NewRetriever(st, retrOpts...)

	metrics := observe.DefaultMetrics()

	return &env{
		store:     st,
		close:     closeStore,
		llm:       generator,
		embedder:  embedder,
		metrics:   metrics,
		world:     w,
		retriever: retriever,
		runner:    experiment.NewRunner(st, retriever, embedder, generator, metrics, w.ID),
	}, nil
}

// request builds an experiment request with the config's defaults for the
// given strategy.
func (e *env) request(cfg *config.Config, strategy retrieval.Strategy) experiment.Request {
	exp := cfg.Experiment
	return experiment.Request{
		PlayerMessage:       exp.PlayerMessage,
		Strategy:            string(strategy),
		TopK:                exp.TopK,
		SimilarityThreshold: exp.SimilarityThreshold,
		Temperature:         exp.Temperature,
		MaxTokens:           exp.MaxTokens,
	}
}
