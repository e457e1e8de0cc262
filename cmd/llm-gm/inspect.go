package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/dmctx"
	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/world"
)

const inspectHead = 500

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Assemble and print the context each strategy would produce",
		Long: "Builds the context for every strategy without calling the LLM, " +
			"then prints entity statistics, context heads and the exact prompts. " +
			"Only the similarity strategy costs an (embedding) API call.",
		RunE: runInspect,
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	exp := cfg.Experiment
	contexts := make(map[retrieval.Strategy]string, len(baselineStrategies))

	for i, strategy := range baselineStrategies {
		fmt.Fprintf(os.Stdout, "[%d/%d] %s\n", i+1, len(baselineStrategies), strategy)

		result, err := retrieve(ctx, e, strategy)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", strategy, err)
		}
		assembled := dmctx.Assemble(e.world, result)
		contexts[strategy] = assembled

		fmt.Fprintln(os.Stdout, "Entity statistics:")
		counts := result.Counts()
		for _, c := range world.Categories() {
			fmt.Fprintf(os.Stdout, "  %s: %d\n", c, counts[c])
		}
		fmt.Fprintf(os.Stdout, "Context length: %d characters\n", len(assembled))
		fmt.Fprintf(os.Stdout, "Context first %d characters:\n%s\n...\n\n", inspectHead, head(assembled, inspectHead))
	}

	full := contexts[retrieval.StrategyFull]
	sim := contexts[retrieval.StrategySimilarity]

	fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))
	fmt.Fprintln(os.Stdout, "Comparison:")
	for _, strategy := range baselineStrategies {
		fmt.Fprintf(os.Stdout, "  %-11s %d characters\n", string(strategy)+":", len(contexts[strategy]))
	}
	if len(full) > 0 {
		fmt.Fprintf(os.Stdout, "\nContext reduction (full -> similarity): %.1f%%\n",
			(1-float64(len(sim))/float64(len(full)))*100)
	}

	fmt.Fprintln(os.Stdout, "\nSystem prompt (same for all strategies):")
	fmt.Fprintln(os.Stdout, dmctx.SystemPrompt)
	fmt.Fprintln(os.Stdout, "\nUser prompt (similarity strategy):")
	fmt.Fprintln(os.Stdout, dmctx.UserPrompt(sim, exp.PlayerMessage))
	return nil
}

// retrieve runs one strategy directly, embedding the player message first
// when the strategy needs a query vector.
func retrieve(ctx context.Context, e *env, strategy retrieval.Strategy) (retrieval.Result, error) {
	exp := cfg.Experiment
	switch strategy {
	case retrieval.StrategyFull:
		return e.retriever.Full(ctx, e.world.ID)
	case retrieval.StrategyRandom:
		return e.retriever.Random(ctx, e.world.ID, exp.TopK)
	case retrieval.StrategySimilarity:
		query, err := e.embedder.Embed(ctx, exp.PlayerMessage)
		if err != nil {
			return nil, fmt.Errorf("embed player message: %w", err)
		}
		return e.retriever.Similarity(ctx, e.world.ID, query, exp.TopK, exp.SimilarityThreshold)
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
