package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/retrieval"
	"github.com/yumozi/llm-gm/internal/world"
)

func latencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latency",
		Short: "Quick latency check: one run per strategy with a verdict",
		RunE:  runLatency,
	}
}

func runLatency(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	counts, err := e.store.CountEntities(ctx, e.world.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Current entity counts:")
	total := 0
	for _, c := range world.Categories() {
		if counts[c] == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s: %d\n", c, counts[c])
		total += counts[c]
	}
	fmt.Fprintf(os.Stdout, "  Total: %d\n\n", total)

	outcomes := make(map[retrieval.Strategy]*experiment.Outcome, len(baselineStrategies))
	for i, strategy := range baselineStrategies {
		fmt.Fprintf(os.Stdout, "[%d/%d] Testing %s...\n", i+1, len(baselineStrategies), strategy)
		o, err := e.runner.Run(ctx, e.request(cfg, strategy))
		if err != nil {
			return fmt.Errorf("strategy %s: %w", strategy, err)
		}
		fmt.Fprintf(os.Stdout, "  Input tokens: %d\n", o.InputTokens)
		fmt.Fprintf(os.Stdout, "  Output tokens: %d\n", o.OutputTokens)
		fmt.Fprintf(os.Stdout, "  Total tokens: %d\n", o.TotalTokens)
		fmt.Fprintf(os.Stdout, "  Latency: %.2fs\n", o.Latency.Seconds())
		if strategy == retrieval.StrategySimilarity {
			fmt.Fprintf(os.Stdout, "  Entities retrieved: %d\n", o.TotalEntities)
		}
		fmt.Fprintln(os.Stdout)
		outcomes[strategy] = o
	}

	full := outcomes[retrieval.StrategyFull]
	sim := outcomes[retrieval.StrategySimilarity]

	fmt.Fprintln(os.Stdout, "Comparison:")
	if full.InputTokens > 0 {
		reduction := float64(full.InputTokens-sim.InputTokens) / float64(full.InputTokens) * 100
		fmt.Fprintf(os.Stdout, "  Input token reduction (similarity vs full): %.1f%%\n", reduction)
	}
	if full.TotalTokens > 0 {
		reduction := float64(full.TotalTokens-sim.TotalTokens) / float64(full.TotalTokens) * 100
		fmt.Fprintf(os.Stdout, "  Total token reduction: %.1f%%\n", reduction)
	}
	diff := full.Latency.Seconds() - sim.Latency.Seconds()
	fmt.Fprintf(os.Stdout, "  Latency difference (full - similarity): %+.2fs\n\n", diff)

	switch {
	case diff > 0:
		fmt.Fprintln(os.Stdout, "[OK] full retrieval is slower than similarity retrieval")
		fmt.Fprintf(os.Stdout, "     Improvement: full is %.2fs slower\n", diff)
	case diff < -1:
		fmt.Fprintln(os.Stdout, "[WARNING] similarity latency is significantly higher than full retrieval")
		fmt.Fprintln(os.Stdout, "This may indicate issues with the retrieval process")
	default:
		fmt.Fprintln(os.Stdout, "[OK] latency is similar (within 1s)")
		fmt.Fprintln(os.Stdout, "This is acceptable - the main benefit is token reduction")
	}
	return nil
}
