package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/expstats"
	"github.com/yumozi/llm-gm/internal/report"
	"github.com/yumozi/llm-gm/internal/retrieval"
)

// baselineStrategies is the fixed comparison order: both baselines first,
// then the RAG condition.
var baselineStrategies = []retrieval.Strategy{
	retrieval.StrategyFull,
	retrieval.StrategyRandom,
	retrieval.StrategySimilarity,
}

func baselineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Compare all three retrieval strategies",
		Long: "Runs every strategy (full, random, similarity) runs_per_config " +
			"times with the configured parameters, then writes per-run results " +
			"and the statistical comparison to the results directory.",
		RunE: runBaseline,
	}
}

func runBaseline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	runs := cfg.Experiment.RunsPerConfig
	conditions := make([]report.ConditionRuns, 0, len(baselineStrategies))
	for _, strategy := range baselineStrategies {
		fmt.Fprintf(os.Stdout, "Running %s (%d runs)...\n", strategy, runs)
		outcomes, err := repeatRun(ctx, e, e.request(cfg, strategy), runs)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", strategy, err)
		}
		conditions = append(conditions, report.ConditionRuns{Name: string(strategy), Outcomes: outcomes})
	}

	pricing := cfg.Pricing
	samples := make(map[retrieval.Strategy]expstats.Sample, len(conditions))
	for i, strategy := range baselineStrategies {
		samples[strategy] = expstats.NewSample(string(strategy), conditions[i].Outcomes, pricing)
	}

	cmp, err := expstats.CompareBaselines(
		samples[retrieval.StrategySimilarity],
		samples[retrieval.StrategyFull],
		samples[retrieval.StrategyRandom],
	)
	if err != nil {
		return fmt.Errorf("compare baselines: %w", err)
	}

	w, err := report.NewWriter(cfg.Experiment.ResultsDir, pricing)
	if err != nil {
		return err
	}
	if err := w.WriteCSV(report.BaselineFile, conditions); err != nil {
		return err
	}
	if err := w.WriteStatisticalAnalysis(report.StatisticalAnalysisFile, conditions, &cmp); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprint(os.Stdout, expstats.FormatComparison(cmp))
	fmt.Fprintf(os.Stdout, "\nResults written to %s and %s\n",
		w.Path(report.BaselineFile), w.Path(report.StatisticalAnalysisFile))
	return nil
}

// repeatRun executes the same request n times and collects the outcomes.
func repeatRun(ctx context.Context, e *env, req experiment.Request, n int) ([]*experiment.Outcome, error) {
	outcomes := make([]*experiment.Outcome, 0, n)
	for i := 0; i < n; i++ {
		o, err := e.runner.Run(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("run %d/%d: %w", i+1, n, err)
		}
		fmt.Fprintf(os.Stdout, "  [%d/%d] tokens=%d latency=%.2fs entities=%d\n",
			i+1, n, o.TotalTokens, o.Latency.Seconds(), o.TotalEntities)
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}
