package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/expstats"
	"github.com/yumozi/llm-gm/internal/report"
	"github.com/yumozi/llm-gm/internal/retrieval"
)

func ablateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "ablate {threshold|top_k|temperature}",
		Short:     "Sweep one similarity-retrieval parameter over its grid",
		Long:      "Runs the similarity strategy runs_per_config times for each value in the configured grid of the chosen parameter and writes per-run results to CSV.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"threshold", "top_k", "temperature"},
		RunE:      runAblate,
	}
}

func runAblate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	param := args[0]

	// One condition per grid value; everything else stays at the defaults.
	type cell struct {
		name string
		req  func(experiment.Request) experiment.Request
	}
	var cells []cell
	var outFile string

	switch param {
	case "threshold":
		outFile = report.AblationThresholdFile
		for _, v := range cfg.Experiment.Ablation.Thresholds {
			v := v
			cells = append(cells, cell{
				name: fmt.Sprintf("threshold=%.2f", v),
				req: func(r experiment.Request) experiment.Request {
					r.SimilarityThreshold = v
					return r
				},
			})
		}
	case "top_k":
		outFile = report.AblationTopKFile
		for _, v := range cfg.Experiment.Ablation.TopK {
			v := v
			cells = append(cells, cell{
				name: fmt.Sprintf("top_k=%d", v),
				req: func(r experiment.Request) experiment.Request {
					r.TopK = v
					return r
				},
			})
		}
	case "temperature":
		outFile = report.AblationTemperatureFile
		for _, v := range cfg.Experiment.Ablation.Temperatures {
			v := v
			cells = append(cells, cell{
				name: fmt.Sprintf("temperature=%.2f", v),
				req: func(r experiment.Request) experiment.Request {
					r.Temperature = v
					return r
				},
			})
		}
	default:
		return fmt.Errorf("unknown ablation parameter %q (valid: threshold, top_k, temperature)", param)
	}

	e, err := newEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.close()

	runs := cfg.Experiment.RunsPerConfig
	base := e.request(cfg, retrieval.StrategySimilarity)

	conditions := make([]report.ConditionRuns, 0, len(cells))
	for _, c := range cells {
		fmt.Fprintf(os.Stdout, "Running %s (%d runs)...\n", c.name, runs)
		outcomes, err := repeatRun(ctx, e, c.req(base), runs)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		conditions = append(conditions, report.ConditionRuns{Name: c.name, Outcomes: outcomes})
	}

	w, err := report.NewWriter(cfg.Experiment.ResultsDir, cfg.Pricing)
	if err != nil {
		return err
	}
	if err := w.WriteCSV(outFile, conditions); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	for _, cond := range conditions {
		sample := expstats.NewSample(cond.Name, cond.Outcomes, cfg.Pricing)
		fmt.Fprintf(os.Stdout, "%s\n%s\n", cond.Name, expstats.FormatMetricsTable(sample))
	}
	fmt.Fprintf(os.Stdout, "Results written to %s\n", w.Path(outFile))
	return nil
}
