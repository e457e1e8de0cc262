// Package report persists experiment results: per-run CSV files and a
// plain-text statistical analysis. CSV is the interchange format; plotting
// and further analysis happen outside this tool.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/expstats"
)

// Default result file names inside the results directory.
const (
	BaselineFile            = "baseline_comparison.csv"
	AblationThresholdFile   = "ablation_rag_threshold.csv"
	AblationTopKFile        = "ablation_top_k.csv"
	AblationTemperatureFile = "ablation_temperature.csv"
	StatisticalAnalysisFile = "statistical_analysis.txt"
)

// csvHeader is the column layout of every results CSV.
var csvHeader = []string{
	"condition",
	"run",
	"strategy",
	"player_message",
	"model",
	"top_k",
	"similarity_threshold",
	"temperature",
	"entities",
	"context_size_tokens",
	"input_tokens",
	"output_tokens",
	"total_tokens",
	"latency_seconds",
	"cost_usd",
}

// ConditionRuns groups the outcomes of one experimental condition under a
// label ("full", "threshold=0.8", ...). Conditions keep their slice order
// in the written files.
type ConditionRuns struct {
	Name     string
	Outcomes []*experiment.Outcome
}

// Writer writes result files into a directory.
type Writer struct {
	dir     string
	pricing expstats.Pricing
}

// NewWriter creates a [Writer] rooted at dir, creating it if needed.
func NewWriter(dir string, pricing expstats.Pricing) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create results dir: %w", err)
	}
	return &Writer{dir: dir, pricing: pricing}, nil
}

// Path returns the absolute path of a result file name inside the results
// directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteCSV writes one row per run of every condition to name.
func (w *Writer) WriteCSV(name string, conditions []ConditionRuns) error {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return fmt.Errorf("report: create %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write %s header: %w", name, err)
	}
	for _, cond := range conditions {
		for i, o := range cond.Outcomes {
			row := []string{
				cond.Name,
				strconv.Itoa(i + 1),
				string(o.Strategy),
				o.PlayerMessage,
				o.Model,
				strconv.Itoa(o.TopK),
				formatFloat(o.SimilarityThreshold),
				formatFloat(o.Temperature),
				strconv.Itoa(o.TotalEntities),
				strconv.Itoa(o.ContextSizeTokens),
				strconv.Itoa(o.InputTokens),
				strconv.Itoa(o.OutputTokens),
				strconv.Itoa(o.TotalTokens),
				formatFloat(o.Latency.Seconds()),
				formatFloat(w.pricing.Cost(o.InputTokens, o.OutputTokens)),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("report: write %s row: %w", name, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush %s: %w", name, err)
	}
	return nil
}

// WriteStatisticalAnalysis writes a readable analysis text file: one
// summary table per condition, 95% confidence intervals on total tokens
// and latency, and the baseline comparison.
func (w *Writer) WriteStatisticalAnalysis(name string, conditions []ConditionRuns, cmp *expstats.BaselineComparison) error {
	var b strings.Builder
	b.WriteString("STATISTICAL ANALYSIS\n")
	b.WriteString("====================\n\n")

	for _, cond := range conditions {
		sample := expstats.NewSample(cond.Name, cond.Outcomes, w.pricing)
		fmt.Fprintf(&b, "## Condition: %s (%d runs)\n\n", cond.Name, len(cond.Outcomes))
		b.WriteString(expstats.FormatMetricsTable(sample))
		b.WriteString("\n")

		if lo, hi, err := expstats.ConfidenceInterval(sample.TotalTokens, 0.95); err == nil {
			fmt.Fprintf(&b, "95%% CI total_tokens: [%.2f, %.2f]\n", lo, hi)
		}
		if lo, hi, err := expstats.ConfidenceInterval(sample.LatencySec, 0.95); err == nil {
			fmt.Fprintf(&b, "95%% CI latency_seconds: [%.4f, %.4f]\n", lo, hi)
		}
		b.WriteString("\n")
	}

	if cmp != nil {
		b.WriteString("## Baseline comparison\n\n")
		b.WriteString(expstats.FormatComparison(*cmp))
	}

	if err := os.WriteFile(w.Path(name), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
