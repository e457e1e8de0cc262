package expstats

import (
	"fmt"
	"strings"
)

// FormatMetricsTable renders the summaries of one sample as a markdown
// table.
func FormatMetricsTable(s Sample) string {
	var b strings.Builder
	b.WriteString("| Metric | Mean | Std | Min | Max |\n")
	b.WriteString("|--------|------|-----|-----|-----|\n")
	for _, m := range s.Metrics() {
		fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4f | %.4f |\n",
			m.Name, m.Summary.Mean, m.Summary.Std, m.Summary.Min, m.Summary.Max)
	}
	return b.String()
}

// FormatComparison renders a baseline comparison as readable text lines.
func FormatComparison(c BaselineComparison) string {
	var b strings.Builder
	writeOne := func(sc StrategyComparison) {
		fmt.Fprintf(&b, "similarity vs %s:\n", sc.Baseline)
		fmt.Fprintf(&b, "  total_tokens: t=%.4f p=%.4f significant=%v\n",
			sc.TotalTokens.T, sc.TotalTokens.P, sc.TotalTokens.Significant)
		fmt.Fprintf(&b, "  latency:      t=%.4f p=%.4f significant=%v\n",
			sc.Latency.T, sc.Latency.P, sc.Latency.Significant)
	}
	writeOne(c.VsFull)
	writeOne(c.VsRandom)
	fmt.Fprintf(&b, "context efficiency vs full: %.1f%%\n", c.ContextEfficiencyPct)
	fmt.Fprintf(&b, "cost savings vs full:       %.1f%%\n", c.CostSavingsPct)
	return b.String()
}
