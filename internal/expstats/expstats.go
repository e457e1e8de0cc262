// Package expstats aggregates experiment outcomes and runs the statistical
// comparisons between retrieval strategies: per-metric summaries, per-run
// cost, two-sample t-tests, confidence intervals, and the three-way
// baseline comparison.
package expstats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yumozi/llm-gm/internal/experiment"
)

// SignificanceLevel is the alpha used for significance flags.
const SignificanceLevel = 0.05

// Pricing holds per-1K-token prices in USD.
type Pricing struct {
	InputPer1K     float64 `yaml:"input_per_1k"`
	OutputPer1K    float64 `yaml:"output_per_1k"`
	EmbeddingPer1K float64 `yaml:"embedding_per_1k"`
}

// DefaultPricing is the gpt-4.1 / text-embedding-ada-002 price sheet.
func DefaultPricing() Pricing {
	return Pricing{
		InputPer1K:     0.002,
		OutputPer1K:    0.008,
		EmbeddingPer1K: 0.0001,
	}
}

// Cost returns the USD cost of one generation call.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.InputPer1K +
		float64(outputTokens)/1000*p.OutputPer1K
}

// Summary describes one metric across the runs of a condition. Std is the
// population standard deviation: the runs are treated as the complete set
// of observations for the condition, not a sample of a larger one.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Aggregate computes a [Summary] over xs. Empty input yields a zero Summary.
func Aggregate(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	return Summary{
		Mean: stat.Mean(xs, nil),
		Std:  math.Sqrt(stat.PopVariance(xs, nil)),
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}
}

// Sample is the per-metric series extracted from the outcomes of one
// experimental condition (one strategy, or one ablation cell).
type Sample struct {
	Name string

	InputTokens   []float64
	OutputTokens  []float64
	TotalTokens   []float64
	ContextTokens []float64
	Entities      []float64
	LatencySec    []float64
	CostUSD       []float64
}

// NewSample extracts the metric series from outcomes, pricing each run.
func NewSample(name string, outcomes []*experiment.Outcome, pricing Pricing) Sample {
	s := Sample{
		Name:          name,
		InputTokens:   make([]float64, 0, len(outcomes)),
		OutputTokens:  make([]float64, 0, len(outcomes)),
		TotalTokens:   make([]float64, 0, len(outcomes)),
		ContextTokens: make([]float64, 0, len(outcomes)),
		Entities:      make([]float64, 0, len(outcomes)),
		LatencySec:    make([]float64, 0, len(outcomes)),
		CostUSD:       make([]float64, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		s.InputTokens = append(s.InputTokens, float64(o.InputTokens))
		s.OutputTokens = append(s.OutputTokens, float64(o.OutputTokens))
		s.TotalTokens = append(s.TotalTokens, float64(o.TotalTokens))
		s.ContextTokens = append(s.ContextTokens, float64(o.ContextSizeTokens))
		s.Entities = append(s.Entities, float64(o.TotalEntities))
		s.LatencySec = append(s.LatencySec, o.Latency.Seconds())
		s.CostUSD = append(s.CostUSD, pricing.Cost(o.InputTokens, o.OutputTokens))
	}
	return s
}

// Metrics returns name/summary pairs for every series in display order.
func (s Sample) Metrics() []struct {
	Name    string
	Summary Summary
} {
	return []struct {
		Name    string
		Summary Summary
	}{
		{"input_tokens", Aggregate(s.InputTokens)},
		{"output_tokens", Aggregate(s.OutputTokens)},
		{"total_tokens", Aggregate(s.TotalTokens)},
		{"context_size_tokens", Aggregate(s.ContextTokens)},
		{"entities", Aggregate(s.Entities)},
		{"latency_seconds", Aggregate(s.LatencySec)},
		{"cost_usd", Aggregate(s.CostUSD)},
	}
}

// TTestResult is the outcome of a two-sample t-test.
type TTestResult struct {
	T           float64
	P           float64
	Significant bool
}

// TTest runs a two-sided two-sample t-test with pooled variance (equal
// variances assumed). Both samples need at least two observations and the
// pooled variance must be non-zero.
func TTest(a, b []float64) (TTestResult, error) {
	na, nb := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return TTestResult{}, fmt.Errorf("expstats: t-test needs >= 2 observations per sample, got %d and %d", len(a), len(b))
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)

	df := na + nb - 2
	pooledVar := ((na-1)*varA + (nb-1)*varB) / df
	if pooledVar == 0 {
		return TTestResult{}, fmt.Errorf("expstats: t-test undefined for zero pooled variance")
	}

	t := (meanA - meanB) / math.Sqrt(pooledVar*(1/na+1/nb))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))

	return TTestResult{T: t, P: p, Significant: p < SignificanceLevel}, nil
}

// ConfidenceInterval returns the Student-t confidence interval for the mean
// of xs at the given confidence level (e.g. 0.95). The standard error uses
// the sample standard deviation.
func ConfidenceInterval(xs []float64, confidence float64) (lo, hi float64, err error) {
	if len(xs) < 2 {
		return 0, 0, fmt.Errorf("expstats: confidence interval needs >= 2 observations, got %d", len(xs))
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, fmt.Errorf("expstats: confidence must be in (0, 1), got %v", confidence)
	}

	n := float64(len(xs))
	mean := stat.Mean(xs, nil)
	sem := stat.StdDev(xs, nil) / math.Sqrt(n)

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	tCrit := dist.Quantile(1 - (1-confidence)/2)

	return mean - tCrit*sem, mean + tCrit*sem, nil
}

// StrategyComparison holds the significance tests of the similarity
// condition against one baseline.
type StrategyComparison struct {
	Baseline    string
	TotalTokens TTestResult
	Latency     TTestResult
}

// BaselineComparison is the three-way comparison of the similarity strategy
// against the full-dump and random baselines.
type BaselineComparison struct {
	VsFull   StrategyComparison
	VsRandom StrategyComparison

	// ContextEfficiencyPct is the mean input-token reduction of similarity
	// retrieval relative to the full dump, in percent.
	ContextEfficiencyPct float64

	// CostSavingsPct is the mean per-run cost reduction of similarity
	// retrieval relative to the full dump, in percent.
	CostSavingsPct float64
}

// CompareBaselines tests the similarity condition against both baselines on
// total tokens and latency, and computes efficiency and cost savings
// against the full dump.
func CompareBaselines(similarity, full, random Sample) (BaselineComparison, error) {
	vsFull, err := compareOne(similarity, full)
	if err != nil {
		return BaselineComparison{}, err
	}
	vsRandom, err := compareOne(similarity, random)
	if err != nil {
		return BaselineComparison{}, err
	}

	return BaselineComparison{
		VsFull:               vsFull,
		VsRandom:             vsRandom,
		ContextEfficiencyPct: reductionPct(stat.Mean(full.InputTokens, nil), stat.Mean(similarity.InputTokens, nil)),
		CostSavingsPct:       reductionPct(stat.Mean(full.CostUSD, nil), stat.Mean(similarity.CostUSD, nil)),
	}, nil
}

func compareOne(similarity, baseline Sample) (StrategyComparison, error) {
	tokens, err := TTest(similarity.TotalTokens, baseline.TotalTokens)
	if err != nil {
		return StrategyComparison{}, fmt.Errorf("total tokens vs %s: %w", baseline.Name, err)
	}
	latency, err := TTest(similarity.LatencySec, baseline.LatencySec)
	if err != nil {
		return StrategyComparison{}, fmt.Errorf("latency vs %s: %w", baseline.Name, err)
	}
	return StrategyComparison{Baseline: baseline.Name, TotalTokens: tokens, Latency: latency}, nil
}

// reductionPct returns how much smaller got is than base, in percent of
// base. Zero base yields zero.
func reductionPct(base, got float64) float64 {
	if base == 0 {
		return 0
	}
	return (base - got) / base * 100
}
