package report_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yumozi/llm-gm/internal/experiment"
	"github.com/yumozi/llm-gm/internal/expstats"
	"github.com/yumozi/llm-gm/internal/report"
	"github.com/yumozi/llm-gm/internal/retrieval"
)

func testOutcome(strategy retrieval.Strategy, total int, latency time.Duration) *experiment.Outcome {
	input := total * 3 / 4
	return &experiment.Outcome{
		Strategy:          strategy,
		PlayerMessage:     "I search the ruins",
		Model:             "gpt-4.1",
		TopK:              5,
		Temperature:       0.8,
		TotalEntities:     12,
		ContextSizeTokens: input / 2,
		InputTokens:       input,
		OutputTokens:      total - input,
		TotalTokens:       total,
		Latency:           latency,
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := report.NewWriter(dir, expstats.DefaultPricing())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	conditions := []report.ConditionRuns{
		{Name: "full", Outcomes: []*experiment.Outcome{
			testOutcome(retrieval.StrategyFull, 4000, 3*time.Second),
			testOutcome(retrieval.StrategyFull, 4100, 3100*time.Millisecond),
		}},
		{Name: "similarity", Outcomes: []*experiment.Outcome{
			testOutcome(retrieval.StrategySimilarity, 400, time.Second),
		}},
	}
	if err := w.WriteCSV(report.BaselineFile, conditions); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, report.BaselineFile))
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[0][0] != "condition" || rows[0][len(rows[0])-1] != "cost_usd" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "full" || rows[1][1] != "1" {
		t.Errorf("first row = %v, want condition full run 1", rows[1][:2])
	}
	if rows[2][1] != "2" {
		t.Errorf("second full run index = %q, want 2", rows[2][1])
	}
	if rows[3][0] != "similarity" || rows[3][2] != "similarity" {
		t.Errorf("similarity row = %v", rows[3][:3])
	}
}

func TestWriteStatisticalAnalysis(t *testing.T) {
	dir := t.TempDir()
	w, err := report.NewWriter(dir, expstats.DefaultPricing())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	sim := []*experiment.Outcome{
		testOutcome(retrieval.StrategySimilarity, 400, time.Second),
		testOutcome(retrieval.StrategySimilarity, 420, 1100*time.Millisecond),
		testOutcome(retrieval.StrategySimilarity, 410, 1050*time.Millisecond),
	}
	full := []*experiment.Outcome{
		testOutcome(retrieval.StrategyFull, 4000, 3*time.Second),
		testOutcome(retrieval.StrategyFull, 4100, 3100*time.Millisecond),
		testOutcome(retrieval.StrategyFull, 4050, 2900*time.Millisecond),
	}
	random := []*experiment.Outcome{
		testOutcome(retrieval.StrategyRandom, 900, 1500*time.Millisecond),
		testOutcome(retrieval.StrategyRandom, 910, 1600*time.Millisecond),
		testOutcome(retrieval.StrategyRandom, 905, 1550*time.Millisecond),
	}

	pricing := expstats.DefaultPricing()
	cmp, err := expstats.CompareBaselines(
		expstats.NewSample("similarity", sim, pricing),
		expstats.NewSample("full", full, pricing),
		expstats.NewSample("random", random, pricing),
	)
	if err != nil {
		t.Fatalf("CompareBaselines: %v", err)
	}

	conditions := []report.ConditionRuns{
		{Name: "full", Outcomes: full},
		{Name: "random", Outcomes: random},
		{Name: "similarity", Outcomes: sim},
	}
	if err := w.WriteStatisticalAnalysis(report.StatisticalAnalysisFile, conditions, &cmp); err != nil {
		t.Fatalf("WriteStatisticalAnalysis: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, report.StatisticalAnalysisFile))
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"## Condition: full (3 runs)",
		"## Condition: similarity (3 runs)",
		"| Metric | Mean | Std | Min | Max |",
		"95% CI total_tokens:",
		"similarity vs full:",
		"similarity vs random:",
		"context efficiency vs full:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("analysis missing %q:\n%s", want, text)
		}
	}
}

func TestNewWriterCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")
	if _, err := report.NewWriter(dir, expstats.DefaultPricing()); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("results dir not created: %v", err)
	}
}
