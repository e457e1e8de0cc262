package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/yumozi/llm-gm/internal/config"
	"github.com/yumozi/llm-gm/pkg/provider/embeddings"
	embedmock "github.com/yumozi/llm-gm/pkg/provider/embeddings/mock"
	"github.com/yumozi/llm-gm/pkg/provider/llm"
	llmmock "github.com/yumozi/llm-gm/pkg/provider/llm/mock"
)

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Store.EmbeddingDimensions != 1536 {
		t.Errorf("EmbeddingDimensions = %d, want 1536", cfg.Store.EmbeddingDimensions)
	}
	if cfg.Providers.LLM.Model != "gpt-4.1" {
		t.Errorf("LLM model = %q, want gpt-4.1", cfg.Providers.LLM.Model)
	}
	if cfg.Providers.Embeddings.Model != "text-embedding-ada-002" {
		t.Errorf("embeddings model = %q", cfg.Providers.Embeddings.Model)
	}

	exp := cfg.Experiment
	if exp.WorldName != "RAG Test World" {
		t.Errorf("WorldName = %q", exp.WorldName)
	}
	if exp.RunsPerConfig != 3 || exp.TopK != 5 || exp.MaxTokens != 1000 {
		t.Errorf("runs/topk/max = %d/%d/%d, want 3/5/1000", exp.RunsPerConfig, exp.TopK, exp.MaxTokens)
	}
	if exp.SimilarityThreshold != 0.65 || exp.Temperature != 0.8 {
		t.Errorf("threshold/temperature = %v/%v, want 0.65/0.8", exp.SimilarityThreshold, exp.Temperature)
	}
	if len(exp.Ablation.Thresholds) != 3 || len(exp.Ablation.TopK) != 3 || len(exp.Ablation.Temperatures) != 3 {
		t.Errorf("ablation grids not defaulted: %+v", exp.Ablation)
	}
	if cfg.Pricing.InputPer1K != 0.002 || cfg.Pricing.OutputPer1K != 0.008 {
		t.Errorf("pricing = %+v", cfg.Pricing)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	yaml := `
log_level: debug
store:
  postgres_dsn: postgres://localhost/llmgm
  embedding_dimensions: 768
providers:
  llm:
    name: ollama
    model: llama3
  embeddings:
    name: openai
experiment:
  runs_per_config: 10
  top_k: 7
  similarity_threshold: 0.5
  results_dir: out
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Store.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions = %d", cfg.Store.EmbeddingDimensions)
	}
	if cfg.Providers.LLM.Model != "llama3" {
		t.Errorf("LLM model = %q", cfg.Providers.LLM.Model)
	}
	if cfg.Experiment.RunsPerConfig != 10 || cfg.Experiment.TopK != 7 {
		t.Errorf("runs/topk = %d/%d", cfg.Experiment.RunsPerConfig, cfg.Experiment.TopK)
	}
	if cfg.Experiment.SimilarityThreshold != 0.5 {
		t.Errorf("threshold = %v", cfg.Experiment.SimilarityThreshold)
	}
	if cfg.Experiment.ResultsDir != "out" {
		t.Errorf("ResultsDir = %q", cfg.Experiment.ResultsDir)
	}
	// Untouched fields still defaulted.
	if cfg.Experiment.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want default", cfg.Experiment.Temperature)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("bogus_field: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Experiment.SimilarityThreshold = 1.5
	cfg.Experiment.Temperature = 3
	cfg.Experiment.Ablation.TopK = []int{0}

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log_level", "similarity_threshold", "temperature", "ablation.top_k[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := config.NewRegistry()
	r.RegisterLLM("mock", func(e config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{Model: e.Model}, nil
	})
	r.RegisterEmbeddings("mock", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return &embedmock.Provider{Model: e.Model}, nil
	})

	p, err := r.CreateLLM(config.ProviderEntry{Name: "mock", Model: "m1"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p.ModelID() != "m1" {
		t.Errorf("ModelID = %q, want m1", p.ModelID())
	}

	e, err := r.CreateEmbeddings(config.ProviderEntry{Name: "mock", Model: "m2"})
	if err != nil {
		t.Fatalf("CreateEmbeddings: %v", err)
	}
	if e.ModelID() != "m2" {
		t.Errorf("ModelID = %q, want m2", e.ModelID())
	}

	if _, err := r.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}
