// Package observe provides observability primitives for the experiment
// harness: OpenTelemetry metrics, tracing helpers, and a Prometheus
// exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API; [InitProvider]
// wires a Prometheus exporter so long ablation runs can be watched on the
// standard /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all harness metrics.
const meterName = "github.com/yumozi/llm-gm"

// Metrics holds all OpenTelemetry metric instruments for the harness.
// All fields are safe for concurrent use.
type Metrics struct {
	// GenerationDuration tracks chat-completion latency, the latency the
	// experiments report on.
	GenerationDuration metric.Float64Histogram

	// EmbeddingDuration tracks query-embedding latency (similarity strategy
	// only; excluded from reported experiment latency).
	EmbeddingDuration metric.Float64Histogram

	// RetrievalDuration tracks entity-store retrieval latency. Use with:
	//   attribute.String("strategy", ...)
	RetrievalDuration metric.Float64Histogram

	// ExperimentRuns counts completed experiment runs. Use with:
	//   attribute.String("strategy", ...), attribute.String("status", ...)
	ExperimentRuns metric.Int64Counter

	// TokensUsed counts generation tokens. Use with:
	//   attribute.String("strategy", ...), attribute.String("kind", "input"|"output")
	TokensUsed metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with:
	//   attribute.String("kind", "llm"|"embeddings"), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with:
	//   attribute.String("kind", "llm"|"embeddings")
	ProviderErrors metric.Int64Counter

	// EntitiesRetrieved records retrieved entity counts per run. Use with:
	//   attribute.String("strategy", ...)
	EntitiesRetrieved metric.Int64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// remote LLM and database calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// entityCountBuckets sizes the retrieved-entity histogram for corpora of a
// few hundred entities.
var entityCountBuckets = []float64{
	0, 5, 10, 25, 50, 100, 200, 400,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("llmgm.generation.duration",
		metric.WithDescription("Latency of the chat-completion call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbeddingDuration, err = m.Float64Histogram("llmgm.embedding.duration",
		metric.WithDescription("Latency of query embedding generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("llmgm.retrieval.duration",
		metric.WithDescription("Latency of entity retrieval by strategy."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExperimentRuns, err = m.Int64Counter("llmgm.experiment.runs",
		metric.WithDescription("Completed experiment runs by strategy and status."),
	); err != nil {
		return nil, err
	}
	if met.TokensUsed, err = m.Int64Counter("llmgm.tokens.used",
		metric.WithDescription("Generation tokens consumed by strategy and kind."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("llmgm.provider.requests",
		metric.WithDescription("Provider API requests by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("llmgm.provider.errors",
		metric.WithDescription("Provider errors by kind."),
	); err != nil {
		return nil, err
	}
	if met.EntitiesRetrieved, err = m.Int64Histogram("llmgm.entities.retrieved",
		metric.WithDescription("Entities retrieved per run by strategy."),
		metric.WithExplicitBucketBoundaries(entityCountBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the lazily initialised package-level [Metrics]
// instance backed by the global meter provider. It never fails; if
// instrument creation errors, the returned instance records nothing.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordProviderCall records one provider request plus an error increment
// when err is non-nil. A nil receiver or uninitialised instrument is a
// no-op, so callers never need nil checks.
func (m *Metrics) RecordProviderCall(ctx context.Context, kind string, err error) {
	if m == nil || m.ProviderRequests == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if m.ProviderErrors != nil {
			m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
		}
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
