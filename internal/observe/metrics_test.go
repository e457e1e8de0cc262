package observe

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m.GenerationDuration == nil || m.EmbeddingDuration == nil ||
		m.RetrievalDuration == nil || m.ExperimentRuns == nil ||
		m.TokensUsed == nil || m.ProviderRequests == nil ||
		m.ProviderErrors == nil || m.EntitiesRetrieved == nil {
		t.Fatal("NewMetrics left an instrument nil")
	}
}

func TestRecordProviderCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderCall(ctx, "llm", nil)
	m.RecordProviderCall(ctx, "llm", errors.New("boom"))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	requests := findMetric(rm, "llmgm.provider.requests")
	if requests == nil {
		t.Fatal("llmgm.provider.requests not recorded")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("requests data is %T, want Sum[int64]", requests.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("provider requests total = %d, want 2", total)
	}

	errCount := findMetric(rm, "llmgm.provider.errors")
	if errCount == nil {
		t.Fatal("llmgm.provider.errors not recorded")
	}
}

func TestRecordProviderCallOnNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	// Must not panic.
	m.RecordProviderCall(context.Background(), "llm", errors.New("boom"))
	(&Metrics{}).RecordProviderCall(context.Background(), "llm", nil)
}
