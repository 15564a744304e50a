// ABOUTME: Tests for metrics instruments and provider setup
// ABOUTME: Reads instruments back through a manual reader and a private registry
package observe

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

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

func TestRecordEvent(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEvent(ctx, "playing", "applied")
	m.RecordEvent(ctx, "playing", "applied")
	m.RecordEvent(ctx, "playing", "suppressed")

	met := findMetric(collect(t, reader), "visualizer.events")
	if met == nil {
		t.Fatal("visualizer.events not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", met.Data)
	}

	applied := attribute.NewSet(attribute.String("kind", "playing"), attribute.String("outcome", "applied"))
	var found bool
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&applied) {
			found = true
			if dp.Value != 2 {
				t.Errorf("expected 2 applied, got %d", dp.Value)
			}
		}
	}
	if !found {
		t.Error("applied data point not found")
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("expected 2 data points, got %d", len(sum.DataPoints))
	}
}

func TestActiveBuffers(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveBuffers.Add(ctx, 3)
	m.ActiveBuffers.Add(ctx, -1)

	met := findMetric(collect(t, reader), "visualizer.active_buffers")
	if met == nil {
		t.Fatal("visualizer.active_buffers not found")
	}
	sum := met.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("expected single data point of 2, got %+v", sum.DataPoints)
	}
}

func TestCountersByStatus(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordChunk(ctx, "scheduled")
	m.RecordChunk(ctx, "dropped")
	m.RecordLyricsLookup(ctx, "ok")
	m.RecordDecodeError(ctx, "text")
	m.InterpolatorTicks.Add(ctx, 1)

	rm := collect(t, reader)
	for _, name := range []string{
		"visualizer.chunks",
		"visualizer.lyrics.lookups",
		"visualizer.decode_errors",
		"visualizer.interpolator.ticks",
	} {
		if findMetric(rm, name) == nil {
			t.Errorf("%s not found", name)
		}
	}
}

func TestInitProvider(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	shutdown, err := InitProvider(ctx, ProviderConfig{ServiceVersion: "test", Registerer: reg})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordEvent(ctx, "playing", "applied")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	labels := map[string]string{}
	for _, mf := range families {
		if mf.GetName() != "target_info" || len(mf.GetMetric()) == 0 {
			continue
		}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
	}
	if labels["service_name"] != "resonate-visualizer" {
		t.Errorf("expected service_name resonate-visualizer, got %q", labels["service_name"])
	}
	if labels["service_version"] != "test" {
		t.Errorf("expected service_version test, got %q", labels["service_version"])
	}

	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
