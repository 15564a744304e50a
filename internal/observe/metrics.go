// ABOUTME: OpenTelemetry instruments for the visualizer
// ABOUTME: Counts events, chunks, lyric lookups and active buffers
// Package observe provides OpenTelemetry metrics for the visualizer.
//
// Instruments are created from an explicit [metric.MeterProvider] through
// [NewMetrics] so tests can inspect them with a manual reader. Production
// code uses [DefaultMetrics], bound to the global provider that
// [InitProvider] installs.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Resonate-Protocol/resonate-visualizer"

// Metrics holds all metric instruments. Safe for concurrent use.
type Metrics struct {
	// Events counts reduced events. Attributes: kind, outcome.
	Events metric.Int64Counter

	// DecodeErrors counts frames the transport could not decode. Attributes: frame.
	DecodeErrors metric.Int64Counter

	// Chunks counts inbound audio chunks. Attributes: status (scheduled, dropped).
	Chunks metric.Int64Counter

	// ActiveBuffers tracks scheduled audio buffers that are still playing.
	ActiveBuffers metric.Int64UpDownCounter

	// LyricsLookups counts lyric provider lookups. Attributes: status.
	LyricsLookups metric.Int64Counter

	// InterpolatorTicks counts position ticks applied by the interpolator.
	InterpolatorTicks metric.Int64Counter
}

// NewMetrics creates all instruments from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Events, err = m.Int64Counter("visualizer.events",
		metric.WithDescription("Playback events reduced by kind and outcome."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("visualizer.decode_errors",
		metric.WithDescription("Inbound frames rejected by the decoder."),
	); err != nil {
		return nil, err
	}
	if met.Chunks, err = m.Int64Counter("visualizer.chunks",
		metric.WithDescription("Audio chunks by reconstruction status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveBuffers, err = m.Int64UpDownCounter("visualizer.active_buffers",
		metric.WithDescription("Scheduled audio buffers still playing."),
	); err != nil {
		return nil, err
	}
	if met.LyricsLookups, err = m.Int64Counter("visualizer.lyrics.lookups",
		metric.WithDescription("Lyric provider lookups by status."),
	); err != nil {
		return nil, err
	}
	if met.InterpolatorTicks, err = m.Int64Counter("visualizer.interpolator.ticks",
		metric.WithDescription("Display position ticks applied."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance bound to the global
// meter provider. Panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEvent counts one reduced event
func (m *Metrics) RecordEvent(ctx context.Context, kind, outcome string) {
	m.Events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// RecordDecodeError counts one rejected frame
func (m *Metrics) RecordDecodeError(ctx context.Context, frame string) {
	m.DecodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("frame", frame)))
}

// RecordChunk counts one chunk with its status
func (m *Metrics) RecordChunk(ctx context.Context, status string) {
	m.Chunks.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordLyricsLookup counts one lyric lookup with its status
func (m *Metrics) RecordLyricsLookup(ctx context.Context, status string) {
	m.LyricsLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
