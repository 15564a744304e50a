// ABOUTME: Converts raw interleaved chunks into playable graph buffers
// ABOUTME: Validates frame geometry, de-interleaves and schedules immediately
package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/graph"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
)

var (
	// ErrEmptyChunk is returned for a chunk with no samples
	ErrEmptyChunk = errors.New("empty chunk")
	// ErrFrameMismatch is returned when the sample count is not a whole number of frames
	ErrFrameMismatch = errors.New("chunk length is not a multiple of the channel count")
)

// Scheduler is the part of the audio graph a reconstructor borrows
type Scheduler interface {
	Ready() bool
	SampleRate() int
	Schedule(buf *graph.Buffer) error
}

// Config holds reconstructor configuration
type Config struct {
	Channels int
	Logger   *slog.Logger
	Metrics  *observe.Metrics
}

// Stats tracks reconstructor counters
type Stats struct {
	Received  int64
	Scheduled int64
	Dropped   int64
}

// Reconstructor turns chunks into scheduled buffers, one buffer per chunk
type Reconstructor struct {
	channels  int
	scheduler Scheduler
	log       *slog.Logger
	metrics   *observe.Metrics

	received  atomic.Int64
	scheduled atomic.Int64
	dropped   atomic.Int64
}

// New creates a reconstructor for a fixed channel count
func New(scheduler Scheduler, config Config) *Reconstructor {
	if config.Channels <= 0 {
		config.Channels = graph.DefaultChannels
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	return &Reconstructor{
		channels:  config.Channels,
		scheduler: scheduler,
		log:       config.Logger.With("component", "reconstruct"),
		metrics:   config.Metrics,
	}
}

// Handle reconstructs and schedules one chunk. A chunk that cannot be
// played is logged and dropped; Handle never panics.
func (r *Reconstructor) Handle(chunk []float32) {
	r.received.Add(1)

	defer func() {
		if rec := recover(); rec != nil {
			r.drop(fmt.Errorf("panic: %v", rec), len(chunk))
		}
	}()

	if err := r.handle(chunk); err != nil {
		r.drop(err, len(chunk))
		return
	}

	r.scheduled.Add(1)
	r.metrics.RecordChunk(context.Background(), "scheduled")
}

func (r *Reconstructor) handle(chunk []float32) error {
	if !r.scheduler.Ready() {
		return graph.ErrNotReady
	}

	planes, err := Deinterleave(chunk, r.channels)
	if err != nil {
		return err
	}

	buf := &graph.Buffer{
		SampleRate: r.scheduler.SampleRate(),
		Planes:     planes,
	}
	if err := r.scheduler.Schedule(buf); err != nil {
		return fmt.Errorf("schedule failed: %w", err)
	}
	return nil
}

func (r *Reconstructor) drop(err error, samples int) {
	dropped := r.dropped.Add(1)
	r.metrics.RecordChunk(context.Background(), "dropped")

	// Log the first few drops and then every hundredth
	if dropped <= 5 || dropped%100 == 0 {
		r.log.Warn("dropping chunk", "error", err, "samples", samples, "dropped", dropped)
	}
}

// Stats returns a snapshot of the counters
func (r *Reconstructor) Stats() Stats {
	return Stats{
		Received:  r.received.Load(),
		Scheduled: r.scheduled.Load(),
		Dropped:   r.dropped.Load(),
	}
}

// Deinterleave splits src into one plane per channel: plane c, frame i
// is src[i*channels+c]. Mono input is copied.
func Deinterleave(src []float32, channels int) ([][]float32, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if len(src) == 0 {
		return nil, ErrEmptyChunk
	}
	if len(src)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels", ErrFrameMismatch, len(src), channels)
	}

	frames := len(src) / channels
	if channels == 1 {
		plane := make([]float32, frames)
		copy(plane, src)
		return [][]float32{plane}, nil
	}

	planes := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * channels
		for c := 0; c < channels; c++ {
			planes[c][i] = src[base+c]
		}
	}
	return planes, nil
}
