// ABOUTME: Locally advancing display position between authoritative updates
// ABOUTME: Rebases on every authoritative position and ticks while playing
package interp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/state"
)

// DefaultInterval is the tick quantum used when none is configured
const DefaultInterval = 500 * time.Millisecond

// Ticker delivers periodic ticks
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Position is the display position and the context it was computed in
type Position struct {
	TrackID    string
	DisplayMs  int64
	DurationMs int64
	State      state.PlaybackState
}

// Fraction returns DisplayMs / DurationMs clamped to [0, 1]
func (p Position) Fraction() float64 {
	if p.DurationMs <= 0 {
		return 0
	}
	f := float64(p.DisplayMs) / float64(p.DurationMs)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// Config holds interpolator configuration
type Config struct {
	Interval time.Duration

	// AdvanceWhileLoading treats loading and preloading as advancing states
	AdvanceWhileLoading bool

	// OnUpdate is called after every display position change. Calls are
	// serialized.
	OnUpdate func(Position)

	NewTicker func(time.Duration) Ticker
	Logger    *slog.Logger
	Metrics   *observe.Metrics
}

// Interpolator derives the display position from store changes
type Interpolator struct {
	config Config
	log    *slog.Logger

	mu      sync.Mutex
	pos     Position
	gen     uint64
	stop    chan struct{}
	running bool
	closed  bool

	// notifyMu orders OnUpdate calls
	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

// New creates an interpolator at position zero with no timer running
func New(config Config) *Interpolator {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.NewTicker == nil {
		config.NewTicker = NewTimeTicker
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	return &Interpolator{
		config: config,
		log:    config.Logger.With("component", "interp"),
		pos:    Position{State: state.Unavailable},
	}
}

// Observe feeds one store change into the interpolator. It has the shape
// of a state.Store subscriber.
func (i *Interpolator) Observe(c state.Change) {
	next := c.Next

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}

	rebase := c.TrackChanged() ||
		c.Prev.PositionMs != next.PositionMs ||
		next.CurrentTrackID != i.pos.TrackID ||
		state.PositionBearing(c.Event)

	i.pos.TrackID = next.CurrentTrackID
	i.pos.DurationMs = next.DurationMs()
	i.pos.State = next.PlaybackState
	if rebase {
		i.pos.DisplayMs = next.PositionMs
	}

	shouldRun := i.advancing(next.PlaybackState) && i.pos.DurationMs > 0 && i.pos.DisplayMs < i.pos.DurationMs
	if rebase || shouldRun != i.running {
		i.cancelLocked()
		if shouldRun {
			i.startLocked()
		}
	}

	gen := i.gen
	pos := i.pos
	i.mu.Unlock()

	if rebase {
		i.notify(gen, pos)
	}
}

// Position returns the current display position
func (i *Interpolator) Position() Position {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pos
}

// Running reports whether a tick timer is active
func (i *Interpolator) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Stop cancels the timer and waits for it to exit. Observe is a no-op
// afterwards.
func (i *Interpolator) Stop() {
	i.mu.Lock()
	i.closed = true
	i.cancelLocked()
	i.mu.Unlock()

	i.wg.Wait()
}

func (i *Interpolator) advancing(s state.PlaybackState) bool {
	switch s {
	case state.Playing:
		return true
	case state.Loading, state.Preloading:
		return i.config.AdvanceWhileLoading
	}
	return false
}

// cancelLocked stops the current timer. Its goroutine exits on its own.
func (i *Interpolator) cancelLocked() {
	i.gen++
	if i.stop != nil {
		close(i.stop)
		i.stop = nil
	}
	i.running = false
}

func (i *Interpolator) startLocked() {
	stop := make(chan struct{})
	i.stop = stop
	i.running = true

	ticker := i.config.NewTicker(i.config.Interval)
	gen := i.gen
	trackID := i.pos.TrackID

	i.wg.Add(1)
	go i.handleTicks(ticker, stop, gen, trackID)
}

func (i *Interpolator) handleTicks(ticker Ticker, stop chan struct{}, gen uint64, trackID string) {
	defer i.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if !i.tick(gen, trackID) {
				return
			}
		}
	}
}

// tick advances the display position by one interval. It returns false
// when the timer should exit.
func (i *Interpolator) tick(gen uint64, trackID string) bool {
	i.mu.Lock()
	if gen != i.gen || trackID != i.pos.TrackID {
		i.mu.Unlock()
		i.log.Debug("discarding stale tick", "track_id", trackID)
		return false
	}

	next := i.pos.DisplayMs + i.config.Interval.Milliseconds()
	if next >= i.pos.DurationMs {
		next = i.pos.DurationMs
	}
	i.pos.DisplayMs = next

	reachedEnd := next >= i.pos.DurationMs
	if reachedEnd {
		i.running = false
		i.stop = nil
	}
	pos := i.pos
	i.mu.Unlock()

	i.config.Metrics.InterpolatorTicks.Add(context.Background(), 1)
	i.notify(gen, pos)
	return !reachedEnd
}

func (i *Interpolator) notify(gen uint64, pos Position) {
	if i.config.OnUpdate == nil {
		return
	}

	i.notifyMu.Lock()
	defer i.notifyMu.Unlock()

	i.mu.Lock()
	current := gen == i.gen
	i.mu.Unlock()
	if !current {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			i.log.Error("position update handler panicked", "panic", r)
		}
	}()
	i.config.OnUpdate(pos)
}
