// ABOUTME: Single-writer store holding the authoritative PlayerState
// ABOUTME: Serializes event application and notifies subscribers of changes
package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// Change describes one applied event
type Change struct {
	Prev   PlayerState
	Next   PlayerState
	Event  protocol.Event
	Result Result
}

// Changed reports whether the state value differs
func (c Change) Changed() bool {
	return c.Prev != c.Next
}

// TrackChanged reports whether the current item was replaced
func (c Change) TrackChanged() bool {
	return c.Prev.CurrentItem != c.Next.CurrentItem
}

// Config holds store configuration
type Config struct {
	Logger  *slog.Logger
	Metrics *observe.Metrics
}

type subscription struct {
	id int
	fn func(Change)
}

// Store owns the PlayerState
type Store struct {
	log     *slog.Logger
	metrics *observe.Metrics

	// applyMu serializes writers
	applyMu sync.Mutex

	mu    sync.RWMutex
	state PlayerState

	subsMu sync.Mutex
	subs   []subscription
	nextID int
}

// NewStore creates a store holding the initial state
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	return &Store{
		log:     config.Logger.With("component", "state"),
		metrics: config.Metrics,
		state:   Initial(),
	}
}

// Apply reduces ev into the current state and returns the new state.
// Subscribers run synchronously, in subscription order, when the event's
// rule was applied.
func (s *Store) Apply(ev protocol.Event) PlayerState {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.RLock()
	prev := s.state
	s.mu.RUnlock()

	next, res := Reduce(prev, ev)

	kind := "unknown"
	if ev != nil {
		kind = string(ev.Kind())
	}
	s.metrics.RecordEvent(context.Background(), kind, res.Outcome.String())

	switch res.Outcome {
	case Applied:
		s.log.Debug("event applied", "kind", kind, "state", next.PlaybackState, "position_ms", next.PositionMs)
	case Suppressed:
		s.log.Debug("stale event suppressed", "kind", kind, "reason", res.Reason)
		return prev
	case Observed:
		s.log.Info("event observed", "kind", kind, "reason", res.Reason)
		return prev
	default:
		s.log.Warn("event not applied", "kind", kind, "outcome", res.Outcome.String(), "reason", res.Reason)
		return prev
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.notify(Change{Prev: prev, Next: next, Event: ev, Result: res})
	return next
}

// Snapshot returns the current state. Safe from any goroutine.
func (s *Store) Snapshot() PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for applied events and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		panic("state: nil subscriber")
	}

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(c Change) {
	s.subsMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		s.call(sub.fn, c)
	}
}

func (s *Store) call(fn func(Change), c Change) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("subscriber panicked", "panic", r, "kind", string(c.Event.Kind()))
		}
	}()
	fn(c)
}
