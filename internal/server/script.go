// ABOUTME: Scripted playback timeline for the event source
// ABOUTME: Walks a playlist and produces the events a real player would emit
package server

import (
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// DefaultResyncMs is how often a seeked event re-anchors receivers
const DefaultResyncMs = 10_000

// Script advances through a looping playlist in stream time
type Script struct {
	playlist []*protocol.AudioItem
	resyncMs int64

	started    bool
	index      int
	positionMs int64
	sinceSync  int64
	requestID  uint64
}

// NewScript creates a script over playlist. Items without a duration are
// skipped by Advance as soon as they start.
func NewScript(playlist []*protocol.AudioItem, resyncMs int64) *Script {
	if resyncMs <= 0 {
		resyncMs = DefaultResyncMs
	}
	return &Script{playlist: playlist, resyncMs: resyncMs}
}

// Current returns the item playing now, or nil before the first Advance
func (s *Script) Current() *protocol.AudioItem {
	if !s.started || len(s.playlist) == 0 {
		return nil
	}
	return s.playlist[s.index]
}

// Snapshot returns the events that bring a late joiner up to date
func (s *Script) Snapshot() []protocol.Event {
	item := s.Current()
	if item == nil {
		return nil
	}
	return []protocol.Event{
		protocol.PlayRequestIDChanged{PlayRequestID: s.requestID},
		protocol.TrackChanged{Item: item},
		protocol.Playing{TrackID: item.TrackID, PositionMs: s.positionMs},
	}
}

// Advance moves the timeline forward by elapsedMs and returns the events
// produced along the way
func (s *Script) Advance(elapsedMs int64) []protocol.Event {
	if len(s.playlist) == 0 {
		return nil
	}
	if !s.started {
		s.started = true
		return s.start()
	}

	item := s.playlist[s.index]
	s.positionMs += elapsedMs
	if s.positionMs >= item.DurationMs {
		events := []protocol.Event{protocol.EndOfTrack{TrackID: item.TrackID}}
		s.index = (s.index + 1) % len(s.playlist)
		return append(events, s.start()...)
	}

	s.sinceSync += elapsedMs
	if s.sinceSync >= s.resyncMs {
		s.sinceSync = 0
		return []protocol.Event{protocol.Seeked{TrackID: item.TrackID, PositionMs: s.positionMs}}
	}
	return nil
}

func (s *Script) start() []protocol.Event {
	item := s.playlist[s.index]
	s.positionMs = 0
	s.sinceSync = 0
	s.requestID++
	return []protocol.Event{
		protocol.PlayRequestIDChanged{PlayRequestID: s.requestID},
		protocol.TrackChanged{Item: item},
		protocol.Playing{TrackID: item.TrackID, PositionMs: 0},
	}
}

// DefaultPlaylist is the built-in calibration playlist
func DefaultPlaylist() []*protocol.AudioItem {
	return []*protocol.AudioItem{
		{
			TrackID:    "tone-a4",
			URI:        "resonate:track:tone-a4",
			Name:       "A4 Reference",
			DurationMs: 30_000,
			ItemType:   protocol.ItemTrack,
			Artists:    []string{"Resonate"},
			Album:      "Calibration",
			Number:     1,
			DiscNumber: 1,
		},
		{
			TrackID:    "tone-a4-reprise",
			URI:        "resonate:track:tone-a4-reprise",
			Name:       "A4 Reference (Reprise)",
			DurationMs: 20_000,
			ItemType:   protocol.ItemTrack,
			Artists:    []string{"Resonate"},
			Album:      "Calibration",
			Number:     2,
			DiscNumber: 1,
		},
	}
}
