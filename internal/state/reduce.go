// ABOUTME: Pure reducer from (state, event) to the next state
// ABOUTME: Implements stale-event suppression and value validation
package state

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// Outcome classifies what the reducer did with an event
type Outcome int

const (
	// Applied means the event's rule ran
	Applied Outcome = iota
	// Suppressed means the event named a track other than the current item
	Suppressed
	// Rejected means the event carried an invalid value
	Rejected
	// Observed means the event is diagnostic only
	Observed
	// Ignored means the event kind has no rule
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Suppressed:
		return "suppressed"
	case Rejected:
		return "rejected"
	case Observed:
		return "observed"
	case Ignored:
		return "ignored"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is an Outcome plus a human-readable reason
type Result struct {
	Outcome Outcome
	Reason  string
}

func applied() Result { return Result{Outcome: Applied} }

// Reduce applies one event to s. It never reads the clock or does I/O.
func Reduce(s PlayerState, ev protocol.Event) (PlayerState, Result) {
	switch e := ev.(type) {
	case protocol.TrackChanged:
		if e.Item == nil {
			return s, Result{Rejected, "track_changed without item"}
		}
		s.CurrentItem = e.Item
		s.CurrentTrackID = e.Item.TrackID
		s.PositionMs = 0
		return s, applied()

	case protocol.Playing:
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PlaybackState = Playing
		s.PositionMs = e.PositionMs
		s.CurrentTrackID = e.TrackID
		return s, applied()

	case protocol.Paused:
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PlaybackState = Paused
		s.PositionMs = e.PositionMs
		s.CurrentTrackID = e.TrackID
		return s, applied()

	case protocol.Loading:
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PlaybackState = Loading
		s.CurrentTrackID = e.TrackID
		return s, applied()

	case protocol.Unavailable:
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PlaybackState = Unavailable
		s.CurrentTrackID = e.TrackID
		return s, applied()

	case protocol.EndOfTrack:
		if s.CurrentItem == nil {
			return s, Result{Suppressed, fmt.Sprintf("end_of_track for %q with no current item", e.TrackID)}
		}
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PlaybackState = Ended
		s.PositionMs = s.CurrentItem.DurationMs
		return s, applied()

	case protocol.Stopped:
		s.PlaybackState = Stopped
		s.PositionMs = 0
		s.CurrentTrackID = e.TrackID
		return s, applied()

	case protocol.Seeked:
		if r, ok := checkTrack(s, e.TrackID); !ok {
			return s, r
		}
		s.PositionMs = e.PositionMs
		return s, applied()

	case protocol.Preloading:
		return s, Result{Observed, fmt.Sprintf("preloading %q", e.TrackID)}

	case protocol.RepeatChanged:
		r, err := ParseRepeat(e.Repeat)
		if err != nil {
			return s, Result{Rejected, err.Error()}
		}
		s.Repeat = r
		return s, applied()

	case protocol.VolumeChanged:
		s.Volume = e.Volume
		return s, applied()

	case protocol.ShuffleChanged:
		s.Shuffle = e.Shuffle
		return s, applied()

	case protocol.AutoPlayChanged:
		s.AutoPlay = e.AutoPlay
		return s, applied()

	case protocol.FilterExplicitContentChanged:
		s.FilterExplicitContent = e.Filter
		return s, applied()

	case protocol.PlayRequestIDChanged:
		s.PlayRequestID = e.PlayRequestID
		s.HasPlayRequestID = true
		return s, applied()

	case protocol.SessionDisconnected:
		return Initial(), applied()
	}

	return s, Result{Ignored, fmt.Sprintf("no rule for event %T", ev)}
}

// ReduceAll folds events over s in order
func ReduceAll(s PlayerState, events []protocol.Event) PlayerState {
	for _, ev := range events {
		s, _ = Reduce(s, ev)
	}
	return s
}

// checkTrack applies the match rule: an event about a track is only
// accepted when no item is current or the item has that track id.
func checkTrack(s PlayerState, trackID string) (Result, bool) {
	if s.CurrentItem == nil || s.CurrentItem.TrackID == trackID {
		return Result{}, true
	}
	return Result{Suppressed, fmt.Sprintf("event for %q while %q is current", trackID, s.CurrentItem.TrackID)}, false
}

// PositionBearing reports whether applying ev sets an authoritative position
func PositionBearing(ev protocol.Event) bool {
	switch ev.(type) {
	case protocol.TrackChanged, protocol.Playing, protocol.Paused, protocol.Seeked,
		protocol.Stopped, protocol.EndOfTrack, protocol.SessionDisconnected:
		return true
	}
	return false
}
