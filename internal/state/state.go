// ABOUTME: Player state model for the receiver
// ABOUTME: Enumerations, the PlayerState value and its initial value
package state

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// PlaybackState is the transport state reported by the source
type PlaybackState string

const (
	Stopped     PlaybackState = "stopped"
	Playing     PlaybackState = "playing"
	Paused      PlaybackState = "paused"
	Loading     PlaybackState = "loading"
	Preloading  PlaybackState = "preloading"
	Unavailable PlaybackState = "unavailable"
	Ended       PlaybackState = "ended"
)

// Repeat is the repeat mode of the source
type Repeat string

const (
	RepeatContext Repeat = "context"
	RepeatTrack   Repeat = "track"
	RepeatOff     Repeat = "off"
)

// ParseRepeat validates a raw repeat value
func ParseRepeat(s string) (Repeat, error) {
	switch r := Repeat(s); r {
	case RepeatContext, RepeatTrack, RepeatOff:
		return r, nil
	}
	return "", fmt.Errorf("invalid repeat value %q", s)
}

// MaxVolume is the top of the source volume range
const MaxVolume = 65535

// PlayerState is the receiver's view of the source. It is a comparable
// value; CurrentItem is shared and never mutated.
type PlayerState struct {
	PlaybackState         PlaybackState
	PositionMs            int64
	Volume                uint16
	Shuffle               bool
	Repeat                Repeat
	AutoPlay              bool
	FilterExplicitContent bool

	// CurrentTrackID is empty when unset
	CurrentTrackID string
	CurrentItem    *protocol.AudioItem

	PlayRequestID    uint64
	HasPlayRequestID bool
}

// Initial returns the state of a receiver that has just started
func Initial() PlayerState {
	return PlayerState{
		PlaybackState: Unavailable,
		PositionMs:    0,
		Volume:        MaxVolume,
		Repeat:        RepeatOff,
	}
}

// DurationMs returns the current item's duration, or 0 when unknown
func (s PlayerState) DurationMs() int64 {
	if s.CurrentItem == nil {
		return 0
	}
	return s.CurrentItem.DurationMs
}

// VolumePercent maps the volume onto 0-100
func (s PlayerState) VolumePercent() int {
	return int(s.Volume) * 100 / MaxVolume
}
