// ABOUTME: Playback event types delivered by the event source
// ABOUTME: A closed set of event structs plus the AudioItem they describe
package protocol

// Kind is the "type" discriminant of an event envelope
type Kind string

// Event kinds
const (
	KindPlayRequestIDChanged         Kind = "play_request_id_changed"
	KindTrackChanged                 Kind = "track_changed"
	KindStopped                      Kind = "stopped"
	KindPlaying                      Kind = "playing"
	KindPaused                       Kind = "paused"
	KindLoading                      Kind = "loading"
	KindPreloading                   Kind = "preloading"
	KindEndOfTrack                   Kind = "end_of_track"
	KindSeeked                       Kind = "seeked"
	KindUnavailable                  Kind = "unavailable"
	KindVolumeChanged                Kind = "volume_changed"
	KindShuffleChanged               Kind = "shuffle_changed"
	KindRepeatChanged                Kind = "repeat_changed"
	KindAutoPlayChanged              Kind = "auto_play_changed"
	KindFilterExplicitContentChanged Kind = "filter_explicit_content_changed"
	KindSessionDisconnected          Kind = "session_disconnected"
)

// Event is one decoded playback event. The set of implementations is
// closed to this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// ItemType distinguishes music tracks from podcast episodes
type ItemType string

const (
	ItemTrack   ItemType = "track"
	ItemEpisode ItemType = "episode"
)

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	return t == ItemTrack || t == ItemEpisode
}

// AudioItem describes the item a track_changed event switches to.
// Values are never mutated after decoding; share them by pointer.
type AudioItem struct {
	TrackID    string   `json:"track_id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	DurationMs int64    `json:"duration_ms"`
	IsExplicit bool     `json:"is_explicit"`
	Covers     []string `json:"covers"`
	Language   []string `json:"language"`
	ItemType   ItemType `json:"item_type"`

	// Track fields
	Artists      []string `json:"artists,omitempty"`
	Album        string   `json:"album,omitempty"`
	AlbumArtists []string `json:"album_artists,omitempty"`
	Popularity   int      `json:"popularity,omitempty"`
	Number       int      `json:"number,omitempty"`
	DiscNumber   int      `json:"disc_number,omitempty"`

	// Episode fields
	Description     string `json:"description,omitempty"`
	PublishTimeUnix int64  `json:"publish_time_unix,omitempty"`
	ShowName        string `json:"show_name,omitempty"`
}

// Subtitle returns the artists of a track or the show of an episode
func (a *AudioItem) Subtitle() string {
	if a.ItemType == ItemEpisode {
		return a.ShowName
	}
	s := ""
	for i, artist := range a.Artists {
		if i > 0 {
			s += ", "
		}
		s += artist
	}
	return s
}

// PlayRequestIDChanged carries the token of the most recent play intent
type PlayRequestIDChanged struct {
	PlayRequestID uint64 `json:"play_request_id"`
}

// TrackChanged replaces the current item
type TrackChanged struct {
	Item *AudioItem
}

type Stopped struct {
	TrackID string `json:"track_id"`
}

type Playing struct {
	TrackID    string `json:"track_id"`
	PositionMs int64  `json:"position_ms"`
}

type Paused struct {
	TrackID    string `json:"track_id"`
	PositionMs int64  `json:"position_ms"`
}

type Loading struct {
	TrackID string `json:"track_id"`
}

type Preloading struct {
	TrackID string `json:"track_id"`
}

// EndOfTrack carries no position; the receiver uses the item duration
type EndOfTrack struct {
	TrackID string `json:"track_id"`
}

type Seeked struct {
	TrackID    string `json:"track_id"`
	PositionMs int64  `json:"position_ms"`
}

type Unavailable struct {
	TrackID string `json:"track_id"`
}

// VolumeChanged carries a volume in the 0-65535 range
type VolumeChanged struct {
	Volume uint16 `json:"volume"`
}

type ShuffleChanged struct {
	Shuffle bool `json:"shuffle"`
}

// RepeatChanged carries the raw repeat value. It is validated when
// applied, not when decoded.
type RepeatChanged struct {
	Repeat string `json:"repeat"`
}

type AutoPlayChanged struct {
	AutoPlay bool `json:"auto_play"`
}

type FilterExplicitContentChanged struct {
	Filter bool `json:"filter"`
}

// SessionDisconnected is emitted by the source on logout and synthesized
// by the transport when the connection drops.
type SessionDisconnected struct{}

func (PlayRequestIDChanged) Kind() Kind         { return KindPlayRequestIDChanged }
func (TrackChanged) Kind() Kind                 { return KindTrackChanged }
func (Stopped) Kind() Kind                      { return KindStopped }
func (Playing) Kind() Kind                      { return KindPlaying }
func (Paused) Kind() Kind                       { return KindPaused }
func (Loading) Kind() Kind                      { return KindLoading }
func (Preloading) Kind() Kind                   { return KindPreloading }
func (EndOfTrack) Kind() Kind                   { return KindEndOfTrack }
func (Seeked) Kind() Kind                       { return KindSeeked }
func (Unavailable) Kind() Kind                  { return KindUnavailable }
func (VolumeChanged) Kind() Kind                { return KindVolumeChanged }
func (ShuffleChanged) Kind() Kind               { return KindShuffleChanged }
func (RepeatChanged) Kind() Kind                { return KindRepeatChanged }
func (AutoPlayChanged) Kind() Kind              { return KindAutoPlayChanged }
func (FilterExplicitContentChanged) Kind() Kind { return KindFilterExplicitContentChanged }
func (SessionDisconnected) Kind() Kind          { return KindSessionDisconnected }

func (PlayRequestIDChanged) isEvent()         {}
func (TrackChanged) isEvent()                 {}
func (Stopped) isEvent()                      {}
func (Playing) isEvent()                      {}
func (Paused) isEvent()                       {}
func (Loading) isEvent()                      {}
func (Preloading) isEvent()                   {}
func (EndOfTrack) isEvent()                   {}
func (Seeked) isEvent()                       {}
func (Unavailable) isEvent()                  {}
func (VolumeChanged) isEvent()                {}
func (ShuffleChanged) isEvent()               {}
func (RepeatChanged) isEvent()                {}
func (AutoPlayChanged) isEvent()              {}
func (FilterExplicitContentChanged) isEvent() {}
func (SessionDisconnected) isEvent()          {}
