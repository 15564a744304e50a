// ABOUTME: Event envelope decoding and encoding
// ABOUTME: Validates the type discriminant and field shapes of incoming events
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownEventType is returned for an envelope whose type is not a known Kind
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrMalformedEnvelope is returned for an envelope that is not valid event JSON
	ErrMalformedEnvelope = errors.New("malformed event envelope")
)

type envelopeHeader struct {
	Type Kind `json:"type"`
}

// DecodeEvent parses one flat event envelope
func DecodeEvent(data []byte) (Event, error) {
	var hdr envelopeHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if hdr.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	ev, err := decodeKind(hdr.Type, data)
	if err != nil {
		return nil, err
	}
	if err := validatePosition(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeKind(kind Kind, data []byte) (Event, error) {
	switch kind {
	case KindPlayRequestIDChanged:
		return decodeInto[PlayRequestIDChanged](data)
	case KindTrackChanged:
		return decodeTrackChanged(data)
	case KindStopped:
		return decodeInto[Stopped](data)
	case KindPlaying:
		return decodeInto[Playing](data)
	case KindPaused:
		return decodeInto[Paused](data)
	case KindLoading:
		return decodeInto[Loading](data)
	case KindPreloading:
		return decodeInto[Preloading](data)
	case KindEndOfTrack:
		return decodeInto[EndOfTrack](data)
	case KindSeeked:
		return decodeInto[Seeked](data)
	case KindUnavailable:
		return decodeInto[Unavailable](data)
	case KindVolumeChanged:
		return decodeInto[VolumeChanged](data)
	case KindShuffleChanged:
		return decodeInto[ShuffleChanged](data)
	case KindRepeatChanged:
		return decodeInto[RepeatChanged](data)
	case KindAutoPlayChanged:
		return decodeInto[AutoPlayChanged](data)
	case KindFilterExplicitContentChanged:
		return decodeInto[FilterExplicitContentChanged](data)
	case KindSessionDisconnected:
		return SessionDisconnected{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, kind)
}

func decodeInto[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEnvelope, ev.Kind(), err)
	}
	return ev, nil
}

// validatePosition rejects negative positions on position-bearing events
func validatePosition(ev Event) error {
	var pos int64
	switch e := ev.(type) {
	case Playing:
		pos = e.PositionMs
	case Paused:
		pos = e.PositionMs
	case Seeked:
		pos = e.PositionMs
	default:
		return nil
	}
	if pos < 0 {
		return fmt.Errorf("%w: %s: negative position_ms %d", ErrMalformedEnvelope, ev.Kind(), pos)
	}
	return nil
}

func decodeTrackChanged(data []byte) (Event, error) {
	item := &AudioItem{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("%w: track_changed: %v", ErrMalformedEnvelope, err)
	}
	if item.TrackID == "" {
		return nil, fmt.Errorf("%w: track_changed: missing track_id", ErrMalformedEnvelope)
	}
	if !item.ItemType.Valid() {
		return nil, fmt.Errorf("%w: track_changed: invalid item_type %q", ErrMalformedEnvelope, item.ItemType)
	}
	if item.DurationMs < 0 {
		return nil, fmt.Errorf("%w: track_changed: negative duration_ms %d", ErrMalformedEnvelope, item.DurationMs)
	}
	return TrackChanged{Item: item}, nil
}

// EncodeEvent renders ev as a flat envelope with its type discriminant
func EncodeEvent(ev Event) ([]byte, error) {
	var body interface{} = ev
	if tc, ok := ev.(TrackChanged); ok {
		if tc.Item == nil {
			return nil, fmt.Errorf("track_changed without item")
		}
		body = tc.Item
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ev.Kind(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s: %w", ev.Kind(), err)
	}
	kind, _ := json.Marshal(ev.Kind())
	fields["type"] = kind

	return json.Marshal(fields)
}
