// ABOUTME: Tests for the playback state reducer
// ABOUTME: Covers match rules, resets, validation and fold equivalence
package state

import (
	"math/rand/v2"
	"testing"

	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

func item(id string, durationMs int64) *protocol.AudioItem {
	return &protocol.AudioItem{TrackID: id, Name: "Song " + id, DurationMs: durationMs, ItemType: protocol.ItemTrack}
}

func withItem(it *protocol.AudioItem) PlayerState {
	s := Initial()
	s.CurrentItem = it
	s.CurrentTrackID = it.TrackID
	return s
}

func TestInitialState(t *testing.T) {
	s := Initial()
	if s.PlaybackState != Unavailable {
		t.Errorf("expected unavailable, got %s", s.PlaybackState)
	}
	if s.Volume != MaxVolume {
		t.Errorf("expected volume %d, got %d", MaxVolume, s.Volume)
	}
	if s.Repeat != RepeatOff {
		t.Errorf("expected repeat off, got %s", s.Repeat)
	}
	if s.CurrentItem != nil || s.CurrentTrackID != "" || s.HasPlayRequestID {
		t.Errorf("expected no track or play request, got %+v", s)
	}
}

func TestTrackChangedResetsPosition(t *testing.T) {
	a := item("A", 200000)
	b := item("B", 100000)

	s := withItem(a)
	s.PlaybackState = Playing
	s.PositionMs = 150000

	next, res := Reduce(s, protocol.TrackChanged{Item: b})
	if res.Outcome != Applied {
		t.Fatalf("expected applied, got %s", res.Outcome)
	}
	if next.PositionMs != 0 {
		t.Errorf("expected position 0, got %d", next.PositionMs)
	}
	if next.CurrentItem != b || next.CurrentTrackID != "B" {
		t.Errorf("expected item B, got %+v", next.CurrentItem)
	}
	if next.PlaybackState != Playing {
		t.Errorf("expected playback state untouched, got %s", next.PlaybackState)
	}
}

func TestTrackScopedEvents(t *testing.T) {
	a := item("A", 200000)

	tests := []struct {
		name      string
		start     PlayerState
		event     protocol.Event
		want      Outcome
		wantState PlaybackState
		wantPos   int64
	}{
		{"playing matches", withItem(a), protocol.Playing{TrackID: "A", PositionMs: 500}, Applied, Playing, 500},
		{"playing mismatch", withItem(a), protocol.Playing{TrackID: "X", PositionMs: 500}, Suppressed, Unavailable, 0},
		{"playing without item", Initial(), protocol.Playing{TrackID: "X", PositionMs: 700}, Applied, Playing, 700},
		{"paused matches", withItem(a), protocol.Paused{TrackID: "A", PositionMs: 1400}, Applied, Paused, 1400},
		{"paused mismatch", withItem(a), protocol.Paused{TrackID: "X", PositionMs: 1400}, Suppressed, Unavailable, 0},
		{"loading matches", withItem(a), protocol.Loading{TrackID: "A"}, Applied, Loading, 0},
		{"loading mismatch", withItem(a), protocol.Loading{TrackID: "X"}, Suppressed, Unavailable, 0},
		{"unavailable matches", withItem(a), protocol.Unavailable{TrackID: "A"}, Applied, Unavailable, 0},
		{"seeked matches", withItem(a), protocol.Seeked{TrackID: "A", PositionMs: 90000}, Applied, Unavailable, 90000},
		{"seeked mismatch", withItem(a), protocol.Seeked{TrackID: "X", PositionMs: 90000}, Suppressed, Unavailable, 0},
		{"end of track matches", withItem(a), protocol.EndOfTrack{TrackID: "A"}, Applied, Ended, 200000},
		{"end of track mismatch", withItem(a), protocol.EndOfTrack{TrackID: "X"}, Suppressed, Unavailable, 0},
		{"end of track without item", Initial(), protocol.EndOfTrack{TrackID: "A"}, Suppressed, Unavailable, 0},
		{"stopped mismatch still applies", withItem(a), protocol.Stopped{TrackID: "X"}, Applied, Stopped, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, res := Reduce(tt.start, tt.event)
			if res.Outcome != tt.want {
				t.Fatalf("expected %s, got %s (%s)", tt.want, res.Outcome, res.Reason)
			}
			if res.Outcome != Applied && next != tt.start {
				t.Errorf("expected unchanged state, got %+v", next)
			}
			if next.PlaybackState != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, next.PlaybackState)
			}
			if next.PositionMs != tt.wantPos {
				t.Errorf("expected position %d, got %d", tt.wantPos, next.PositionMs)
			}
		})
	}
}

func TestStoppedSetsTrackID(t *testing.T) {
	s := withItem(item("A", 1000))
	s.PositionMs = 700

	next, _ := Reduce(s, protocol.Stopped{TrackID: "B"})
	if next.CurrentTrackID != "B" {
		t.Errorf("expected current track B, got %q", next.CurrentTrackID)
	}
	if next.PositionMs != 0 {
		t.Errorf("expected position 0, got %d", next.PositionMs)
	}
}

func TestRepeatChanged(t *testing.T) {
	s := Initial()

	next, res := Reduce(s, protocol.RepeatChanged{Repeat: "track"})
	if res.Outcome != Applied || next.Repeat != RepeatTrack {
		t.Fatalf("expected repeat track, got %s (%s)", next.Repeat, res.Outcome)
	}

	after, res := Reduce(next, protocol.RepeatChanged{Repeat: "bogus"})
	if res.Outcome != Rejected {
		t.Errorf("expected rejected, got %s", res.Outcome)
	}
	if res.Reason == "" {
		t.Error("expected a diagnostic reason")
	}
	if after.Repeat != RepeatTrack {
		t.Errorf("expected repeat unchanged, got %s", after.Repeat)
	}
}

func TestPreloadingNeverMutates(t *testing.T) {
	s := withItem(item("A", 1000))
	next, res := Reduce(s, protocol.Preloading{TrackID: "B"})
	if res.Outcome != Observed {
		t.Errorf("expected observed, got %s", res.Outcome)
	}
	if next != s {
		t.Errorf("expected unchanged state")
	}
}

func TestScalarEvents(t *testing.T) {
	s := Initial()
	s = ReduceAll(s, []protocol.Event{
		protocol.VolumeChanged{Volume: 1000},
		protocol.ShuffleChanged{Shuffle: true},
		protocol.AutoPlayChanged{AutoPlay: true},
		protocol.FilterExplicitContentChanged{Filter: true},
		protocol.PlayRequestIDChanged{PlayRequestID: 9},
	})

	if s.Volume != 1000 || !s.Shuffle || !s.AutoPlay || !s.FilterExplicitContent {
		t.Errorf("unexpected scalars: %+v", s)
	}
	if !s.HasPlayRequestID || s.PlayRequestID != 9 {
		t.Errorf("expected play request 9, got %d (set=%v)", s.PlayRequestID, s.HasPlayRequestID)
	}
}

func TestSessionDisconnectedResets(t *testing.T) {
	s := ReduceAll(Initial(), []protocol.Event{
		protocol.TrackChanged{Item: item("A", 1000)},
		protocol.Playing{TrackID: "A", PositionMs: 300},
		protocol.VolumeChanged{Volume: 10},
		protocol.RepeatChanged{Repeat: "context"},
		protocol.ShuffleChanged{Shuffle: true},
		protocol.PlayRequestIDChanged{PlayRequestID: 3},
	})

	next, res := Reduce(s, protocol.SessionDisconnected{})
	if res.Outcome != Applied {
		t.Fatalf("expected applied, got %s", res.Outcome)
	}
	if next != Initial() {
		t.Errorf("expected initial state, got %+v", next)
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	s := withItem(item("A", 1000))
	next, res := Reduce(s, nil)
	if res.Outcome != Ignored {
		t.Errorf("expected ignored, got %s", res.Outcome)
	}
	if next != s {
		t.Error("expected unchanged state")
	}
}

func TestEndToEndStateSequence(t *testing.T) {
	s := ReduceAll(Initial(), []protocol.Event{
		protocol.TrackChanged{Item: item("A", 200000)},
		protocol.Playing{TrackID: "A", PositionMs: 0},
	})

	if s.PlaybackState != Playing || s.PositionMs != 0 || s.CurrentTrackID != "A" {
		t.Errorf("unexpected state: %+v", s)
	}
}

func randomEvent(r *rand.Rand, items []*protocol.AudioItem) protocol.Event {
	id := items[r.IntN(len(items))].TrackID
	pos := r.Int64N(300000)
	switch r.IntN(16) {
	case 0:
		return protocol.TrackChanged{Item: items[r.IntN(len(items))]}
	case 1:
		return protocol.Playing{TrackID: id, PositionMs: pos}
	case 2:
		return protocol.Paused{TrackID: id, PositionMs: pos}
	case 3:
		return protocol.Loading{TrackID: id}
	case 4:
		return protocol.Preloading{TrackID: id}
	case 5:
		return protocol.EndOfTrack{TrackID: id}
	case 6:
		return protocol.Seeked{TrackID: id, PositionMs: pos}
	case 7:
		return protocol.Unavailable{TrackID: id}
	case 8:
		return protocol.Stopped{TrackID: id}
	case 9:
		return protocol.VolumeChanged{Volume: uint16(r.IntN(MaxVolume + 1))}
	case 10:
		return protocol.ShuffleChanged{Shuffle: r.IntN(2) == 0}
	case 11:
		return protocol.RepeatChanged{Repeat: []string{"context", "track", "off", "bogus"}[r.IntN(4)]}
	case 12:
		return protocol.AutoPlayChanged{AutoPlay: r.IntN(2) == 0}
	case 13:
		return protocol.FilterExplicitContentChanged{Filter: r.IntN(2) == 0}
	case 14:
		return protocol.PlayRequestIDChanged{PlayRequestID: r.Uint64()}
	}
	return protocol.SessionDisconnected{}
}

func TestSequentialEqualsBatch(t *testing.T) {
	items := []*protocol.AudioItem{item("A", 200000), item("B", 120000), item("C", 0)}
	r := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		events := make([]protocol.Event, r.IntN(40))
		for i := range events {
			events[i] = randomEvent(r, items)
		}

		sequential := Initial()
		for _, ev := range events {
			sequential, _ = Reduce(sequential, ev)
		}

		if batch := ReduceAll(Initial(), events); batch != sequential {
			t.Fatalf("run %d: batch %+v != sequential %+v", run, batch, sequential)
		}

		// Splitting the batch anywhere yields the same state
		split := r.IntN(len(events) + 1)
		if twoPart := ReduceAll(ReduceAll(Initial(), events[:split]), events[split:]); twoPart != sequential {
			t.Fatalf("run %d: split at %d gave %+v", run, split, twoPart)
		}
	}
}

func TestPositionBearing(t *testing.T) {
	if !PositionBearing(protocol.Seeked{}) || !PositionBearing(protocol.Stopped{}) {
		t.Error("expected seeked and stopped to be position bearing")
	}
	if PositionBearing(protocol.VolumeChanged{}) || PositionBearing(protocol.Loading{}) {
		t.Error("expected volume and loading not to be position bearing")
	}
}
