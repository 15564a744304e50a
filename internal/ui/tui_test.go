// ABOUTME: Tests for the TUI update forwarding
// ABOUTME: Verifies state and status survive a full update queue
package ui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/visual"
)

func recvMsg(t *testing.T, c <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-c:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return nil
	}
}

func TestSendKeepsLatestStateWhenQueueFull(t *testing.T) {
	tui := New(newControls(), visual.Preset{Name: "classic"}, tea.WithInput(nil), tea.WithOutput(io.Discard))

	for range updateQueueSize + 10 {
		tui.Send(PositionMsg{})
	}
	tui.Send(StateMsg{State: playingA()})
	b := playingA()
	b.CurrentTrackID = "b"
	tui.Send(StateMsg{State: b})
	tui.Send(StatusMsg{Connected: true, ServerName: "studio"})

	got := make(chan tea.Msg, updateQueueSize+10)
	go tui.forward(func(msg tea.Msg) { got <- msg })
	defer close(tui.done)

	status, ok := recvMsg(t, got).(StatusMsg)
	if !ok || !status.Connected || status.ServerName != "studio" {
		t.Fatalf("expected status first, got %+v", status)
	}
	st, ok := recvMsg(t, got).(StateMsg)
	if !ok || st.State.CurrentTrackID != "b" {
		t.Fatalf("expected latest state second, got %+v", st)
	}

	for i := range updateQueueSize {
		if _, ok := recvMsg(t, got).(PositionMsg); !ok {
			t.Fatalf("update %d: expected PositionMsg", i)
		}
	}

	select {
	case msg := <-got:
		t.Errorf("unexpected extra update %T", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendDeliversStateAheadOfQueuedUpdates(t *testing.T) {
	tui := New(newControls(), visual.Preset{Name: "classic"}, tea.WithInput(nil), tea.WithOutput(io.Discard))

	tui.Send(StateMsg{State: playingA()})
	tui.Send(PositionMsg{})

	got := make(chan tea.Msg, 4)
	go tui.forward(func(msg tea.Msg) { got <- msg })
	defer close(tui.done)

	if _, ok := recvMsg(t, got).(StateMsg); !ok {
		t.Fatal("expected StateMsg first")
	}
	if _, ok := recvMsg(t, got).(PositionMsg); !ok {
		t.Fatal("expected PositionMsg second")
	}
}
