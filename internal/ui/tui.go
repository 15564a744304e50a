// ABOUTME: TUI program wrapper
// ABOUTME: Feeds updates into a bubbletea program without blocking producers
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/visual"
)

const updateQueueSize = 256

// TUI runs the visualizer model
type TUI struct {
	program *tea.Program
	updates chan tea.Msg
	wake    chan struct{}
	done    chan struct{}

	// latest state and status wait here instead of in the queue so a full
	// queue never loses them
	mu     sync.Mutex
	state  *StateMsg
	status *StatusMsg
}

// New creates a TUI; extra program options are passed to bubbletea
func New(controls Controls, preset visual.Preset, opts ...tea.ProgramOption) *TUI {
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(NewModel(controls, preset), opts...),
		updates: make(chan tea.Msg, updateQueueSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	go t.forward(t.program.Send)
	defer close(t.done)

	_, err := t.program.Run()
	return err
}

// Send hands msg to the model. StateMsg and StatusMsg are always delivered,
// keeping only the latest of each; other updates are dropped while the
// queue is full.
func (t *TUI) Send(msg tea.Msg) {
	switch m := msg.(type) {
	case StateMsg:
		t.mu.Lock()
		t.state = &m
		t.mu.Unlock()
		t.signal()
	case StatusMsg:
		t.mu.Lock()
		t.status = &m
		t.mu.Unlock()
		t.signal()
	default:
		select {
		case t.updates <- msg:
		default:
		}
	}
}

func (t *TUI) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// forward delivers pending updates until done closes. State goes out ahead
// of any queued update so position filtering sees the current track.
func (t *TUI) forward(send func(tea.Msg)) {
	for {
		select {
		case <-t.wake:
			t.flush(send)
		case msg := <-t.updates:
			t.flush(send)
			send(msg)
		case <-t.done:
			return
		}
	}
}

func (t *TUI) flush(send func(tea.Msg)) {
	t.mu.Lock()
	status, state := t.status, t.state
	t.status, t.state = nil, nil
	t.mu.Unlock()

	if status != nil {
		send(*status)
	}
	if state != nil {
		send(*state)
	}
}

// Stop asks the program to exit
func (t *TUI) Stop() {
	t.program.Quit()
}
