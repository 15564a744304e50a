// ABOUTME: Bubbletea model for the visualizer TUI
// ABOUTME: Shows the current item, progress, lyrics, spectrum bars and gain controls
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/interp"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/lyrics"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/state"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/visual"
)

// Gain steps for the keyboard controls
const (
	PlaybackGainStep = 0.1
	PreAmpGainStep   = 0.5
)

const (
	frameInterval = 50 * time.Millisecond
	spectrumBands = 32
	barHeight     = 8
	progressWidth = 40
)

// Controls is what the keyboard drives
type Controls interface {
	PlaybackGain() float64
	SetPlaybackGain(g float64)
	PreAmpGain() float64
	SetPreAmpGain(g float64)
	NextPreset() visual.Preset
	Levels(bands int) []float64
}

// StatusMsg updates connection status
type StatusMsg struct {
	Connected  bool
	ServerName string
}

// StateMsg carries a new player state snapshot
type StateMsg struct {
	State state.PlayerState
}

// PositionMsg carries an interpolated display position
type PositionMsg struct {
	Position interp.Position
}

// LyricsMsg carries a lyric lookup result for a track
type LyricsMsg struct {
	TrackID string
	Lyrics  lyrics.Lyrics
	Err     error
}

// ArtworkMsg carries the cached cover path for a track
type ArtworkMsg struct {
	TrackID string
	Path    string
}

// StatsMsg carries pipeline counters for the debug panel
type StatsMsg struct {
	EventsApplied  int64
	ChunksReceived int64
	ChunksDropped  int64
	ActiveBuffers  int
}

type frameMsg time.Time

// Model represents the TUI state
type Model struct {
	controls Controls

	connected  bool
	serverName string

	player   state.PlayerState
	position interp.Position

	cursor      *lyrics.Cursor
	lyricsErr   error
	artworkPath string

	preset       visual.Preset
	levels       []float64
	preAmpGain   float64
	playbackGain float64

	stats     StatsMsg
	showDebug bool
	quitting  bool

	width  int
	height int
}

// NewModel creates a model driving controls, which may be nil in tests
func NewModel(controls Controls, preset visual.Preset) Model {
	m := Model{
		controls: controls,
		player:   state.Initial(),
		preset:   preset,
	}
	if controls != nil {
		m.preAmpGain = controls.PreAmpGain()
		m.playbackGain = controls.PlaybackGain()
	}
	return m
}

// Init starts the frame ticker
func (m Model) Init() tea.Cmd {
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case frameMsg:
		if m.controls != nil {
			m.levels = m.controls.Levels(spectrumBands)
		}
		return m, frameTick()
	case StatusMsg:
		m.connected = msg.Connected
		if msg.ServerName != "" {
			m.serverName = msg.ServerName
		}
	case StateMsg:
		m.applyState(msg.State)
	case PositionMsg:
		if msg.Position.TrackID == m.player.CurrentTrackID {
			m.position = msg.Position
		}
	case LyricsMsg:
		if msg.TrackID == m.player.CurrentTrackID {
			m.lyricsErr = msg.Err
			if msg.Err == nil {
				m.cursor = lyrics.NewCursor(msg.Lyrics)
			}
		}
	case ArtworkMsg:
		if msg.TrackID == m.player.CurrentTrackID {
			m.artworkPath = msg.Path
		}
	case StatsMsg:
		m.stats = msg
	}

	return m, nil
}

func (m *Model) applyState(s state.PlayerState) {
	if s.CurrentItem != m.player.CurrentItem {
		m.cursor = nil
		m.lyricsErr = nil
		m.artworkPath = ""
	}
	if s.CurrentTrackID != m.position.TrackID {
		m.position = interp.Position{TrackID: s.CurrentTrackID}
	}
	m.position.State = s.PlaybackState
	m.position.DurationMs = s.DurationMs()
	m.player = s
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up":
		m.adjustPlayback(PlaybackGainStep)
	case "down":
		m.adjustPlayback(-PlaybackGainStep)
	case "+", "=":
		m.adjustPreAmp(PreAmpGainStep)
	case "-", "_":
		m.adjustPreAmp(-PreAmpGainStep)
	case "n":
		if m.controls != nil {
			m.preset = m.controls.NextPreset()
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) adjustPlayback(delta float64) {
	m.playbackGain = max(m.playbackGain+delta, 0)
	if m.controls != nil {
		m.controls.SetPlaybackGain(m.playbackGain)
		m.playbackGain = m.controls.PlaybackGain()
	}
}

func (m *Model) adjustPreAmp(delta float64) {
	m.preAmpGain = max(m.preAmpGain+delta, 0)
	if m.controls != nil {
		m.controls.SetPreAmpGain(m.preAmpGain)
		m.preAmpGain = m.controls.PreAmpGain()
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Resonate Visualizer"))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus())
	b.WriteString(m.renderItem())
	b.WriteString(m.renderProgress())
	b.WriteString("\n")
	b.WriteString(m.renderLyrics())
	b.WriteString("\n")
	b.WriteString(visual.Bars(m.levels, barHeight, m.preset))
	b.WriteString("\n")
	b.WriteString(m.renderGains())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(faintStyle.Render("↑/↓:Playback  +/-:Pre-amp  n:Next preset  d:Debug  q:Quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderStatus() string {
	status := "Disconnected"
	if m.connected {
		status = "Connected to " + m.serverName
	}
	return headerStyle.Render("Status: ") + valueStyle.Render(status) + "\n"
}

func (m Model) renderItem() string {
	item := m.player.CurrentItem
	if item == nil {
		return valueStyle.Render("Nothing playing") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Title:  ") + valueStyle.Render(truncate(item.Name, 60)) + "\n")
	if sub := item.Subtitle(); sub != "" {
		b.WriteString(headerStyle.Render("By:     ") + valueStyle.Render(truncate(sub, 60)) + "\n")
	}
	if item.Album != "" {
		b.WriteString(headerStyle.Render("Album:  ") + valueStyle.Render(truncate(item.Album, 60)) + "\n")
	}
	if m.artworkPath != "" {
		b.WriteString(headerStyle.Render("Cover:  ") + faintStyle.Render(m.artworkPath) + "\n")
	}
	return b.String()
}

func (m Model) renderProgress() string {
	return fmt.Sprintf("%s %s [%s] %s\n",
		headerStyle.Render(string(m.player.PlaybackState)),
		formatTime(m.position.DisplayMs),
		renderBar(m.position.Fraction(), progressWidth),
		formatTime(m.position.DurationMs))
}

func (m Model) renderLyrics() string {
	if m.player.CurrentItem == nil {
		return ""
	}
	if m.lyricsErr != nil {
		return faintStyle.Render("No lyrics") + "\n"
	}
	if m.cursor == nil {
		return faintStyle.Render("Looking up lyrics...") + "\n"
	}

	lyr := m.cursor.Lyrics()
	sel := m.cursor.At(m.position.DisplayMs, m.position.DurationMs)

	if sel.Synced {
		var b strings.Builder
		for i := sel.Index - 1; i <= sel.Index+1; i++ {
			if i < 0 || i >= len(lyr.Synced) {
				b.WriteString("\n")
				continue
			}
			if i == sel.Index {
				b.WriteString(activeStyle.Render("> "+lyr.Synced[i].Words) + "\n")
			} else {
				b.WriteString(faintStyle.Render("  "+lyr.Synced[i].Words) + "\n")
			}
		}
		return b.String()
	}

	if lyr.Instrumental {
		return faintStyle.Render("Instrumental") + "\n"
	}
	if lyr.Plain == "" {
		return faintStyle.Render("No lyrics") + "\n"
	}
	lines := strings.Split(lyr.Plain, "\n")
	line := min(int(sel.Fraction*float64(len(lines))), len(lines)-1)
	return valueStyle.Render(lines[line]) + "\n"
}

func (m Model) renderGains() string {
	return fmt.Sprintf("%s %.1f  %s %.1f  %s %s\n",
		headerStyle.Render("Pre-amp:"), m.preAmpGain,
		headerStyle.Render("Playback:"), m.playbackGain,
		headerStyle.Render("Preset:"), valueStyle.Render(m.preset.Name))
}

func (m Model) renderDebug() string {
	return faintStyle.Render(fmt.Sprintf(
		"DEBUG track=%s request=%d events=%d chunks=%d dropped=%d active=%d volume=%d%% shuffle=%t repeat=%s",
		m.player.CurrentTrackID, m.player.PlayRequestID, m.stats.EventsApplied,
		m.stats.ChunksReceived, m.stats.ChunksDropped, m.stats.ActiveBuffers,
		m.player.VolumePercent(), m.player.Shuffle, m.player.Repeat)) + "\n"
}

func renderBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(min(filled, width), 0)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
