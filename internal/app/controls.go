// ABOUTME: Keyboard controls for the receiver
// ABOUTME: Adapts the audio graph and presets to the TUI control interface
package app

import (
	"github.com/Resonate-Protocol/resonate-visualizer/internal/graph"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/visual"
)

// Controls adapts the audio graph and preset catalogue to the TUI keys
type Controls struct {
	graph   *graph.Manager
	presets *visual.Presets
}

// NewControls creates the TUI control surface
func NewControls(g *graph.Manager, p *visual.Presets) *Controls {
	return &Controls{graph: g, presets: p}
}

func (c *Controls) PlaybackGain() float64     { return c.graph.PlaybackGain() }
func (c *Controls) SetPlaybackGain(g float64) { c.graph.SetPlaybackGain(g) }
func (c *Controls) PreAmpGain() float64       { return c.graph.PreAmpGain() }
func (c *Controls) SetPreAmpGain(g float64)   { c.graph.SetPreAmpGain(g) }

// NextPreset advances to a different preset
func (c *Controls) NextPreset() visual.Preset {
	return c.presets.Next()
}

// Levels analyses the tap's most recent window
func (c *Controls) Levels(bands int) []float64 {
	tap := c.graph.Tap()
	return visual.Spectrum(tap.Samples(tap.Size()), bands)
}
