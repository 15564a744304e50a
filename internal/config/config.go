// ABOUTME: Player configuration types
// ABOUTME: Defines every config section and its defaults
// Package config defines the player configuration file and command-line
// overrides.
package config

import (
	"time"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/graph"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/interp"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/lyrics"
)

// Tick interval bounds accepted for playback.tick_interval
const (
	MinTickInterval = 100 * time.Millisecond
	MaxTickInterval = 500 * time.Millisecond
)

// Config is the top-level configuration.
type Config struct {
	// Server is the event source address (host:port or ws URL). Empty
	// means discover one over mDNS.
	Server   string         `yaml:"server"`
	Name     string         `yaml:"name"`
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Lyrics   LyricsConfig   `yaml:"lyrics"`
	Visual   VisualConfig   `yaml:"visual"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

// AudioConfig configures the audio graph.
type AudioConfig struct {
	Backend      string  `yaml:"backend"`
	SampleRate   int     `yaml:"sample_rate"`
	Channels     int     `yaml:"channels"`
	PreAmpGain   float64 `yaml:"preamp_gain"`
	PlaybackGain float64 `yaml:"playback_gain"`
	TapSize      int     `yaml:"tap_size"`
}

// PlaybackConfig configures position interpolation.
type PlaybackConfig struct {
	TickInterval        time.Duration `yaml:"tick_interval"`
	AdvanceWhileLoading bool          `yaml:"advance_while_loading"`
}

// LyricsConfig configures the lyric provider.
type LyricsConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// VisualConfig configures visualizer presets.
type VisualConfig struct {
	PresetsDir string `yaml:"presets_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Name: "Resonate Visualizer",
		Audio: AudioConfig{
			Backend:      graph.BackendOto,
			SampleRate:   graph.DefaultSampleRate,
			Channels:     graph.DefaultChannels,
			PreAmpGain:   graph.DefaultPreAmpGain,
			PlaybackGain: graph.DefaultPlaybackGain,
			TapSize:      graph.DefaultTapSize,
		},
		Playback: PlaybackConfig{
			TickInterval: interp.DefaultInterval,
		},
		Lyrics: LyricsConfig{
			Enabled: true,
			BaseURL: lyrics.DefaultBaseURL,
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "visualizer.log",
		},
		UI: UIConfig{Enabled: true},
	}
}
