// ABOUTME: YAML configuration loader
// ABOUTME: Overlays a config file on defaults and validates the result
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/graph"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Unknown keys are an error.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Audio.Backend {
	case graph.BackendOto, graph.BackendMalgo:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is invalid; valid values: %s, %s", cfg.Audio.Backend, graph.BackendOto, graph.BackendMalgo))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 8 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [1, 8]", cfg.Audio.Channels))
	}
	if cfg.Audio.PreAmpGain < 0 {
		errs = append(errs, fmt.Errorf("audio.preamp_gain %.2f must not be negative", cfg.Audio.PreAmpGain))
	}
	if cfg.Audio.PlaybackGain < 0 {
		errs = append(errs, fmt.Errorf("audio.playback_gain %.2f must not be negative", cfg.Audio.PlaybackGain))
	}
	if cfg.Audio.TapSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.tap_size %d must be positive", cfg.Audio.TapSize))
	}

	if cfg.Playback.TickInterval < MinTickInterval || cfg.Playback.TickInterval > MaxTickInterval {
		errs = append(errs, fmt.Errorf("playback.tick_interval %s is out of range [%s, %s]", cfg.Playback.TickInterval, MinTickInterval, MaxTickInterval))
	}

	if cfg.Lyrics.Enabled {
		if u, err := url.Parse(cfg.Lyrics.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("lyrics.base_url %q is not an absolute URL", cfg.Lyrics.BaseURL))
		}
		if cfg.Lyrics.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("lyrics.timeout %s must be positive", cfg.Lyrics.Timeout))
		}
	}

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	return errors.Join(errs...)
}
