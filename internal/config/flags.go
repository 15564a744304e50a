// ABOUTME: Command-line flags for the player
// ABOUTME: Parses overrides and resolves them against the config file
package config

import (
	"flag"
	"fmt"
)

// Flags holds command-line overrides. Empty values leave the file's
// setting untouched.
type Flags struct {
	ConfigPath  string
	Server      string
	Name        string
	Backend     string
	LogFile     string
	MetricsAddr string
	NoTUI       bool
}

// ParseFlags parses args into Flags
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var f Flags
	fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&f.Server, "server", "", "Event source address (empty for mDNS discovery)")
	fs.StringVar(&f.Name, "name", "", "Player friendly name")
	fs.StringVar(&f.Backend, "backend", "", "Audio backend (oto or malgo)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.BoolVar(&f.NoTUI, "no-tui", false, "Disable TUI, use streaming logs instead")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// Resolve loads the config file named by f, or the defaults when there is
// none, then applies f and validates the result.
func Resolve(f Flags) (*Config, error) {
	cfg := Default()
	if f.ConfigPath != "" {
		loaded, err := Load(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Apply(f)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the non-empty flag values onto c
func (c *Config) Apply(f Flags) {
	if f.Server != "" {
		c.Server = f.Server
	}
	if f.Name != "" {
		c.Name = f.Name
	}
	if f.Backend != "" {
		c.Audio.Backend = f.Backend
	}
	if f.LogFile != "" {
		c.Log.File = f.LogFile
	}
	if f.MetricsAddr != "" {
		c.Metrics.Addr = f.MetricsAddr
	}
	if f.NoTUI {
		c.UI.Enabled = false
	}
}
