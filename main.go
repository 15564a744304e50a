// ABOUTME: Entry point for the Resonate visualizer receiver
// ABOUTME: Loads config, builds the playback surface and keeps a session connected
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/app"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/artwork"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/config"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/discovery"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/graph"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/interp"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/lyrics"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/reconstruct"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/transport"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/ui"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/version"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/visual"
)

const (
	discoveryTimeout = 10 * time.Second
	reconnectDelay   = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "visualizer:", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(flags)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// TUI mode logs only to the file
	var out io.Writer = f
	if !cfg.UI.Enabled {
		out = io.MultiWriter(os.Stdout, f)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logger.NewLogger(logger.Config{Level: level, Format: cfg.Log.Format, Output: out})
	slog.SetDefault(log)

	log.Info("starting visualizer", "name", cfg.Name, "version", version.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown, err := serveMetrics(ctx, cfg.Metrics.Addr, log)
		if err != nil {
			log.Warn("metrics disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}
	metrics := observe.DefaultMetrics()

	g := graph.New(graph.Config{
		Backend:      cfg.Audio.Backend,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		PreAmpGain:   cfg.Audio.PreAmpGain,
		PlaybackGain: cfg.Audio.PlaybackGain,
		TapSize:      cfg.Audio.TapSize,
		Logger:       log,
		Metrics:      metrics,
	})
	if err := g.Start(); err != nil {
		log.Warn("continuing without audio output", "error", err)
	}
	defer func() { _ = g.Close() }()

	recon := reconstruct.New(g, reconstruct.Config{Channels: cfg.Audio.Channels, Logger: log, Metrics: metrics})

	presets, err := visual.Open(cfg.Visual.PresetsDir, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	if err != nil {
		return err
	}

	art, err := artwork.NewDownloader(artwork.Config{Logger: log})
	if err != nil {
		return err
	}
	defer art.Close()

	rc := app.Config{
		Interp: interp.Config{
			Interval:            cfg.Playback.TickInterval,
			AdvanceWhileLoading: cfg.Playback.AdvanceWhileLoading,
		},
		Chunks:  recon,
		Artwork: art,
		Graph:   g,
		Logger:  log,
		Metrics: metrics,
	}
	if cfg.Lyrics.Enabled {
		rc.Lyrics = lyrics.NewProvider(lyrics.ProviderConfig{
			BaseURL:   cfg.Lyrics.BaseURL,
			Timeout:   cfg.Lyrics.Timeout,
			UserAgent: "resonate-visualizer/" + version.Version,
			Logger:    log,
			Metrics:   metrics,
		})
	}

	var tui *ui.TUI
	tuiDone := make(chan struct{})
	if cfg.UI.Enabled {
		tui = ui.New(app.NewControls(g, presets), presets.Current())
		rc.View = tui
	}

	receiver := app.New(rc)
	defer receiver.Close()

	if tui != nil {
		go func() {
			defer close(tuiDone)
			if err := tui.Run(); err != nil {
				log.Error("tui failed", "error", err)
			}
			// quitting the TUI ends the receiver
			stop()
		}()
	} else {
		close(tuiDone)
	}

	err = runSessions(ctx, cfg, receiver, rc.View, log)

	if tui != nil {
		tui.Stop()
	}
	<-tuiDone

	log.Info("visualizer stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSessions keeps one session connected until ctx ends
func runSessions(ctx context.Context, cfg *config.Config, receiver *app.Receiver, view app.View, log *slog.Logger) error {
	status := func(msg ui.StatusMsg) {
		if view != nil {
			view.Send(msg)
		}
	}

	for {
		addr, err := resolveServer(ctx, cfg, log)
		if err == nil {
			err = session(ctx, cfg, addr, receiver, status, log)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Warn("session failed", "error", err)
		}

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func session(ctx context.Context, cfg *config.Config, addr string, receiver *app.Receiver, status func(ui.StatusMsg), log *slog.Logger) error {
	client := transport.NewClient(transport.Config{
		ServerAddr: addr,
		Name:       cfg.Name,
		Channels:   cfg.Audio.Channels,
		SampleRate: cfg.Audio.SampleRate,
		DeviceInfo: version.DeviceInfo(),
		Logger:     log,
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	name := client.Server().Name
	if name == "" {
		name = addr
	}
	log.Info("connected", "server", name, "addr", addr)
	status(ui.StatusMsg{Connected: true, ServerName: name})
	defer status(ui.StatusMsg{Connected: false, ServerName: name})

	return receiver.Run(ctx, client)
}

// resolveServer returns the configured server or the first one found over mDNS
func resolveServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (string, error) {
	if cfg.Server != "" {
		return cfg.Server, nil
	}

	log.Info("starting source discovery")
	disc := discovery.NewManager(discovery.Config{Instance: cfg.Name, Logger: log})
	defer disc.Stop()

	fctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	info, err := disc.Find(fctx)
	if err != nil {
		return "", err
	}
	return info.Addr(), nil
}

func serveMetrics(ctx context.Context, addr string, log *slog.Logger) (func(context.Context) error, error) {
	shutdownProvider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version.Version})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)

	return func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), shutdownProvider(ctx))
	}, nil
}
