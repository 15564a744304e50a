// ABOUTME: Entry point for the scripted event source
// ABOUTME: Serves a looping playlist with a test tone to visualizer receivers
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/server"
)

var (
	port      = flag.Int("port", 8927, "WebSocket server port")
	name      = flag.String("name", "", "Source friendly name (default: hostname-event-source)")
	frequency = flag.Float64("frequency", 440, "Test tone frequency in Hz")
	resyncMs  = flag.Int64("resync-ms", server.DefaultResyncMs, "Interval between seeked events")
	logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg := logger.DefaultConfig()
	cfg.Level = level
	log := logger.NewLogger(cfg)

	sourceName := *name
	if sourceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sourceName = fmt.Sprintf("%s-event-source", hostname)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Port:       *port,
		Name:       sourceName,
		EnableMDNS: !*noMDNS,
		Frequency:  *frequency,
		ResyncMs:   *resyncMs,
		Logger:     log,
	})

	log.Info("press Ctrl-C to stop")
	if err := srv.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
