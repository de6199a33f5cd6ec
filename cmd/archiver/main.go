package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cephie-studios/pfcontrol/internal/archive"
	"github.com/cephie-studios/pfcontrol/internal/config"
	"github.com/cephie-studios/pfcontrol/internal/nats"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	arc := archive.New(cfg.ArchiveDir, log)
	if err := arc.Start(); err != nil {
		return fmt.Errorf("failed to start archive: %w", err)
	}

	natsClient, err := nats.New(cfg.NATSURL, log)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	defer natsClient.Close()

	if err := natsClient.SubscribeTelemetryRaw(func(payload []byte) {
		if err := arc.Write(payload); err != nil {
			log.Error("Failed to archive telemetry", logger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry: %w", err)
	}

	log.Info("Archiver running", logger.String("dir", cfg.ArchiveDir))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Shutting down", logger.String("signal", sig.String()))

	return arc.Stop()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pfcontrol-archiver: %v\n", err)
		os.Exit(1)
	}
}
