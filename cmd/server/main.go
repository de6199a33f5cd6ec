package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/api"
	"github.com/cephie-studios/pfcontrol/internal/config"
	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/internal/flight"
	"github.com/cephie-studios/pfcontrol/internal/nats"
	"github.com/cephie-studios/pfcontrol/internal/redis"
	"github.com/cephie-studios/pfcontrol/internal/stats"
	"github.com/cephie-studios/pfcontrol/internal/tracker"
	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

const (
	metricsInterval = 1 * time.Minute
	sweepInterval   = 1 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// createClients creates all the required clients for the application.
func createClients(cfg *config.Config, log *logger.Logger) (*nats.Client, *db.Client, *redis.Client, error) {
	natsClient, err := nats.New(cfg.NATSURL, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	dbClient, err := db.New(cfg.DBConnStr)
	if err != nil {
		natsClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create database client: %w", err)
	}

	redisClient, err := redis.New(cfg.RedisAddr)
	if err != nil {
		natsClient.Close()
		if closeErr := dbClient.Close(); closeErr != nil {
			log.Warn("Error closing database client", logger.Error(closeErr))
		}
		return nil, nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return natsClient, dbClient, redisClient, nil
}

// setupSubscriptions wires the NATS subjects to the tracker and the
// lifecycle manager.
func setupSubscriptions(natsClient *nats.Client, trk *tracker.Tracker, lifecycle *flight.Manager, log *logger.Logger) error {
	ctx := context.Background()

	if err := natsClient.SubscribeTelemetry(func(msg *types.TelemetryMessage) {
		if err := trk.RecordTelemetry(ctx, msg); err != nil {
			log.Error("Failed to record telemetry",
				logger.String("pilot", msg.PilotIdentity),
				logger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry: %w", err)
	}

	if err := natsClient.SubscribeWaypoints(func(msg *types.WaypointMessage) {
		if err := trk.RecordWaypoint(ctx, msg); err != nil {
			log.Error("Failed to record waypoint",
				logger.String("pilot", msg.PilotIdentity),
				logger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to waypoints: %w", err)
	}

	if err := natsClient.SubscribeControl(func(msg *types.ControlMessage) {
		routeControl(ctx, msg, trk, lifecycle, log)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to control events: %w", err)
	}

	return nil
}

// routeControl dispatches one control event to the component that owns
// the transition. Unknown actions are logged and dropped.
func routeControl(ctx context.Context, msg *types.ControlMessage, trk *tracker.Tracker, lifecycle *flight.Manager, log *logger.Logger) {
	var err error
	switch msg.Action {
	case types.ControlStart:
		err = trk.StartTracking(ctx, msg.PilotIdentity, msg.Callsign, msg.FlightID)
	case types.ControlActivate:
		_, err = lifecycle.Activate(ctx, msg.Callsign)
	case types.ControlLanding:
		err = lifecycle.FinalizeLandingFromWaypoints(ctx, msg.PilotIdentity)
	case types.ControlComplete:
		err = lifecycle.Complete(ctx, msg.Callsign)
	case types.ControlStop:
		err = trk.StopTracking(ctx, msg.PilotIdentity)
	default:
		log.Warn("Dropping unknown control action", logger.String("action", string(msg.Action)))
		return
	}
	if err != nil {
		log.Error("Control event failed",
			logger.String("action", string(msg.Action)),
			logger.String("pilot", msg.PilotIdentity),
			logger.String("callsign", msg.Callsign),
			logger.Error(err))
	}
}

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

	natsClient, dbClient, redisClient, err := createClients(cfg, log)
	if err != nil {
		return err
	}
	defer natsClient.Close()
	defer dbClient.Close()    //nolint:errcheck
	defer redisClient.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trk := tracker.New(dbClient, redisClient, log)
	aggregator := stats.NewAggregator(dbClient, log)
	worker := stats.NewWorker(aggregator, cfg.StatsQueueSize, log)
	lifecycle := flight.NewManager(dbClient, redisClient, worker, log)

	go worker.Run(ctx)
	go trk.RunStationarySweep(ctx, sweepInterval, cfg.StationaryAfter)
	go trk.LogMetrics(ctx, metricsInterval)

	if err := setupSubscriptions(natsClient, trk, lifecycle, log); err != nil {
		return err
	}

	server := api.NewServer(cfg.HTTPAddr, dbClient, redisClient, lifecycle, worker, aggregator, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", logger.Error(err))
	}
	cancel()
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pfcontrol-server: %v\n", err)
		os.Exit(1)
	}
}
