package tracker

import (
	"context"
	"math"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Store is the persistence surface the tracker writes through.
type Store interface {
	UpsertActiveFlight(s *types.ActiveFlightState) error
	GetActiveFlight(pilotIdentity string) (*types.ActiveFlightState, error)
	UpdateActiveSnapshot(flightID string, p *types.TelemetryPoint) (bool, error)
	AppendApproachSample(pilotIdentity string, altitude float64, timestamp int64) error
	AppendWaypoint(pilotIdentity string, w *types.Waypoint) (bool, error)
	DeleteActiveFlight(pilotIdentity string) error
	InsertTelemetry(p *types.TelemetryPoint) error
	MarkStationaryFlights(cutoff time.Time) (int64, error)
}

// Cache is the best-effort live-view cache. Errors from it are logged,
// never propagated; the database stays authoritative.
type Cache interface {
	StoreActiveFlight(ctx context.Context, s *types.ActiveFlightState) error
	GetActiveFlight(ctx context.Context, pilotIdentity string) (*types.ActiveFlightState, error)
	DeleteActiveFlight(ctx context.Context, pilotIdentity string) error
}

// Tracker maintains the one live flight record per pilot identity and
// feeds the append-only telemetry store. Ingestion never reports failure
// upstream for unknown or expired pilots.
type Tracker struct {
	store   Store
	cache   Cache
	log     *logger.Logger
	metrics *Metrics
}

// New creates a tracker.
func New(store Store, cache Cache, log *logger.Logger) *Tracker {
	return &Tracker{
		store:   store,
		cache:   cache,
		log:     log.Named("tracker"),
		metrics: NewMetrics(),
	}
}

// Metrics exposes the ingest counters.
func (t *Tracker) Metrics() *Metrics {
	return t.metrics
}

// StartTracking upserts the live state for a pilot identity. A pilot can
// only ever be flying one tracked flight; starting a new one overwrites
// any prior live state.
func (t *Tracker) StartTracking(ctx context.Context, pilotIdentity, callsign, flightID string) error {
	state := &types.ActiveFlightState{
		PilotIdentity: pilotIdentity,
		FlightID:      flightID,
		Callsign:      callsign,
		CurrentPhase:  "preflight",
		LastUpdate:    time.Now().UTC(),
	}
	if err := t.store.UpsertActiveFlight(state); err != nil {
		return err
	}

	if err := t.cache.StoreActiveFlight(ctx, state); err != nil {
		t.log.Warn("Failed to cache live state", logger.String("pilot", pilotIdentity), logger.Error(err))
	}

	t.log.Info("Tracking started",
		logger.String("pilot", pilotIdentity),
		logger.String("callsign", callsign),
		logger.String("flight_id", flightID))
	return nil
}

// RecordTelemetry appends a sample to the telemetry store and refreshes
// the live snapshot when a corresponding live state exists. This is the
// highest-frequency write path; it never joins the finalize transaction.
func (t *Tracker) RecordTelemetry(ctx context.Context, msg *types.TelemetryMessage) error {
	t.metrics.IncTelemetryReceived()

	point := sanitize(msg.Point())
	if err := t.store.InsertTelemetry(point); err != nil {
		t.metrics.IncTelemetryFailed()
		return err
	}
	t.metrics.IncTelemetryStored()

	updated, err := t.store.UpdateActiveSnapshot(point.FlightID, point)
	if err != nil {
		t.metrics.IncTelemetryFailed()
		return err
	}
	if !updated {
		t.metrics.IncSnapshotMisses()
		return nil
	}

	// Approach altitudes feed the landing-rate ring buffer.
	if point.AltitudeFt != nil && (point.FlightPhase == "approach" || point.FlightPhase == "landing") {
		if err := t.RecordApproachAltitude(msg.PilotIdentity, *point.AltitudeFt, point.Timestamp.Unix()); err != nil {
			t.log.Warn("Failed to record approach altitude",
				logger.String("pilot", msg.PilotIdentity), logger.Error(err))
		}
	}

	t.refreshCachedSnapshot(ctx, msg.PilotIdentity, point)
	return nil
}

// refreshCachedSnapshot merges the sample into the cached live state,
// if one is cached. Best effort only.
func (t *Tracker) refreshCachedSnapshot(ctx context.Context, pilotIdentity string, p *types.TelemetryPoint) {
	state, err := t.cache.GetActiveFlight(ctx, pilotIdentity)
	if err != nil {
		t.log.Warn("Failed to read cached live state", logger.String("pilot", pilotIdentity), logger.Error(err))
		return
	}
	if state == nil || state.FlightID != p.FlightID {
		return
	}

	if p.AltitudeFt != nil {
		state.AltitudeFt = p.AltitudeFt
	}
	if p.SpeedKts != nil {
		state.SpeedKts = p.SpeedKts
	}
	if p.Heading != nil {
		state.Heading = p.Heading
	}
	if p.X != nil {
		state.X = p.X
	}
	if p.Y != nil {
		state.Y = p.Y
	}
	if p.FlightPhase != "" {
		state.CurrentPhase = p.FlightPhase
	}
	state.LastUpdate = p.Timestamp

	if err := t.cache.StoreActiveFlight(ctx, state); err != nil {
		t.log.Warn("Failed to refresh cached live state", logger.String("pilot", pilotIdentity), logger.Error(err))
	}
}

// RecordApproachAltitude appends to the approach ring buffer, trimming
// to the newest entries in a second step.
func (t *Tracker) RecordApproachAltitude(pilotIdentity string, altitude float64, timestamp int64) error {
	if math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return nil
	}
	t.metrics.IncApproachSamples()
	return t.store.AppendApproachSample(pilotIdentity, altitude, timestamp)
}

// RecordWaypoint appends a landing-event report to the pilot's collected
// waypoints. Unknown pilots are a logged no-op, never an error: the
// sender may be reporting for an already-finalized flight.
func (t *Tracker) RecordWaypoint(ctx context.Context, msg *types.WaypointMessage) error {
	t.metrics.IncWaypointsReceived()

	w := msg.Waypoint
	if math.IsNaN(w.LandingSpeed) || math.IsInf(w.LandingSpeed, 0) {
		t.log.Warn("Dropping waypoint with malformed landing speed",
			logger.String("pilot", msg.PilotIdentity))
		return nil
	}

	found, err := t.store.AppendWaypoint(msg.PilotIdentity, &w)
	if err != nil {
		return err
	}
	if !found {
		t.metrics.IncWaypointsOrphaned()
		t.log.Warn("Waypoint for pilot with no live state",
			logger.String("pilot", msg.PilotIdentity),
			logger.Float64("landing_speed", w.LandingSpeed))
		return nil
	}

	t.metrics.IncWaypointsStored()
	return nil
}

// StopTracking unconditionally deletes the live state for a pilot.
func (t *Tracker) StopTracking(ctx context.Context, pilotIdentity string) error {
	if err := t.store.DeleteActiveFlight(pilotIdentity); err != nil {
		return err
	}
	if err := t.cache.DeleteActiveFlight(ctx, pilotIdentity); err != nil {
		t.log.Warn("Failed to drop cached live state", logger.String("pilot", pilotIdentity), logger.Error(err))
	}
	t.log.Info("Tracking stopped", logger.String("pilot", pilotIdentity))
	return nil
}

// RunStationarySweep periodically flags live states that have sat below
// taxi speed since the configured window.
func (t *Tracker) RunStationarySweep(ctx context.Context, interval, after time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := t.store.MarkStationaryFlights(time.Now().Add(-after))
			if err != nil {
				t.log.Warn("Stationary sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				t.log.Info("Flagged stationary flights", logger.Int64("count", n))
			}
		}
	}
}

// LogMetrics periodically logs the ingest counters.
func (t *Tracker) LogMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.log.Info("Ingest metrics", t.metrics.Fields()...)
		}
	}
}

// Sanity bounds for numeric telemetry. Out-of-range values are treated
// as absent, not rejected, so the ingestion path stays non-blocking.
const (
	minAltitudeFt = -2000.0
	maxAltitudeFt = 150000.0
	maxSpeedKts   = 3000.0
	maxVSFPM      = 30000.0
)

func sanitize(p *types.TelemetryPoint) *types.TelemetryPoint {
	p.X = finiteOrNil(p.X)
	p.Y = finiteOrNil(p.Y)
	p.AltitudeFt = rangeOrNil(p.AltitudeFt, minAltitudeFt, maxAltitudeFt)
	p.SpeedKts = rangeOrNil(p.SpeedKts, 0, maxSpeedKts)
	p.VerticalSpeedFPM = rangeOrNil(p.VerticalSpeedFPM, -maxVSFPM, maxVSFPM)
	if p.Heading != nil {
		if h := finiteOrNil(p.Heading); h == nil {
			p.Heading = nil
		} else {
			wrapped := math.Mod(math.Mod(*h, 360)+360, 360)
			p.Heading = &wrapped
		}
	}
	return p
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func rangeOrNil(v *float64, lo, hi float64) *float64 {
	v = finiteOrNil(v)
	if v == nil || *v < lo || *v > hi {
		return nil
	}
	return v
}
