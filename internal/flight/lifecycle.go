package flight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/internal/scoring"
	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Errors surfaced to user-initiated mutations. Everything else in this
// package follows the "absent means no-op" convention.
var (
	ErrFlightNotFound = errors.New("flight not found")
	ErrNotOwner       = errors.New("flight does not belong to requester")
	ErrInvalidStatus  = errors.New("flight status does not permit this operation")
)

// StatsQueue receives user ids whose cached stats need recomputing.
// Publishing happens strictly after the owning transaction commits.
type StatsQueue interface {
	Enqueue(userID string)
}

// Cache is the live-view cache invalidated on finalize and delete.
type Cache interface {
	DeleteActiveFlight(ctx context.Context, pilotIdentity string) error
	StoreShareToken(ctx context.Context, token, flightID string) error
}

// Ground-idle samples are excluded from the average speed.
const idleSpeedKts = 10.0

// Manager owns the flight state machine and the transactional finalize
// operation.
type Manager struct {
	db    *db.Client
	cache Cache
	stats StatsQueue
	log   *logger.Logger
	now   func() time.Time
}

// NewManager creates a lifecycle manager.
func NewManager(dbClient *db.Client, cache Cache, stats StatsQueue, log *logger.Logger) *Manager {
	return &Manager{
		db:    dbClient,
		cache: cache,
		stats: stats,
		log:   log.Named("lifecycle"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Plan creates a new pending flight from a submitted flight plan.
func (m *Manager) Plan(userID, pilotIdentity, callsign, departure, arrival, route, aircraft string) (*types.Flight, error) {
	f := &types.Flight{
		ID:            uuid.New().String(),
		UserID:        userID,
		PilotIdentity: pilotIdentity,
		Callsign:      callsign,
		Departure:     departure,
		Arrival:       arrival,
		Route:         route,
		Aircraft:      aircraft,
		Status:        types.StatusPending,
		CreatedAt:     m.now(),
	}
	if err := m.db.CreateFlight(f); err != nil {
		return nil, fmt.Errorf("failed to create flight: %w", err)
	}
	m.log.Info("Flight planned",
		logger.String("flight_id", f.ID),
		logger.String("callsign", callsign),
		logger.String("pilot", pilotIdentity))
	return f, nil
}

// Activate transitions the pending flight behind a callsign to active.
// Returns the flight id, or "" when no pending flight matched; the
// distinction between "never existed" and "wrong status" is diagnostic
// only.
func (m *Manager) Activate(ctx context.Context, callsign string) (string, error) {
	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	state, err := m.db.GetActiveFlightByCallsign(tx, callsign)
	if err != nil {
		return "", fmt.Errorf("failed to look up callsign: %w", err)
	}
	if state == nil {
		m.log.Info("Activate: callsign has no live state", logger.String("callsign", callsign))
		return "", nil
	}

	f, err := m.db.GetFlightForUpdate(tx, state.FlightID)
	if err != nil {
		return "", fmt.Errorf("failed to load flight: %w", err)
	}
	if f == nil {
		m.log.Warn("Activate: live state points at missing flight",
			logger.String("callsign", callsign),
			logger.String("flight_id", state.FlightID))
		return "", nil
	}
	if !f.Status.CanActivate() {
		m.log.Info("Activate: flight not pending",
			logger.String("callsign", callsign),
			logger.String("flight_id", f.ID),
			logger.String("status", string(f.Status)))
		return "", nil
	}

	if err := m.db.ActivateFlight(tx, f.ID, m.now()); err != nil {
		return "", fmt.Errorf("failed to activate flight: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit activation: %w", err)
	}

	m.log.Info("Flight activated",
		logger.String("callsign", callsign),
		logger.String("flight_id", f.ID))
	return f.ID, nil
}

// Complete finalizes the flight behind a callsign: it aggregates the
// telemetry store, derives the quality metrics, writes the terminal
// record and removes the live state, all in one transaction. A callsign
// with no live state or a flight already terminal is a logged no-op, so
// a repeated call cannot double-finalize. The stats refresh is published
// only after the transaction commits.
func (m *Manager) Complete(ctx context.Context, callsign string) error {
	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	state, err := m.db.GetActiveFlightByCallsign(tx, callsign)
	if err != nil {
		return fmt.Errorf("failed to look up callsign: %w", err)
	}
	if state == nil {
		m.log.Info("Complete: callsign has no live state", logger.String("callsign", callsign))
		return nil
	}

	f, err := m.db.GetFlightForUpdate(tx, state.FlightID)
	if err != nil {
		return fmt.Errorf("failed to load flight: %w", err)
	}
	if f == nil {
		m.log.Warn("Complete: live state points at missing flight",
			logger.String("callsign", callsign),
			logger.String("flight_id", state.FlightID))
		return nil
	}
	if !f.Status.CanComplete() {
		m.log.Info("Complete: flight not completable",
			logger.String("callsign", callsign),
			logger.String("flight_id", f.ID),
			logger.String("status", string(f.Status)))
		return nil
	}

	points, err := m.db.TelemetryForFlight(tx, f.ID)
	if err != nil {
		return fmt.Errorf("failed to load telemetry: %w", err)
	}

	now := m.now()
	metrics := m.computeMetrics(f, state, points, now)

	if err := m.db.CompleteFlight(tx, f.ID, now, metrics); err != nil {
		return fmt.Errorf("failed to finalize flight: %w", err)
	}
	if err := m.db.DeleteActiveFlightTx(tx, state.PilotIdentity); err != nil {
		return fmt.Errorf("failed to remove live state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	m.log.Info("Flight completed",
		logger.String("callsign", callsign),
		logger.String("flight_id", f.ID),
		logger.Int("duration_minutes", metrics.DurationMinutes),
		logger.Float64("distance_nm", metrics.TotalDistanceNM))

	// Post-commit side effects only; their failure cannot unwind the
	// already-committed completion.
	if err := m.cache.DeleteActiveFlight(ctx, state.PilotIdentity); err != nil {
		m.log.Warn("Failed to drop cached live state", logger.String("pilot", state.PilotIdentity), logger.Error(err))
	}
	m.stats.Enqueue(f.UserID)
	return nil
}

// computeMetrics derives the completed-flight metrics from the loaded
// telemetry and the live state's ring buffer.
func (m *Manager) computeMetrics(f *types.Flight, state *types.ActiveFlightState, points []*types.TelemetryPoint, now time.Time) *db.FlightMetrics {
	metrics := &db.FlightMetrics{
		TotalDistanceNM: scoring.TotalDistanceNM(points),
	}

	var speedSum float64
	var speedCount int
	for _, p := range points {
		if p.AltitudeFt != nil && (metrics.MaxAltitudeFt == nil || *p.AltitudeFt > *metrics.MaxAltitudeFt) {
			metrics.MaxAltitudeFt = p.AltitudeFt
		}
		if p.SpeedKts != nil {
			if metrics.MaxSpeedKts == nil || *p.SpeedKts > *metrics.MaxSpeedKts {
				metrics.MaxSpeedKts = p.SpeedKts
			}
			if *p.SpeedKts > idleSpeedKts {
				speedSum += *p.SpeedKts
				speedCount++
			}
		}
	}
	if speedCount > 0 {
		avg := speedSum / float64(speedCount)
		metrics.AverageSpeedKts = &avg
	}

	start := f.CreatedAt
	if f.FlightStart != nil {
		start = *f.FlightStart
	}
	metrics.DurationMinutes = int(now.Sub(start).Minutes())

	rate, source := scoring.LandingRate(f.WaypointLandingRate, state.ApproachAltitudes, state.ApproachTimestamps, points)
	if rate != nil {
		if source == scoring.SourceWaypoint {
			m.log.Info("Landing rate taken from waypoint report",
				logger.String("flight_id", f.ID),
				logger.Float64("rate_fpm", *rate))
		}
		metrics.LandingRateFPM = rate
		score := scoring.LandingScore(*rate)
		metrics.LandingScore = &score
	}

	metrics.SmoothnessScore = scoring.PostFlight{}.Score(points)
	return metrics
}

// FinalizeLandingFromWaypoints resolves the collected waypoints into a
// touchdown report and writes it onto the flight, where it takes
// precedence over every other landing-rate source. No waypoints, or no
// live state, is a no-op.
func (m *Manager) FinalizeLandingFromWaypoints(ctx context.Context, pilotIdentity string) error {
	state, err := m.db.GetActiveFlight(pilotIdentity)
	if err != nil {
		return fmt.Errorf("failed to load live state: %w", err)
	}
	if state == nil {
		return nil
	}

	selected := scoring.SelectLandingWaypoint(state.CollectedWaypoints)
	if selected == nil {
		return nil
	}

	rate := math.Round(selected.LandingSpeed)
	if err := m.db.SetWaypointLanding(state.FlightID, rate, selected.Runway, selected.Airport); err != nil {
		return fmt.Errorf("failed to store waypoint landing: %w", err)
	}

	m.log.Info("Waypoint landing recorded",
		logger.String("pilot", pilotIdentity),
		logger.String("flight_id", state.FlightID),
		logger.Float64("rate_fpm", rate),
		logger.String("runway", selected.Runway),
		logger.String("airport", selected.Airport))
	return nil
}

// Delete removes a flight and everything hanging off it. Owners may only
// delete pending flights; administrators may delete any flight. Deleting
// a completed flight schedules a stats recompute for the owner.
func (m *Manager) Delete(ctx context.Context, flightID, requesterID string, isAdmin bool) error {
	tx, err := m.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	f, err := m.db.GetFlightForUpdate(tx, flightID)
	if err != nil {
		return fmt.Errorf("failed to load flight: %w", err)
	}
	if f == nil {
		return ErrFlightNotFound
	}
	if !isAdmin && f.UserID != requesterID {
		return ErrNotOwner
	}
	if !isAdmin && f.Status != types.StatusPending {
		return ErrInvalidStatus
	}

	if err := m.db.DeleteFlightCascade(tx, flightID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deletion: %w", err)
	}

	m.log.Info("Flight deleted",
		logger.String("flight_id", flightID),
		logger.String("requester", requesterID),
		logger.Bool("admin", isAdmin),
		logger.String("status", string(f.Status)))

	if err := m.cache.DeleteActiveFlight(ctx, f.PilotIdentity); err != nil {
		m.log.Warn("Failed to drop cached live state", logger.String("pilot", f.PilotIdentity), logger.Error(err))
	}
	if f.Status == types.StatusCompleted {
		m.stats.Enqueue(f.UserID)
	}
	return nil
}

// ShareToken returns the flight's share token, generating and persisting
// one on first use. The token is stable once set.
func (m *Manager) ShareToken(ctx context.Context, flightID, requesterID string) (string, error) {
	f, err := m.db.GetFlight(flightID)
	if err != nil {
		return "", fmt.Errorf("failed to load flight: %w", err)
	}
	if f == nil {
		return "", ErrFlightNotFound
	}
	if f.UserID != requesterID {
		return "", ErrNotOwner
	}
	if f.ShareToken != nil {
		return *f.ShareToken, nil
	}

	token := uuid.New().String()
	if err := m.db.SetShareToken(flightID, token); err != nil {
		return "", fmt.Errorf("failed to store share token: %w", err)
	}
	if err := m.cache.StoreShareToken(ctx, token, flightID); err != nil {
		m.log.Warn("Failed to cache share token", logger.String("flight_id", flightID), logger.Error(err))
	}
	return token, nil
}
