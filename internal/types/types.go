package types

import (
	"time"
)

// FlightStatus is the lifecycle state of a flight. Transitions are
// monotonic: pending -> active -> completed.
type FlightStatus string

const (
	StatusPending   FlightStatus = "pending"
	StatusActive    FlightStatus = "active"
	StatusCompleted FlightStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s FlightStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// CanActivate reports whether a flight in this status may transition to active.
func (s FlightStatus) CanActivate() bool {
	return s == StatusPending
}

// CanComplete reports whether a flight in this status may be finalized.
// A flight may complete without ever being activated.
func (s FlightStatus) CanComplete() bool {
	return s == StatusActive || s == StatusPending
}

// Terminal reports whether no further transitions are possible.
func (s FlightStatus) Terminal() bool {
	return s == StatusCompleted
}

// Flight is one simulated flight, from plan submission to its permanent
// scored record.
type Flight struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	PilotIdentity     string       `json:"pilot_identity"`
	Callsign          string       `json:"callsign"`
	Departure         string       `json:"departure"`
	Arrival           string       `json:"arrival"`
	Route             string       `json:"route"`
	Aircraft          string       `json:"aircraft"`
	Status            FlightStatus `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
	FlightStart       *time.Time   `json:"flight_start,omitempty"`
	FlightEnd         *time.Time   `json:"flight_end,omitempty"`
	ActivatedAt       *time.Time   `json:"activated_at,omitempty"`
	ControllerManaged bool         `json:"controller_managed"`
	ShareToken        *string      `json:"share_token,omitempty"`

	// Set by waypoint-based landing detection, before finalization.
	WaypointLandingRate *float64 `json:"waypoint_landing_rate,omitempty"`
	LandedRunway        *string  `json:"landed_runway,omitempty"`
	LandedAirport       *string  `json:"landed_airport,omitempty"`

	// Derived metrics, set once on completion.
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	TotalDistanceNM *float64 `json:"total_distance_nm,omitempty"`
	MaxAltitudeFt   *float64 `json:"max_altitude_ft,omitempty"`
	MaxSpeedKts     *float64 `json:"max_speed_kts,omitempty"`
	AverageSpeedKts *float64 `json:"average_speed_kts,omitempty"`
	LandingRateFPM  *float64 `json:"landing_rate_fpm,omitempty"`
	SmoothnessScore *float64 `json:"smoothness_score,omitempty"`
	LandingScore    *float64 `json:"landing_score,omitempty"`
}

// Waypoint is one landing-event report collected while a pilot is airborne.
// Timestamp is epoch seconds; LandingSpeed is the signed vertical rate at
// touchdown. Extra carries forward-compatible fields that scoring ignores.
type Waypoint struct {
	Timestamp    int64                  `json:"timestamp"`
	LandingSpeed float64                `json:"landing_speed"`
	Runway       string                 `json:"runway,omitempty"`
	Airport      string                 `json:"airport,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// ApproachWindowSize caps the approach altitude/timestamp ring buffer.
const ApproachWindowSize = 30

// ActiveFlightState is the single live record per pilot identity. It holds
// the last-known kinematic snapshot, a capped ring buffer of approach
// altitudes, and the waypoints collected so far.
type ActiveFlightState struct {
	PilotIdentity              string     `json:"pilot_identity"`
	FlightID                   string     `json:"flight_id"`
	Callsign                   string     `json:"callsign"`
	AltitudeFt                 *float64   `json:"altitude_ft,omitempty"`
	SpeedKts                   *float64   `json:"speed_kts,omitempty"`
	Heading                    *float64   `json:"heading,omitempty"`
	X                          *float64   `json:"x,omitempty"`
	Y                          *float64   `json:"y,omitempty"`
	CurrentPhase               string     `json:"current_phase"`
	LastUpdate                 time.Time  `json:"last_update"`
	LandingDetected            bool       `json:"landing_detected"`
	StationaryNotificationSent bool       `json:"stationary_notification_sent"`
	ApproachAltitudes          []float64  `json:"approach_altitudes"`
	ApproachTimestamps         []int64    `json:"approach_timestamps"`
	CollectedWaypoints         []Waypoint `json:"collected_waypoints"`
}

// TelemetryPoint is one immutable telemetry sample for a flight. Numeric
// fields are pointers because samples routinely arrive partial; absent
// values are skipped by every aggregation.
type TelemetryPoint struct {
	FlightID         string    `json:"flight_id"`
	Timestamp        time.Time `json:"timestamp"`
	X                *float64  `json:"x,omitempty"`
	Y                *float64  `json:"y,omitempty"`
	AltitudeFt       *float64  `json:"altitude_ft,omitempty"`
	SpeedKts         *float64  `json:"speed_kts,omitempty"`
	Heading          *float64  `json:"heading,omitempty"`
	VerticalSpeedFPM *float64  `json:"vertical_speed_fpm,omitempty"`
	FlightPhase      string    `json:"flight_phase,omitempty"`
}

// PilotStats is the per-user cached summary over all completed flights.
// It is recomputed in full on every aggregator run, never incrementally.
type PilotStats struct {
	UserID                 string    `json:"user_id"`
	TotalFlights           int       `json:"total_flights"`
	TotalHours             float64   `json:"total_hours"`
	TotalFlightMinutes     int       `json:"total_flight_minutes"`
	TotalDistanceNM        float64   `json:"total_distance_nm"`
	FavoriteAircraft       *string   `json:"favorite_aircraft,omitempty"`
	FavoriteAircraftCount  int       `json:"favorite_aircraft_count"`
	FavoriteDeparture      *string   `json:"favorite_departure,omitempty"`
	FavoriteDepartureCount int       `json:"favorite_departure_count"`
	SmoothestLandingRate   *float64  `json:"smoothest_landing_rate,omitempty"`
	SmoothestLandingFlight *string   `json:"smoothest_landing_flight,omitempty"`
	AverageLandingScore    *float64  `json:"average_landing_score,omitempty"`
	HighestAltitudeFt      *float64  `json:"highest_altitude_ft,omitempty"`
	LongestFlightNM        *float64  `json:"longest_flight_nm,omitempty"`
	LongestFlightID        *string   `json:"longest_flight_id,omitempty"`
	LastUpdated            time.Time `json:"last_updated"`
}

// TelemetryMessage is one telemetry sample on the wire.
type TelemetryMessage struct {
	PilotIdentity    string    `json:"pilot_identity"`
	FlightID         string    `json:"flight_id"`
	Timestamp        time.Time `json:"timestamp"`
	X                *float64  `json:"x,omitempty"`
	Y                *float64  `json:"y,omitempty"`
	AltitudeFt       *float64  `json:"altitude_ft,omitempty"`
	SpeedKts         *float64  `json:"speed_kts,omitempty"`
	Heading          *float64  `json:"heading,omitempty"`
	VerticalSpeedFPM *float64  `json:"vertical_speed_fpm,omitempty"`
	FlightPhase      string    `json:"flight_phase,omitempty"`
}

// Point converts the wire message into a telemetry row.
func (m *TelemetryMessage) Point() *TelemetryPoint {
	return &TelemetryPoint{
		FlightID:         m.FlightID,
		Timestamp:        m.Timestamp,
		X:                m.X,
		Y:                m.Y,
		AltitudeFt:       m.AltitudeFt,
		SpeedKts:         m.SpeedKts,
		Heading:          m.Heading,
		VerticalSpeedFPM: m.VerticalSpeedFPM,
		FlightPhase:      m.FlightPhase,
	}
}

// WaypointMessage is one landing-event report on the wire.
type WaypointMessage struct {
	PilotIdentity string   `json:"pilot_identity"`
	Waypoint      Waypoint `json:"waypoint"`
}

// ControlAction is a flight control event delivered alongside telemetry.
type ControlAction string

const (
	ControlStart    ControlAction = "start"
	ControlActivate ControlAction = "activate"
	ControlLanding  ControlAction = "landing"
	ControlComplete ControlAction = "complete"
	ControlStop     ControlAction = "stop"
)

// ControlMessage drives the flight lifecycle over the wire.
type ControlMessage struct {
	Action        ControlAction `json:"action"`
	PilotIdentity string        `json:"pilot_identity,omitempty"`
	Callsign      string        `json:"callsign,omitempty"`
	FlightID      string        `json:"flight_id,omitempty"`
}
