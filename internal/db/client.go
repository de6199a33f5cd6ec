package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used in tests.
func NewWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a transaction. The finalize and delete paths are the
// only multi-statement consumers.
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

const flightColumns = `
	id, user_id, pilot_identity, callsign, departure, arrival, route, aircraft,
	status, created_at, flight_start, flight_end, activated_at,
	controller_managed, share_token, waypoint_landing_rate, landed_runway,
	landed_airport, duration_minutes, total_distance_nm, max_altitude_ft,
	max_speed_kts, average_speed_kts, landing_rate_fpm, smoothness_score,
	landing_score`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlight(row rowScanner) (*types.Flight, error) {
	var f types.Flight
	var (
		flightStart, flightEnd, activatedAt          sql.NullTime
		shareToken, landedRunway, landedAirport      sql.NullString
		waypointRate, distance, maxAlt, maxSpeed     sql.NullFloat64
		avgSpeed, landingRate, smoothness, landScore sql.NullFloat64
		duration                                     sql.NullInt64
	)
	if err := row.Scan(
		&f.ID, &f.UserID, &f.PilotIdentity, &f.Callsign, &f.Departure,
		&f.Arrival, &f.Route, &f.Aircraft, &f.Status, &f.CreatedAt,
		&flightStart, &flightEnd, &activatedAt, &f.ControllerManaged,
		&shareToken, &waypointRate, &landedRunway, &landedAirport,
		&duration, &distance, &maxAlt, &maxSpeed, &avgSpeed,
		&landingRate, &smoothness, &landScore,
	); err != nil {
		return nil, err
	}

	f.FlightStart = nullTime(flightStart)
	f.FlightEnd = nullTime(flightEnd)
	f.ActivatedAt = nullTime(activatedAt)
	f.ShareToken = nullString(shareToken)
	f.WaypointLandingRate = nullFloat(waypointRate)
	f.LandedRunway = nullString(landedRunway)
	f.LandedAirport = nullString(landedAirport)
	if duration.Valid {
		d := int(duration.Int64)
		f.DurationMinutes = &d
	}
	f.TotalDistanceNM = nullFloat(distance)
	f.MaxAltitudeFt = nullFloat(maxAlt)
	f.MaxSpeedKts = nullFloat(maxSpeed)
	f.AverageSpeedKts = nullFloat(avgSpeed)
	f.LandingRateFPM = nullFloat(landingRate)
	f.SmoothnessScore = nullFloat(smoothness)
	f.LandingScore = nullFloat(landScore)
	return &f, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// CreateFlight inserts a new pending flight.
func (c *Client) CreateFlight(f *types.Flight) error {
	query := `
		INSERT INTO flights (
			id, user_id, pilot_identity, callsign, departure, arrival,
			route, aircraft, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := c.db.Exec(query,
		f.ID, f.UserID, f.PilotIdentity, f.Callsign, f.Departure,
		f.Arrival, f.Route, f.Aircraft, f.Status, f.CreatedAt,
	)
	return err
}

// GetFlight retrieves a flight by id. Returns (nil, nil) when absent.
func (c *Client) GetFlight(id string) (*types.Flight, error) {
	row := c.db.QueryRow(`SELECT`+flightColumns+` FROM flights WHERE id = $1`, id)
	f, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// GetFlightByShareToken retrieves a flight by its share token.
// Returns (nil, nil) when absent.
func (c *Client) GetFlightByShareToken(token string) (*types.Flight, error) {
	row := c.db.QueryRow(`SELECT`+flightColumns+` FROM flights WHERE share_token = $1`, token)
	f, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// GetFlightForUpdate loads a flight inside tx with a row lock, so the
// status guard holds against a concurrent finalize.
func (c *Client) GetFlightForUpdate(tx *sql.Tx, id string) (*types.Flight, error) {
	row := tx.QueryRow(`SELECT`+flightColumns+` FROM flights WHERE id = $1 FOR UPDATE`, id)
	f, err := scanFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return f, err
}

// SetShareToken persists a lazily generated share token.
func (c *Client) SetShareToken(flightID, token string) error {
	_, err := c.db.Exec(`UPDATE flights SET share_token = $1 WHERE id = $2`, token, flightID)
	return err
}

// SetWaypointLanding writes the waypoint-derived landing rate and runway
// tags onto the flight.
func (c *Client) SetWaypointLanding(flightID string, rate float64, runway, airport string) error {
	query := `
		UPDATE flights SET
			waypoint_landing_rate = $1,
			landed_runway = NULLIF($2, ''),
			landed_airport = NULLIF($3, '')
		WHERE id = $4
	`
	_, err := c.db.Exec(query, rate, runway, airport, flightID)
	return err
}

// ActivateFlight transitions a pending flight to active inside tx.
func (c *Client) ActivateFlight(tx *sql.Tx, flightID string, now time.Time) error {
	query := `
		UPDATE flights SET
			status = $1, flight_start = $2, activated_at = $2,
			controller_managed = TRUE
		WHERE id = $3
	`
	_, err := tx.Exec(query, types.StatusActive, now, flightID)
	return err
}

// FlightMetrics is the set of derived values written on completion.
type FlightMetrics struct {
	DurationMinutes int
	TotalDistanceNM float64
	MaxAltitudeFt   *float64
	MaxSpeedKts     *float64
	AverageSpeedKts *float64
	LandingRateFPM  *float64
	SmoothnessScore *float64
	LandingScore    *float64
}

// CompleteFlight writes the terminal status and derived metrics inside tx.
func (c *Client) CompleteFlight(tx *sql.Tx, flightID string, endedAt time.Time, m *FlightMetrics) error {
	query := `
		UPDATE flights SET
			status = $1, flight_end = $2, controller_managed = TRUE,
			duration_minutes = $3, total_distance_nm = $4,
			max_altitude_ft = $5, max_speed_kts = $6, average_speed_kts = $7,
			landing_rate_fpm = $8, smoothness_score = $9, landing_score = $10
		WHERE id = $11
	`
	_, err := tx.Exec(query,
		types.StatusCompleted, endedAt,
		m.DurationMinutes, m.TotalDistanceNM,
		nullableFloat(m.MaxAltitudeFt), nullableFloat(m.MaxSpeedKts),
		nullableFloat(m.AverageSpeedKts), nullableFloat(m.LandingRateFPM),
		nullableFloat(m.SmoothnessScore), nullableFloat(m.LandingScore),
		flightID,
	)
	return err
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullablePtrString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// DeleteFlightCascade removes telemetry, active state and the flight row
// inside tx.
func (c *Client) DeleteFlightCascade(tx *sql.Tx, flightID string) error {
	if _, err := tx.Exec(`DELETE FROM telemetry WHERE flight_id = $1`, flightID); err != nil {
		return fmt.Errorf("failed to delete telemetry: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM active_flights WHERE flight_id = $1`, flightID); err != nil {
		return fmt.Errorf("failed to delete active state: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM flights WHERE id = $1`, flightID); err != nil {
		return fmt.Errorf("failed to delete flight: %w", err)
	}
	return nil
}

// RecentCompletedFlights returns the newest completed flights for a user.
func (c *Client) RecentCompletedFlights(userID string, limit int) ([]*types.Flight, error) {
	query := `SELECT` + flightColumns + `
		FROM flights
		WHERE user_id = $1 AND status = $2
		ORDER BY flight_end DESC
		LIMIT $3`
	rows, err := c.db.Query(query, userID, types.StatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []*types.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// CompletedFlights returns every completed flight for a user, in
// completion order. The stats aggregator consumes this in full.
func (c *Client) CompletedFlights(userID string) ([]*types.Flight, error) {
	query := `SELECT` + flightColumns + `
		FROM flights
		WHERE user_id = $1 AND status = $2
		ORDER BY flight_end ASC`
	rows, err := c.db.Query(query, userID, types.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []*types.Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// MonthlyActivity is one month of a pilot's completed flying.
type MonthlyActivity struct {
	Month   string  `json:"month"`
	Flights int     `json:"flights"`
	Hours   float64 `json:"hours"`
}

// GetMonthlyActivity rolls up completed flights per calendar month over
// the trailing twelve months.
func (c *Client) GetMonthlyActivity(userID string) ([]MonthlyActivity, error) {
	query := `
		SELECT to_char(date_trunc('month', flight_end), 'YYYY-MM') AS month,
			COUNT(*),
			COALESCE(SUM(duration_minutes), 0) / 60.0
		FROM flights
		WHERE user_id = $1 AND status = $2
			AND flight_end >= date_trunc('month', NOW()) - INTERVAL '11 months'
		GROUP BY 1
		ORDER BY 1
	`
	rows, err := c.db.Query(query, userID, types.StatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []MonthlyActivity
	for rows.Next() {
		var m MonthlyActivity
		if err := rows.Scan(&m.Month, &m.Flights, &m.Hours); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

const activeFlightColumns = `
	pilot_identity, flight_id, callsign, altitude_ft, speed_kts, heading,
	x, y, current_phase, last_update, landing_detected,
	stationary_notification_sent, approach_altitudes, approach_timestamps,
	collected_waypoints`

func scanActiveFlight(row rowScanner) (*types.ActiveFlightState, error) {
	var s types.ActiveFlightState
	var (
		alt, speed, heading, x, y sql.NullFloat64
		altitudes                 pq.Float64Array
		timestamps                pq.Int64Array
		waypointsJSON             []byte
	)
	if err := row.Scan(
		&s.PilotIdentity, &s.FlightID, &s.Callsign, &alt, &speed, &heading,
		&x, &y, &s.CurrentPhase, &s.LastUpdate, &s.LandingDetected,
		&s.StationaryNotificationSent, &altitudes, &timestamps, &waypointsJSON,
	); err != nil {
		return nil, err
	}
	s.AltitudeFt = nullFloat(alt)
	s.SpeedKts = nullFloat(speed)
	s.Heading = nullFloat(heading)
	s.X = nullFloat(x)
	s.Y = nullFloat(y)
	s.ApproachAltitudes = altitudes
	s.ApproachTimestamps = timestamps
	if len(waypointsJSON) > 0 {
		if err := json.Unmarshal(waypointsJSON, &s.CollectedWaypoints); err != nil {
			return nil, fmt.Errorf("failed to decode waypoints: %w", err)
		}
	}
	return &s, nil
}

// UpsertActiveFlight creates or replaces the live state for a pilot
// identity. Starting a new flight overwrites the previous live state
// entirely, ring buffer and waypoints included.
func (c *Client) UpsertActiveFlight(s *types.ActiveFlightState) error {
	query := `
		INSERT INTO active_flights (
			pilot_identity, flight_id, callsign, current_phase, last_update,
			landing_detected, stationary_notification_sent,
			approach_altitudes, approach_timestamps, collected_waypoints
		) VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, '{}', '{}', '[]')
		ON CONFLICT (pilot_identity) DO UPDATE SET
			flight_id = EXCLUDED.flight_id,
			callsign = EXCLUDED.callsign,
			altitude_ft = NULL, speed_kts = NULL, heading = NULL,
			x = NULL, y = NULL,
			current_phase = EXCLUDED.current_phase,
			last_update = EXCLUDED.last_update,
			landing_detected = FALSE,
			stationary_notification_sent = FALSE,
			approach_altitudes = '{}',
			approach_timestamps = '{}',
			collected_waypoints = '[]'
	`
	_, err := c.db.Exec(query,
		s.PilotIdentity, s.FlightID, s.Callsign, s.CurrentPhase, s.LastUpdate,
	)
	return err
}

// GetActiveFlight retrieves the live state for a pilot identity.
// Returns (nil, nil) when absent.
func (c *Client) GetActiveFlight(pilotIdentity string) (*types.ActiveFlightState, error) {
	row := c.db.QueryRow(`SELECT`+activeFlightColumns+` FROM active_flights WHERE pilot_identity = $1`, pilotIdentity)
	s, err := scanActiveFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// GetActiveFlightByFlightID retrieves the live state pointing at a
// flight. Returns (nil, nil) when absent.
func (c *Client) GetActiveFlightByFlightID(flightID string) (*types.ActiveFlightState, error) {
	row := c.db.QueryRow(`SELECT`+activeFlightColumns+` FROM active_flights WHERE flight_id = $1`, flightID)
	s, err := scanActiveFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// GetActiveFlightByCallsign retrieves the live state for a callsign
// inside tx. Returns (nil, nil) when absent.
func (c *Client) GetActiveFlightByCallsign(tx *sql.Tx, callsign string) (*types.ActiveFlightState, error) {
	row := tx.QueryRow(`SELECT`+activeFlightColumns+` FROM active_flights WHERE callsign = $1`, callsign)
	s, err := scanActiveFlight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// UpdateActiveSnapshot refreshes the kinematic snapshot for the live
// state pointing at flightID. Reports whether such a state exists; a
// miss is not an error, this is the high-frequency write path.
func (c *Client) UpdateActiveSnapshot(flightID string, p *types.TelemetryPoint) (bool, error) {
	query := `
		UPDATE active_flights SET
			altitude_ft = COALESCE($1, altitude_ft),
			speed_kts = COALESCE($2, speed_kts),
			heading = COALESCE($3, heading),
			x = COALESCE($4, x),
			y = COALESCE($5, y),
			current_phase = COALESCE(NULLIF($6, ''), current_phase),
			last_update = $7
		WHERE flight_id = $8
	`
	res, err := c.db.Exec(query,
		nullableFloat(p.AltitudeFt), nullableFloat(p.SpeedKts),
		nullableFloat(p.Heading), nullableFloat(p.X), nullableFloat(p.Y),
		p.FlightPhase, p.Timestamp, flightID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendApproachSample appends one altitude/timestamp pair to the
// parallel ring buffer arrays, then trims to the newest
// ApproachWindowSize entries. Two deliberate statements, append first: a
// crash between them may transiently leave one extra entry, never an
// unbounded buffer.
func (c *Client) AppendApproachSample(pilotIdentity string, altitude float64, timestamp int64) error {
	appendQuery := `
		UPDATE active_flights SET
			approach_altitudes = array_append(approach_altitudes, $1),
			approach_timestamps = array_append(approach_timestamps, $2)
		WHERE pilot_identity = $3
	`
	if _, err := c.db.Exec(appendQuery, altitude, timestamp, pilotIdentity); err != nil {
		return fmt.Errorf("failed to append approach sample: %w", err)
	}

	trimQuery := `
		UPDATE active_flights SET
			approach_altitudes = approach_altitudes[GREATEST(array_length(approach_altitudes, 1) - $1 + 1, 1):array_length(approach_altitudes, 1)],
			approach_timestamps = approach_timestamps[GREATEST(array_length(approach_timestamps, 1) - $1 + 1, 1):array_length(approach_timestamps, 1)]
		WHERE pilot_identity = $2 AND array_length(approach_altitudes, 1) > $1
	`
	if _, err := c.db.Exec(trimQuery, types.ApproachWindowSize, pilotIdentity); err != nil {
		return fmt.Errorf("failed to trim approach samples: %w", err)
	}
	return nil
}

// AppendWaypoint appends a landing-event report to the collected
// waypoints. Reports whether a live state existed for the pilot.
func (c *Client) AppendWaypoint(pilotIdentity string, w *types.Waypoint) (bool, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return false, fmt.Errorf("failed to encode waypoint: %w", err)
	}
	query := `
		UPDATE active_flights SET
			collected_waypoints = collected_waypoints || $1::jsonb,
			landing_detected = TRUE
		WHERE pilot_identity = $2
	`
	res, err := c.db.Exec(query, data, pilotIdentity)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteActiveFlight removes the live state for a pilot identity.
func (c *Client) DeleteActiveFlight(pilotIdentity string) error {
	_, err := c.db.Exec(`DELETE FROM active_flights WHERE pilot_identity = $1`, pilotIdentity)
	return err
}

// DeleteActiveFlightTx removes the live state inside tx.
func (c *Client) DeleteActiveFlightTx(tx *sql.Tx, pilotIdentity string) error {
	_, err := tx.Exec(`DELETE FROM active_flights WHERE pilot_identity = $1`, pilotIdentity)
	return err
}

// MarkStationaryFlights flags live states that have sat below taxi speed
// since the cutoff. Returns how many rows were newly flagged.
func (c *Client) MarkStationaryFlights(cutoff time.Time) (int64, error) {
	query := `
		UPDATE active_flights SET stationary_notification_sent = TRUE
		WHERE speed_kts IS NOT NULL AND speed_kts < 1
			AND last_update < $1
			AND NOT stationary_notification_sent
	`
	res, err := c.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertTelemetry appends one telemetry sample. Append-only; rows are
// only ever removed by cascading flight deletion.
func (c *Client) InsertTelemetry(p *types.TelemetryPoint) error {
	query := `
		INSERT INTO telemetry (
			flight_id, ts, x, y, altitude_ft, speed_kts, heading,
			vertical_speed_fpm, flight_phase
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.Exec(query,
		p.FlightID, p.Timestamp,
		nullableFloat(p.X), nullableFloat(p.Y),
		nullableFloat(p.AltitudeFt), nullableFloat(p.SpeedKts),
		nullableFloat(p.Heading), nullableFloat(p.VerticalSpeedFPM),
		p.FlightPhase,
	)
	return err
}

const telemetryColumns = `flight_id, ts, x, y, altitude_ft, speed_kts, heading, vertical_speed_fpm, flight_phase`

func scanTelemetryRows(rows *sql.Rows) ([]*types.TelemetryPoint, error) {
	var points []*types.TelemetryPoint
	for rows.Next() {
		var p types.TelemetryPoint
		var x, y, alt, speed, heading, vs sql.NullFloat64
		var phase sql.NullString
		if err := rows.Scan(&p.FlightID, &p.Timestamp, &x, &y, &alt, &speed, &heading, &vs, &phase); err != nil {
			return nil, err
		}
		p.X = nullFloat(x)
		p.Y = nullFloat(y)
		p.AltitudeFt = nullFloat(alt)
		p.SpeedKts = nullFloat(speed)
		p.Heading = nullFloat(heading)
		p.VerticalSpeedFPM = nullFloat(vs)
		if phase.Valid {
			p.FlightPhase = phase.String
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

// TelemetryForFlight loads the full ordered telemetry sequence for a
// flight inside tx. The finalize computation consumes this once.
func (c *Client) TelemetryForFlight(tx *sql.Tx, flightID string) ([]*types.TelemetryPoint, error) {
	rows, err := tx.Query(`SELECT `+telemetryColumns+` FROM telemetry WHERE flight_id = $1 ORDER BY ts ASC`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTelemetryRows(rows)
}

// LiveTelemetryForFlight loads the ordered telemetry for an in-progress
// flight outside any transaction, for the live view.
func (c *Client) LiveTelemetryForFlight(flightID string) ([]*types.TelemetryPoint, error) {
	rows, err := c.db.Query(`SELECT `+telemetryColumns+` FROM telemetry WHERE flight_id = $1 ORDER BY ts ASC`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTelemetryRows(rows)
}

// GetPilotStats retrieves the cached stats row for a user.
// Returns (nil, nil) when absent.
func (c *Client) GetPilotStats(userID string) (*types.PilotStats, error) {
	query := `
		SELECT user_id, total_flights, total_hours, total_flight_minutes,
			total_distance_nm, favorite_aircraft, favorite_aircraft_count,
			favorite_departure, favorite_departure_count,
			smoothest_landing_rate, smoothest_landing_flight,
			average_landing_score, highest_altitude_ft,
			longest_flight_nm, longest_flight_id, last_updated
		FROM stats_cache WHERE user_id = $1
	`
	row := c.db.QueryRow(query, userID)
	var s types.PilotStats
	var (
		favAircraft, favDeparture, smoothestFlight, longestID sql.NullString
		smoothestRate, avgScore, highestAlt, longestNM        sql.NullFloat64
	)
	err := row.Scan(
		&s.UserID, &s.TotalFlights, &s.TotalHours, &s.TotalFlightMinutes,
		&s.TotalDistanceNM, &favAircraft, &s.FavoriteAircraftCount,
		&favDeparture, &s.FavoriteDepartureCount,
		&smoothestRate, &smoothestFlight, &avgScore, &highestAlt,
		&longestNM, &longestID, &s.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.FavoriteAircraft = nullString(favAircraft)
	s.FavoriteDeparture = nullString(favDeparture)
	s.SmoothestLandingRate = nullFloat(smoothestRate)
	s.SmoothestLandingFlight = nullString(smoothestFlight)
	s.AverageLandingScore = nullFloat(avgScore)
	s.HighestAltitudeFt = nullFloat(highestAlt)
	s.LongestFlightNM = nullFloat(longestNM)
	s.LongestFlightID = nullString(longestID)
	return &s, nil
}

// UpsertPilotStats writes a full recomputed stats row, creating it with
// the insert when absent.
func (c *Client) UpsertPilotStats(s *types.PilotStats) error {
	query := `
		INSERT INTO stats_cache (
			user_id, total_flights, total_hours, total_flight_minutes,
			total_distance_nm, favorite_aircraft, favorite_aircraft_count,
			favorite_departure, favorite_departure_count,
			smoothest_landing_rate, smoothest_landing_flight,
			average_landing_score, highest_altitude_ft,
			longest_flight_nm, longest_flight_id, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id) DO UPDATE SET
			total_flights = EXCLUDED.total_flights,
			total_hours = EXCLUDED.total_hours,
			total_flight_minutes = EXCLUDED.total_flight_minutes,
			total_distance_nm = EXCLUDED.total_distance_nm,
			favorite_aircraft = EXCLUDED.favorite_aircraft,
			favorite_aircraft_count = EXCLUDED.favorite_aircraft_count,
			favorite_departure = EXCLUDED.favorite_departure,
			favorite_departure_count = EXCLUDED.favorite_departure_count,
			smoothest_landing_rate = EXCLUDED.smoothest_landing_rate,
			smoothest_landing_flight = EXCLUDED.smoothest_landing_flight,
			average_landing_score = EXCLUDED.average_landing_score,
			highest_altitude_ft = EXCLUDED.highest_altitude_ft,
			longest_flight_nm = EXCLUDED.longest_flight_nm,
			longest_flight_id = EXCLUDED.longest_flight_id,
			last_updated = EXCLUDED.last_updated
	`
	_, err := c.db.Exec(query,
		s.UserID, s.TotalFlights, s.TotalHours, s.TotalFlightMinutes,
		s.TotalDistanceNM,
		nullablePtrString(s.FavoriteAircraft), s.FavoriteAircraftCount,
		nullablePtrString(s.FavoriteDeparture), s.FavoriteDepartureCount,
		nullableFloat(s.SmoothestLandingRate), nullablePtrString(s.SmoothestLandingFlight),
		nullableFloat(s.AverageLandingScore), nullableFloat(s.HighestAltitudeFt),
		nullableFloat(s.LongestFlightNM), nullablePtrString(s.LongestFlightID),
		s.LastUpdated,
	)
	return err
}
