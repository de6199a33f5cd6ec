package migrations

import "time"

// InitialSchema creates the flight tracking schema.
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Permanent flight records
		CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			pilot_identity TEXT NOT NULL,
			callsign TEXT NOT NULL,
			departure TEXT NOT NULL DEFAULT '',
			arrival TEXT NOT NULL DEFAULT '',
			route TEXT NOT NULL DEFAULT '',
			aircraft TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL,
			flight_start TIMESTAMPTZ,
			flight_end TIMESTAMPTZ,
			activated_at TIMESTAMPTZ,
			controller_managed BOOLEAN NOT NULL DEFAULT FALSE,
			share_token TEXT UNIQUE,
			waypoint_landing_rate DOUBLE PRECISION,
			landed_runway TEXT,
			landed_airport TEXT,
			duration_minutes INTEGER,
			total_distance_nm DOUBLE PRECISION,
			max_altitude_ft DOUBLE PRECISION,
			max_speed_kts DOUBLE PRECISION,
			average_speed_kts DOUBLE PRECISION,
			landing_rate_fpm DOUBLE PRECISION,
			smoothness_score DOUBLE PRECISION,
			landing_score DOUBLE PRECISION
		);

		CREATE INDEX IF NOT EXISTS idx_flights_user_id ON flights (user_id);
		CREATE INDEX IF NOT EXISTS idx_flights_callsign ON flights (callsign);
		CREATE INDEX IF NOT EXISTS idx_flights_status ON flights (status);
		CREATE INDEX IF NOT EXISTS idx_flights_flight_end ON flights (flight_end);

		-- One live row per pilot identity
		CREATE TABLE IF NOT EXISTS active_flights (
			pilot_identity TEXT PRIMARY KEY,
			flight_id TEXT NOT NULL,
			callsign TEXT NOT NULL,
			altitude_ft DOUBLE PRECISION,
			speed_kts DOUBLE PRECISION,
			heading DOUBLE PRECISION,
			x DOUBLE PRECISION,
			y DOUBLE PRECISION,
			current_phase TEXT NOT NULL DEFAULT '',
			last_update TIMESTAMPTZ NOT NULL,
			landing_detected BOOLEAN NOT NULL DEFAULT FALSE,
			stationary_notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
			approach_altitudes DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
			approach_timestamps BIGINT[] NOT NULL DEFAULT '{}',
			collected_waypoints JSONB NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_active_flights_callsign ON active_flights (callsign);
		CREATE INDEX IF NOT EXISTS idx_active_flights_flight_id ON active_flights (flight_id);

		-- Append-only telemetry samples
		CREATE TABLE IF NOT EXISTS telemetry (
			flight_id TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			x DOUBLE PRECISION,
			y DOUBLE PRECISION,
			altitude_ft DOUBLE PRECISION,
			speed_kts DOUBLE PRECISION,
			heading DOUBLE PRECISION,
			vertical_speed_fpm DOUBLE PRECISION,
			flight_phase TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_telemetry_flight_ts ON telemetry (flight_id, ts);

		-- Cached per-user statistics
		CREATE TABLE IF NOT EXISTS stats_cache (
			user_id TEXT PRIMARY KEY,
			total_flights INTEGER NOT NULL DEFAULT 0,
			total_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_flight_minutes INTEGER NOT NULL DEFAULT 0,
			total_distance_nm DOUBLE PRECISION NOT NULL DEFAULT 0,
			favorite_aircraft TEXT,
			favorite_aircraft_count INTEGER NOT NULL DEFAULT 0,
			favorite_departure TEXT,
			favorite_departure_count INTEGER NOT NULL DEFAULT 0,
			smoothest_landing_rate DOUBLE PRECISION,
			smoothest_landing_flight TEXT,
			average_landing_score DOUBLE PRECISION,
			highest_altitude_ft DOUBLE PRECISION,
			longest_flight_nm DOUBLE PRECISION,
			longest_flight_id TEXT,
			last_updated TIMESTAMPTZ NOT NULL
		);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS stats_cache;
		DROP TABLE IF EXISTS telemetry;
		DROP TABLE IF EXISTS active_flights;
		DROP TABLE IF EXISTS flights;
	`,
	CreatedAt: time.Now(),
}
