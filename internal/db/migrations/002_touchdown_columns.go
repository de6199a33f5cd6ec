package migrations

import "time"

// TouchdownIndexes adds the partial index the landing estimator's
// telemetry fallback scans (low-altitude approach/landing samples).
var TouchdownIndexes = &Migration{
	ID:   "002_touchdown_indexes",
	Name: "002_touchdown_indexes",
	UpSQL: `
		CREATE INDEX IF NOT EXISTS idx_telemetry_touchdown
			ON telemetry (flight_id, altitude_ft)
			WHERE altitude_ft < 100 AND flight_phase IN ('approach', 'landing');
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_telemetry_touchdown;
	`,
	CreatedAt: time.Now(),
}

// All lists every migration in apply order.
func All() []*Migration {
	return []*Migration{
		InitialSchema,
		TouchdownIndexes,
	}
}
