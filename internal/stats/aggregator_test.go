package stats

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

var flightCols = []string{
	"id", "user_id", "pilot_identity", "callsign", "departure", "arrival",
	"route", "aircraft", "status", "created_at", "flight_start",
	"flight_end", "activated_at", "controller_managed", "share_token",
	"waypoint_landing_rate", "landed_runway", "landed_airport",
	"duration_minutes", "total_distance_nm", "max_altitude_ft",
	"max_speed_kts", "average_speed_kts", "landing_rate_fpm",
	"smoothness_score", "landing_score",
}

func newTestAggregator(t *testing.T) (*Aggregator, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewAggregator(db.NewWithDB(mockDB), logger.NewNop()), mock
}

func TestRecompute(t *testing.T) {
	agg, mock := newTestAggregator(t)

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }
	created := now.Add(-48 * time.Hour)

	completed := func(id, departure, aircraft string, minutes interface{}, distance, rate, score, maxAlt interface{}) []driver.Value {
		return []driver.Value{
			id, "user-1", "pilot-1", "BAW123", departure, "EGCC", "DCT", aircraft,
			"completed", created, created, created.Add(time.Hour), created, true, nil,
			nil, nil, nil, minutes, distance, maxAlt, nil, nil, rate, nil, score,
		}
	}

	rows := sqlmock.NewRows(flightCols)
	rows.AddRow(completed("fA", "EGLL", "A320", 60, 100.5, -150.0, 90.0, 35000.0)...)
	rows.AddRow(completed("fB", "KJFK", "A320", 30, 250.25, -90.0, 100.0, 37000.0)...)
	rows.AddRow(completed("fC", "EGLL", "B738", nil, nil, nil, nil, nil)...)

	mock.ExpectQuery(`FROM flights\s+WHERE user_id = \$1 AND status = \$2\s+ORDER BY flight_end ASC`).
		WithArgs("user-1", "completed").
		WillReturnRows(rows)

	mock.ExpectExec(`INSERT INTO stats_cache`).
		WithArgs(
			"user-1", 3, 1.5, 90, 350.75,
			"A320", 2, "EGLL", 2,
			-90.0, "fB", 95.0, 37000.0,
			250.25, "fB", now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := agg.Recompute("user-1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if s.TotalFlights != 3 {
		t.Errorf("TotalFlights = %d, want 3", s.TotalFlights)
	}
	if s.TotalHours != 1.5 {
		t.Errorf("TotalHours = %v, want 1.5", s.TotalHours)
	}
	if s.FavoriteAircraft == nil || *s.FavoriteAircraft != "A320" {
		t.Errorf("FavoriteAircraft = %v, want A320", s.FavoriteAircraft)
	}
	if s.SmoothestLandingRate == nil || *s.SmoothestLandingRate != -90 {
		t.Errorf("SmoothestLandingRate = %v, want -90", s.SmoothestLandingRate)
	}
	if s.SmoothestLandingFlight == nil || *s.SmoothestLandingFlight != "fB" {
		t.Errorf("SmoothestLandingFlight = %v, want fB", s.SmoothestLandingFlight)
	}
	if s.AverageLandingScore == nil || *s.AverageLandingScore != 95 {
		t.Errorf("AverageLandingScore = %v, want 95", s.AverageLandingScore)
	}
	if s.LongestFlightID == nil || *s.LongestFlightID != "fB" {
		t.Errorf("LongestFlightID = %v, want fB", s.LongestFlightID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRecomputeNoFlights(t *testing.T) {
	agg, mock := newTestAggregator(t)

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	mock.ExpectQuery(`FROM flights\s+WHERE user_id = \$1 AND status = \$2\s+ORDER BY flight_end ASC`).
		WithArgs("user-2", "completed").
		WillReturnRows(sqlmock.NewRows(flightCols))

	// Zeroed row is still written, so the next profile read is a cache hit.
	mock.ExpectExec(`INSERT INTO stats_cache`).
		WithArgs(
			"user-2", 0, 0.0, 0, 0.0,
			nil, 0, nil, 0,
			nil, nil, nil, nil,
			nil, nil, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s, err := agg.Recompute("user-2")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	if s.TotalFlights != 0 || s.TotalHours != 0 {
		t.Errorf("unexpected stats for empty history: %+v", s)
	}
}
