package tracker

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/testutils"
	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// fakeStore records calls and returns scripted results.
type fakeStore struct {
	upserted        []*types.ActiveFlightState
	inserted        []*types.TelemetryPoint
	approachSamples []float64
	waypoints       []*types.Waypoint
	deleted         []string

	snapshotUpdated bool
	waypointFound   bool
	insertErr       error
	snapshotErr     error
	stationaryCount int64
}

func (s *fakeStore) UpsertActiveFlight(state *types.ActiveFlightState) error {
	s.upserted = append(s.upserted, state)
	return nil
}

func (s *fakeStore) GetActiveFlight(pilotIdentity string) (*types.ActiveFlightState, error) {
	return nil, nil
}

func (s *fakeStore) UpdateActiveSnapshot(flightID string, p *types.TelemetryPoint) (bool, error) {
	return s.snapshotUpdated, s.snapshotErr
}

func (s *fakeStore) AppendApproachSample(pilotIdentity string, altitude float64, timestamp int64) error {
	s.approachSamples = append(s.approachSamples, altitude)
	return nil
}

func (s *fakeStore) AppendWaypoint(pilotIdentity string, w *types.Waypoint) (bool, error) {
	if s.waypointFound {
		s.waypoints = append(s.waypoints, w)
	}
	return s.waypointFound, nil
}

func (s *fakeStore) DeleteActiveFlight(pilotIdentity string) error {
	s.deleted = append(s.deleted, pilotIdentity)
	return nil
}

func (s *fakeStore) InsertTelemetry(p *types.TelemetryPoint) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, p)
	return nil
}

func (s *fakeStore) MarkStationaryFlights(cutoff time.Time) (int64, error) {
	return s.stationaryCount, nil
}

// fakeCache holds cached states in a map.
type fakeCache struct {
	states map[string]*types.ActiveFlightState
}

func newFakeCache() *fakeCache {
	return &fakeCache{states: make(map[string]*types.ActiveFlightState)}
}

func (c *fakeCache) StoreActiveFlight(ctx context.Context, s *types.ActiveFlightState) error {
	cp := *s
	c.states[s.PilotIdentity] = &cp
	return nil
}

func (c *fakeCache) GetActiveFlight(ctx context.Context, pilotIdentity string) (*types.ActiveFlightState, error) {
	return c.states[pilotIdentity], nil
}

func (c *fakeCache) DeleteActiveFlight(ctx context.Context, pilotIdentity string) error {
	delete(c.states, pilotIdentity)
	return nil
}

func newTestTracker(store *fakeStore, cache *fakeCache) *Tracker {
	return New(store, cache, logger.NewNop())
}

func TestStartTracking(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	trk := newTestTracker(store, cache)

	if err := trk.StartTracking(context.Background(), "pilot-1", "BAW123", "f1"); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("upserted %d states, want 1", len(store.upserted))
	}
	state := store.upserted[0]
	if state.PilotIdentity != "pilot-1" || state.FlightID != "f1" || state.Callsign != "BAW123" {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.CurrentPhase != "preflight" {
		t.Errorf("CurrentPhase = %q, want preflight", state.CurrentPhase)
	}
	if cache.states["pilot-1"] == nil {
		t.Error("live state not cached")
	}
}

func TestRecordTelemetry(t *testing.T) {
	store := &fakeStore{snapshotUpdated: true}
	cache := newFakeCache()
	trk := newTestTracker(store, cache)

	msg := testutils.MockTelemetryMessage("pilot-1", "f1")
	if err := trk.RecordTelemetry(context.Background(), msg); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d points, want 1", len(store.inserted))
	}
	if got := atomic.LoadUint64(&trk.Metrics().TelemetryStored); got != 1 {
		t.Errorf("TelemetryStored = %d, want 1", got)
	}
	if got := atomic.LoadUint64(&trk.Metrics().SnapshotMisses); got != 0 {
		t.Errorf("SnapshotMisses = %d, want 0", got)
	}
}

func TestRecordTelemetrySnapshotMiss(t *testing.T) {
	store := &fakeStore{snapshotUpdated: false}
	trk := newTestTracker(store, newFakeCache())

	msg := testutils.MockTelemetryMessage("pilot-1", "f-gone")
	if err := trk.RecordTelemetry(context.Background(), msg); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}

	// The sample is still stored; only the snapshot refresh is skipped.
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d points, want 1", len(store.inserted))
	}
	if got := atomic.LoadUint64(&trk.Metrics().SnapshotMisses); got != 1 {
		t.Errorf("SnapshotMisses = %d, want 1", got)
	}
}

func TestRecordTelemetryInsertFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	trk := newTestTracker(store, newFakeCache())

	msg := testutils.MockTelemetryMessage("pilot-1", "f1")
	if err := trk.RecordTelemetry(context.Background(), msg); err == nil {
		t.Fatal("RecordTelemetry() expected error")
	}
	if got := atomic.LoadUint64(&trk.Metrics().TelemetryFailed); got != 1 {
		t.Errorf("TelemetryFailed = %d, want 1", got)
	}
}

func TestRecordTelemetryApproachFeedsRingBuffer(t *testing.T) {
	store := &fakeStore{snapshotUpdated: true}
	trk := newTestTracker(store, newFakeCache())

	msg := testutils.MockTelemetryMessage("pilot-1", "f1")
	msg.FlightPhase = "approach"
	msg.AltitudeFt = testutils.F(850)
	if err := trk.RecordTelemetry(context.Background(), msg); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}

	if len(store.approachSamples) != 1 || store.approachSamples[0] != 850 {
		t.Errorf("approachSamples = %v, want [850]", store.approachSamples)
	}

	// Cruise samples never touch the ring buffer.
	msg2 := testutils.MockTelemetryMessage("pilot-1", "f1")
	msg2.FlightPhase = "cruise"
	if err := trk.RecordTelemetry(context.Background(), msg2); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}
	if len(store.approachSamples) != 1 {
		t.Errorf("approachSamples grew on cruise sample: %v", store.approachSamples)
	}
}

func TestRecordTelemetryRefreshesCachedSnapshot(t *testing.T) {
	store := &fakeStore{snapshotUpdated: true}
	cache := newFakeCache()
	trk := newTestTracker(store, cache)

	if err := trk.StartTracking(context.Background(), "pilot-1", "BAW123", "f1"); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}

	msg := testutils.MockTelemetryMessage("pilot-1", "f1")
	msg.AltitudeFt = testutils.F(31000)
	msg.FlightPhase = "cruise"
	if err := trk.RecordTelemetry(context.Background(), msg); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}

	cached := cache.states["pilot-1"]
	if cached == nil {
		t.Fatal("cached state missing")
	}
	if cached.AltitudeFt == nil || *cached.AltitudeFt != 31000 {
		t.Errorf("cached AltitudeFt = %v, want 31000", cached.AltitudeFt)
	}
	if cached.CurrentPhase != "cruise" {
		t.Errorf("cached CurrentPhase = %q, want cruise", cached.CurrentPhase)
	}

	// A sample for a different flight id must not leak into the cache.
	other := testutils.MockTelemetryMessage("pilot-1", "f2")
	other.AltitudeFt = testutils.F(1000)
	if err := trk.RecordTelemetry(context.Background(), other); err != nil {
		t.Fatalf("RecordTelemetry() error = %v", err)
	}
	if *cache.states["pilot-1"].AltitudeFt != 31000 {
		t.Error("cache updated from mismatched flight id")
	}
}

func TestRecordWaypoint(t *testing.T) {
	store := &fakeStore{waypointFound: true}
	trk := newTestTracker(store, newFakeCache())

	msg := &types.WaypointMessage{
		PilotIdentity: "pilot-1",
		Waypoint:      testutils.MockWaypoint(1700000000, -240, "27R", "EGLL"),
	}
	if err := trk.RecordWaypoint(context.Background(), msg); err != nil {
		t.Fatalf("RecordWaypoint() error = %v", err)
	}
	if len(store.waypoints) != 1 {
		t.Fatalf("stored %d waypoints, want 1", len(store.waypoints))
	}
	if got := atomic.LoadUint64(&trk.Metrics().WaypointsStored); got != 1 {
		t.Errorf("WaypointsStored = %d, want 1", got)
	}
}

func TestRecordWaypointOrphan(t *testing.T) {
	store := &fakeStore{waypointFound: false}
	trk := newTestTracker(store, newFakeCache())

	msg := &types.WaypointMessage{
		PilotIdentity: "ghost",
		Waypoint:      testutils.MockWaypoint(1700000000, -240, "", ""),
	}
	if err := trk.RecordWaypoint(context.Background(), msg); err != nil {
		t.Fatalf("RecordWaypoint() error = %v", err)
	}
	if got := atomic.LoadUint64(&trk.Metrics().WaypointsOrphaned); got != 1 {
		t.Errorf("WaypointsOrphaned = %d, want 1", got)
	}
}

func TestRecordWaypointMalformedSpeed(t *testing.T) {
	store := &fakeStore{waypointFound: true}
	trk := newTestTracker(store, newFakeCache())

	msg := &types.WaypointMessage{
		PilotIdentity: "pilot-1",
		Waypoint:      types.Waypoint{Timestamp: 1700000000, LandingSpeed: math.NaN()},
	}
	if err := trk.RecordWaypoint(context.Background(), msg); err != nil {
		t.Fatalf("RecordWaypoint() error = %v", err)
	}
	if len(store.waypoints) != 0 {
		t.Errorf("stored %d waypoints, want 0", len(store.waypoints))
	}
}

func TestStopTracking(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	trk := newTestTracker(store, cache)

	if err := trk.StartTracking(context.Background(), "pilot-1", "BAW123", "f1"); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}
	if err := trk.StopTracking(context.Background(), "pilot-1"); err != nil {
		t.Fatalf("StopTracking() error = %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != "pilot-1" {
		t.Errorf("deleted = %v, want [pilot-1]", store.deleted)
	}
	if cache.states["pilot-1"] != nil {
		t.Error("cached state survived StopTracking")
	}
}

func TestSanitize(t *testing.T) {
	ts := time.Now().UTC()

	tests := []struct {
		name  string
		in    *types.TelemetryPoint
		check func(t *testing.T, p *types.TelemetryPoint)
	}{
		{
			name: "NaN position dropped",
			in:   &types.TelemetryPoint{Timestamp: ts, X: testutils.F(math.NaN()), Y: testutils.F(100)},
			check: func(t *testing.T, p *types.TelemetryPoint) {
				if p.X != nil {
					t.Errorf("X = %v, want nil", *p.X)
				}
				if p.Y == nil || *p.Y != 100 {
					t.Errorf("Y = %v, want 100", p.Y)
				}
			},
		},
		{
			name: "negative speed dropped",
			in:   &types.TelemetryPoint{Timestamp: ts, SpeedKts: testutils.F(-5)},
			check: func(t *testing.T, p *types.TelemetryPoint) {
				if p.SpeedKts != nil {
					t.Errorf("SpeedKts = %v, want nil", *p.SpeedKts)
				}
			},
		},
		{
			name: "absurd altitude dropped",
			in:   &types.TelemetryPoint{Timestamp: ts, AltitudeFt: testutils.F(900000)},
			check: func(t *testing.T, p *types.TelemetryPoint) {
				if p.AltitudeFt != nil {
					t.Errorf("AltitudeFt = %v, want nil", *p.AltitudeFt)
				}
			},
		},
		{
			name: "heading wrapped into range",
			in:   &types.TelemetryPoint{Timestamp: ts, Heading: testutils.F(-90)},
			check: func(t *testing.T, p *types.TelemetryPoint) {
				if p.Heading == nil || *p.Heading != 270 {
					t.Errorf("Heading = %v, want 270", p.Heading)
				}
			},
		},
		{
			name: "valid values untouched",
			in:   &types.TelemetryPoint{Timestamp: ts, AltitudeFt: testutils.F(35000), SpeedKts: testutils.F(450)},
			check: func(t *testing.T, p *types.TelemetryPoint) {
				if p.AltitudeFt == nil || *p.AltitudeFt != 35000 {
					t.Errorf("AltitudeFt = %v, want 35000", p.AltitudeFt)
				}
				if p.SpeedKts == nil || *p.SpeedKts != 450 {
					t.Errorf("SpeedKts = %v, want 450", p.SpeedKts)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, sanitize(tt.in))
		})
	}
}
