package scoring

import (
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/testutils"
	"github.com/cephie-studios/pfcontrol/internal/types"
)

func TestLandingRateWaypointPrecedence(t *testing.T) {
	waypointRate := -250.0
	altitudes := []float64{1000, 500, 100}
	timestamps := []int64{0, 30, 60}

	rate, source := LandingRate(&waypointRate, altitudes, timestamps, nil)
	if rate == nil {
		t.Fatal("LandingRate() returned nil rate")
	}
	if *rate != -250 {
		t.Errorf("LandingRate() = %v, want -250", *rate)
	}
	if source != SourceWaypoint {
		t.Errorf("LandingRate() source = %v, want %v", source, SourceWaypoint)
	}
}

func TestApproachSlopeRate(t *testing.T) {
	tests := []struct {
		name       string
		altitudes  []float64
		timestamps []int64
		wantRate   float64
		wantOK     bool
	}{
		{
			name:       "steady descent",
			altitudes:  []float64{500, 300, 100},
			timestamps: []int64{0, 30, 60},
			wantRate:   -400,
			wantOK:     true,
		},
		{
			name:       "shallow descent rounds to whole fpm",
			altitudes:  []float64{250, 100},
			timestamps: []int64{0, 70},
			wantRate:   -129,
			wantOK:     true,
		},
		{
			name:       "climbing samples give positive rate",
			altitudes:  []float64{100, 500},
			timestamps: []int64{0, 60},
			wantRate:   400,
			wantOK:     true,
		},
		{
			name:       "single sample",
			altitudes:  []float64{500},
			timestamps: []int64{0},
			wantOK:     false,
		},
		{
			name:       "zero time span",
			altitudes:  []float64{500, 100},
			timestamps: []int64{60, 60},
			wantOK:     false,
		},
		{
			name:       "backwards timestamps",
			altitudes:  []float64{500, 100},
			timestamps: []int64{60, 0},
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := approachSlopeRate(tt.altitudes, tt.timestamps)
			if ok != tt.wantOK {
				t.Fatalf("approachSlopeRate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rate != tt.wantRate {
				t.Errorf("approachSlopeRate() = %v, want %v", rate, tt.wantRate)
			}
		})
	}
}

func TestTelemetryTouchdownRate(t *testing.T) {
	base := time.Now().UTC()

	landing := func(alt, vs float64) *types.TelemetryPoint {
		return &types.TelemetryPoint{
			FlightID:         "f1",
			Timestamp:        base,
			AltitudeFt:       testutils.F(alt),
			VerticalSpeedFPM: testutils.F(vs),
			FlightPhase:      "landing",
		}
	}

	tests := []struct {
		name     string
		points   []*types.TelemetryPoint
		wantRate float64
		wantOK   bool
	}{
		{
			name:     "lowest qualifying sample wins",
			points:   []*types.TelemetryPoint{landing(80, -300), landing(20, -180), landing(50, -400)},
			wantRate: -180,
			wantOK:   true,
		},
		{
			name: "samples at or above threshold excluded",
			points: []*types.TelemetryPoint{
				landing(100, -300),
				landing(5000, -800),
			},
			wantOK: false,
		},
		{
			name: "wrong phase excluded",
			points: []*types.TelemetryPoint{
				{FlightID: "f1", Timestamp: base, AltitudeFt: testutils.F(50), VerticalSpeedFPM: testutils.F(-200), FlightPhase: "cruise"},
			},
			wantOK: false,
		},
		{
			name: "missing vertical speed excluded",
			points: []*types.TelemetryPoint{
				{FlightID: "f1", Timestamp: base, AltitudeFt: testutils.F(50), FlightPhase: "landing"},
			},
			wantOK: false,
		},
		{
			name:     "equal altitude keeps first",
			points:   []*types.TelemetryPoint{landing(30, -150), landing(30, -500)},
			wantRate: -150,
			wantOK:   true,
		},
		{
			name:   "no samples",
			points: nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, ok := telemetryTouchdownRate(tt.points)
			if ok != tt.wantOK {
				t.Fatalf("telemetryTouchdownRate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rate != tt.wantRate {
				t.Errorf("telemetryTouchdownRate() = %v, want %v", rate, tt.wantRate)
			}
		})
	}
}

func TestLandingRateNoSource(t *testing.T) {
	rate, source := LandingRate(nil, nil, nil, nil)
	if rate != nil {
		t.Errorf("LandingRate() = %v, want nil", *rate)
	}
	if source != SourceNone {
		t.Errorf("LandingRate() source = %v, want %v", source, SourceNone)
	}
}

func TestLandingScore(t *testing.T) {
	tests := []struct {
		rate float64
		want float64
	}{
		{0, 100},
		{-100, 100},
		{100, 100},
		{-150, 90},
		{-200, 90},
		{250, 80},
		{-350, 70},
		{450, 60},
		{-550, 50},
		{650, 40},
		{-750, 30},
		{-800, 30},
		{-801, 20},
		{-1500, 20},
	}

	for _, tt := range tests {
		if got := LandingScore(tt.rate); got != tt.want {
			t.Errorf("LandingScore(%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestSelectLandingWaypoint(t *testing.T) {
	tests := []struct {
		name      string
		waypoints []types.Waypoint
		wantSpeed float64
		wantNil   bool
	}{
		{
			name:    "no waypoints",
			wantNil: true,
		},
		{
			name:      "single waypoint",
			waypoints: []types.Waypoint{testutils.MockWaypoint(1000, -320, "09L", "EGLL")},
			wantSpeed: -320,
		},
		{
			name: "hardest in cluster wins",
			waypoints: []types.Waypoint{
				testutils.MockWaypoint(1000, -150, "09L", "EGLL"),
				testutils.MockWaypoint(1050, -400, "09L", "EGLL"),
				testutils.MockWaypoint(1080, -300, "09L", "EGLL"),
			},
			wantSpeed: -400,
		},
		{
			name: "bounce outside window excluded",
			waypoints: []types.Waypoint{
				testutils.MockWaypoint(1000, -600, "27R", "EGLL"),
				testutils.MockWaypoint(1100, -200, "27R", "EGLL"),
			},
			wantSpeed: -200,
		},
		{
			name: "equal magnitude keeps first",
			waypoints: []types.Waypoint{
				testutils.MockWaypoint(1000, -300, "09L", "EGLL"),
				testutils.MockWaypoint(1010, 300, "09L", "EGLL"),
			},
			wantSpeed: -300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectLandingWaypoint(tt.waypoints)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("SelectLandingWaypoint() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("SelectLandingWaypoint() returned nil")
			}
			if got.LandingSpeed != tt.wantSpeed {
				t.Errorf("SelectLandingWaypoint() speed = %v, want %v", got.LandingSpeed, tt.wantSpeed)
			}
		})
	}
}
