package scoring

import (
	"math"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

// LandingSource identifies which data source produced a landing rate.
type LandingSource string

const (
	SourceWaypoint      LandingSource = "waypoint"
	SourceApproachSlope LandingSource = "approach_slope"
	SourceTelemetry     LandingSource = "telemetry"
	SourceNone          LandingSource = "none"
)

// Telemetry samples above this altitude are never touchdown candidates.
const touchdownAltitudeFt = 100.0

// WaypointClusterWindow is the span, in seconds, of the touchdown cluster
// built backwards from the newest waypoint.
const WaypointClusterWindow = 90

// LandingRate resolves the landing rate (ft/min) from the three partially
// overlapping sources, highest precedence first: an already-assigned
// waypoint rate, the approach-altitude ring buffer, and raw telemetry.
// Returns nil when no source yields a value.
func LandingRate(waypointRate *float64, altitudes []float64, timestamps []int64, points []*types.TelemetryPoint) (*float64, LandingSource) {
	if waypointRate != nil {
		rate := *waypointRate
		return &rate, SourceWaypoint
	}

	if rate, ok := approachSlopeRate(altitudes, timestamps); ok {
		return &rate, SourceApproachSlope
	}

	if rate, ok := telemetryTouchdownRate(points); ok {
		return &rate, SourceTelemetry
	}

	return nil, SourceNone
}

// approachSlopeRate derives a landing rate from the parallel
// altitude/timestamp arrays collected during descent. Needs at least two
// samples and a positive time span.
func approachSlopeRate(altitudes []float64, timestamps []int64) (float64, bool) {
	n := len(altitudes)
	if n < 2 || len(timestamps) < 2 {
		return 0, false
	}
	if len(timestamps) < n {
		n = len(timestamps)
	}

	altChange := altitudes[0] - altitudes[n-1]
	timeChange := timestamps[n-1] - timestamps[0]
	if timeChange <= 0 {
		return 0, false
	}

	// Descent (oldest sample higher) yields a negative rate.
	return math.Round(-(altChange / float64(timeChange)) * 60), true
}

// telemetryTouchdownRate picks the lowest sample below the touchdown
// altitude in an approach or landing phase and uses its vertical speed.
func telemetryTouchdownRate(points []*types.TelemetryPoint) (float64, bool) {
	var best *types.TelemetryPoint
	for _, p := range points {
		if p.AltitudeFt == nil || p.VerticalSpeedFPM == nil {
			continue
		}
		if *p.AltitudeFt >= touchdownAltitudeFt {
			continue
		}
		if p.FlightPhase != "approach" && p.FlightPhase != "landing" {
			continue
		}
		if best == nil || *p.AltitudeFt < *best.AltitudeFt {
			best = p
		}
	}
	if best == nil {
		return 0, false
	}
	return *best.VerticalSpeedFPM, true
}

// LandingScore maps the magnitude of a landing rate onto a 0-100 score.
// Softer touchdowns score higher; anything past 800 ft/min bottoms out at 20.
func LandingScore(rateFPM float64) float64 {
	abs := math.Abs(rateFPM)
	switch {
	case abs <= 100:
		return 100
	case abs <= 200:
		return 90
	case abs <= 300:
		return 80
	case abs <= 400:
		return 70
	case abs <= 500:
		return 60
	case abs <= 600:
		return 50
	case abs <= 700:
		return 40
	case abs <= 800:
		return 30
	default:
		return 20
	}
}

// SelectLandingWaypoint picks the touchdown report from the collected
// waypoints: build the cluster of reports within WaypointClusterWindow
// seconds of the newest one, then take the hardest (largest |landing
// speed|) member. Ties keep the first encountered. Returns nil when no
// waypoints were collected.
func SelectLandingWaypoint(waypoints []types.Waypoint) *types.Waypoint {
	if len(waypoints) == 0 {
		return nil
	}

	maxTS := waypoints[0].Timestamp
	for _, w := range waypoints[1:] {
		if w.Timestamp > maxTS {
			maxTS = w.Timestamp
		}
	}

	var selected *types.Waypoint
	for i := range waypoints {
		w := &waypoints[i]
		if maxTS-w.Timestamp > WaypointClusterWindow {
			continue
		}
		if selected == nil || math.Abs(w.LandingSpeed) > math.Abs(selected.LandingSpeed) {
			selected = w
		}
	}
	return selected
}
