package scoring

import (
	"math"
	"sort"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

// SmoothnessEstimator turns an ordered telemetry sequence into a 0-100
// score, or nil when the sequence cannot be scored. The two
// implementations carry different guarantees: PostFlight is the weighted
// formula applied on finalization, LiveApproximate is the cheap variant
// for flights still in progress.
type SmoothnessEstimator interface {
	Score(points []*types.TelemetryPoint) *float64
}

// PostFlight is the finalization smoothness formula: weighted penalties
// for frame-to-frame speed, vertical-speed and heading deltas, averaged
// over the valid comparisons.
type PostFlight struct{}

// LiveApproximate is the in-progress variant: fixed penalties subtracted
// from a 100 baseline per rough sample transition.
type LiveApproximate struct{}

// Score implements SmoothnessEstimator. Requires at least 3 samples;
// returns nil otherwise, and nil when no pair of samples was comparable.
func (PostFlight) Score(points []*types.TelemetryPoint) *float64 {
	if len(points) < 3 {
		return nil
	}
	pts := sortByTimestamp(points)

	var total float64
	var comparisons int
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		var penalty float64
		valid := false

		if prev.SpeedKts != nil && cur.SpeedKts != nil {
			valid = true
			penalty += 0.4 * speedPenalty(math.Abs(*cur.SpeedKts-*prev.SpeedKts))
		}
		if prev.VerticalSpeedFPM != nil && cur.VerticalSpeedFPM != nil {
			valid = true
			penalty += 0.4 * verticalSpeedPenalty(math.Abs(*cur.VerticalSpeedFPM-*prev.VerticalSpeedFPM))
		}
		if prev.Heading != nil && cur.Heading != nil {
			valid = true
			penalty += 0.2 * headingPenalty(headingDelta(*prev.Heading, *cur.Heading))
		}

		if valid {
			total += penalty
			comparisons++
		}
	}

	if comparisons == 0 {
		return nil
	}

	avg := total / float64(comparisons)
	score := 100 - math.Min(avg*10, 100)
	score = math.Round(clamp(score, 0, 100))
	return &score
}

// Score implements SmoothnessEstimator. Always returns a value: flights
// with fewer than two samples score the full 100 baseline.
func (LiveApproximate) Score(points []*types.TelemetryPoint) *float64 {
	pts := sortByTimestamp(points)

	score := 100.0
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		if prev.SpeedKts != nil && cur.SpeedKts != nil && math.Abs(*cur.SpeedKts-*prev.SpeedKts) > 20 {
			score -= 2
		}
		if prev.AltitudeFt != nil && cur.AltitudeFt != nil && math.Abs(*cur.AltitudeFt-*prev.AltitudeFt) > 500 {
			score -= 3
		}
	}

	score = clamp(score, 0, 100)
	return &score
}

func speedPenalty(delta float64) float64 {
	switch {
	case delta > 30:
		return 3
	case delta > 20:
		return 2
	case delta > 10:
		return 1
	default:
		return 0
	}
}

func verticalSpeedPenalty(delta float64) float64 {
	switch {
	case delta > 500:
		return 3
	case delta > 300:
		return 2
	case delta > 150:
		return 1
	default:
		return 0
	}
}

func headingPenalty(delta float64) float64 {
	switch {
	case delta > 30:
		return 2
	case delta > 20:
		return 1
	default:
		return 0
	}
}

// headingDelta is the circular heading difference, wrapped to <=180.
func headingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sortByTimestamp returns a timestamp-ordered copy. Callers are expected
// to submit samples in order but nothing enforces it, so every
// order-dependent computation re-sorts.
func sortByTimestamp(points []*types.TelemetryPoint) []*types.TelemetryPoint {
	pts := make([]*types.TelemetryPoint, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].Timestamp.Before(pts[j].Timestamp)
	})
	return pts
}
