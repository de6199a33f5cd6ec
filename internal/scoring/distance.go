package scoring

import (
	"math"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

// Stored positions are in the same unit as one nautical mile / 1852.
const positionUnitsPerNM = 1852.0

// TotalDistanceNM sums the Euclidean distance between consecutive
// samples, ordered by timestamp, counting only pairs where both samples
// carry a position, and converts to nautical miles rounded to two
// decimals.
func TotalDistanceNM(points []*types.TelemetryPoint) float64 {
	pts := sortByTimestamp(points)

	var total float64
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		if prev.X == nil || prev.Y == nil || cur.X == nil || cur.Y == nil {
			continue
		}
		dx := *cur.X - *prev.X
		dy := *cur.Y - *prev.Y
		total += math.Sqrt(dx*dx + dy*dy)
	}

	return math.Round(total/positionUnitsPerNM*100) / 100
}
