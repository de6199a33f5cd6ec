package tracker

import (
	"sync/atomic"
	"time"

	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Metrics tracks ingestion counters. All counters are atomic; the
// tracker is driven from concurrent subscription callbacks.
type Metrics struct {
	TelemetryReceived uint64
	TelemetryStored   uint64
	TelemetryFailed   uint64
	SnapshotMisses    uint64
	ApproachSamples   uint64
	WaypointsReceived uint64
	WaypointsStored   uint64
	WaypointsOrphaned uint64

	startedAt time.Time
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) IncTelemetryReceived() { atomic.AddUint64(&m.TelemetryReceived, 1) }
func (m *Metrics) IncTelemetryStored()   { atomic.AddUint64(&m.TelemetryStored, 1) }
func (m *Metrics) IncTelemetryFailed()   { atomic.AddUint64(&m.TelemetryFailed, 1) }
func (m *Metrics) IncSnapshotMisses()    { atomic.AddUint64(&m.SnapshotMisses, 1) }
func (m *Metrics) IncApproachSamples()   { atomic.AddUint64(&m.ApproachSamples, 1) }
func (m *Metrics) IncWaypointsReceived() { atomic.AddUint64(&m.WaypointsReceived, 1) }
func (m *Metrics) IncWaypointsStored()   { atomic.AddUint64(&m.WaypointsStored, 1) }
func (m *Metrics) IncWaypointsOrphaned() { atomic.AddUint64(&m.WaypointsOrphaned, 1) }

// Fields renders the counters as log fields.
func (m *Metrics) Fields() []logger.Field {
	return []logger.Field{
		logger.Int64("telemetry_received", int64(atomic.LoadUint64(&m.TelemetryReceived))),
		logger.Int64("telemetry_stored", int64(atomic.LoadUint64(&m.TelemetryStored))),
		logger.Int64("telemetry_failed", int64(atomic.LoadUint64(&m.TelemetryFailed))),
		logger.Int64("snapshot_misses", int64(atomic.LoadUint64(&m.SnapshotMisses))),
		logger.Int64("approach_samples", int64(atomic.LoadUint64(&m.ApproachSamples))),
		logger.Int64("waypoints_received", int64(atomic.LoadUint64(&m.WaypointsReceived))),
		logger.Int64("waypoints_stored", int64(atomic.LoadUint64(&m.WaypointsStored))),
		logger.Int64("waypoints_orphaned", int64(atomic.LoadUint64(&m.WaypointsOrphaned))),
		logger.Duration("uptime", time.Since(m.startedAt)),
	}
}
