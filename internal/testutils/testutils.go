package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/types"
)

// F returns a pointer to v, for building partial telemetry in tests.
func F(v float64) *float64 { return &v }

// Point builds a telemetry sample at ts with the given kinematics.
func Point(flightID string, ts time.Time, x, y, alt, speed float64) *types.TelemetryPoint {
	return &types.TelemetryPoint{
		FlightID:   flightID,
		Timestamp:  ts,
		X:          F(x),
		Y:          F(y),
		AltitudeFt: F(alt),
		SpeedKts:   F(speed),
	}
}

// ApproachPoint builds a telemetry sample in the approach phase.
func ApproachPoint(flightID string, ts time.Time, alt, verticalSpeed float64) *types.TelemetryPoint {
	return &types.TelemetryPoint{
		FlightID:         flightID,
		Timestamp:        ts,
		AltitudeFt:       F(alt),
		VerticalSpeedFPM: F(verticalSpeed),
		FlightPhase:      "approach",
	}
}

// MockWaypoint builds a landing-event report.
func MockWaypoint(ts int64, landingSpeed float64, runway, airport string) types.Waypoint {
	return types.Waypoint{
		Timestamp:    ts,
		LandingSpeed: landingSpeed,
		Runway:       runway,
		Airport:      airport,
	}
}

// MockTelemetryMessage builds a wire telemetry message.
func MockTelemetryMessage(pilotIdentity, flightID string) *types.TelemetryMessage {
	return &types.TelemetryMessage{
		PilotIdentity: pilotIdentity,
		FlightID:      flightID,
		Timestamp:     time.Now().UTC(),
		X:             F(1000),
		Y:             F(2000),
		AltitudeFt:    F(5500),
		SpeedKts:      F(250),
		Heading:       F(90),
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
