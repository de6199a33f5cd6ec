package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlightStatusTransitions(t *testing.T) {
	tests := []struct {
		status       FlightStatus
		valid        bool
		canActivate  bool
		canComplete  bool
		terminal     bool
	}{
		{StatusPending, true, true, true, false},
		{StatusActive, true, false, true, false},
		{StatusCompleted, true, false, false, true},
		{FlightStatus("cancelled"), false, false, false, false},
		{FlightStatus(""), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.CanActivate(); got != tt.canActivate {
				t.Errorf("CanActivate() = %v, want %v", got, tt.canActivate)
			}
			if got := tt.status.CanComplete(); got != tt.canComplete {
				t.Errorf("CanComplete() = %v, want %v", got, tt.canComplete)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestWaypointExtraFieldsRoundTrip(t *testing.T) {
	raw := []byte(`{"timestamp":1700000000,"landing_speed":-240.5,"runway":"27R","airport":"EGLL","extra":{"gforce":1.4,"bounced":false}}`)

	var w Waypoint
	if err := json.Unmarshal(raw, &w); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if w.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %v, want 1700000000", w.Timestamp)
	}
	if w.LandingSpeed != -240.5 {
		t.Errorf("LandingSpeed = %v, want -240.5", w.LandingSpeed)
	}
	if w.Extra["gforce"] != 1.4 {
		t.Errorf("Extra[gforce] = %v, want 1.4", w.Extra["gforce"])
	}

	out, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var again Waypoint
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("Unmarshal() round trip error = %v", err)
	}
	if again.Extra["gforce"] != 1.4 {
		t.Errorf("round trip lost Extra[gforce]: %v", again.Extra["gforce"])
	}
}

func TestTelemetryMessagePoint(t *testing.T) {
	alt := 12000.0
	msg := &TelemetryMessage{
		PilotIdentity: "pilot-1",
		FlightID:      "f1",
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		AltitudeFt:    &alt,
		FlightPhase:   "cruise",
	}

	p := msg.Point()
	if p.FlightID != "f1" {
		t.Errorf("FlightID = %v, want f1", p.FlightID)
	}
	if p.AltitudeFt == nil || *p.AltitudeFt != 12000 {
		t.Errorf("AltitudeFt = %v, want 12000", p.AltitudeFt)
	}
	if p.SpeedKts != nil {
		t.Errorf("SpeedKts = %v, want nil", *p.SpeedKts)
	}
	if p.FlightPhase != "cruise" {
		t.Errorf("FlightPhase = %v, want cruise", p.FlightPhase)
	}
}
