package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

const (
	SubjectTelemetry = "telemetry.position"
	SubjectWaypoint  = "telemetry.waypoint"
	SubjectControl   = "flight.control"

	streamName = "FLIGHT_TELEMETRY"
)

// Client represents a NATS client
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  *logger.Logger
}

// New creates a new NATS client and ensures the telemetry stream exists.
func New(url string, log *logger.Logger) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{SubjectTelemetry, SubjectWaypoint, SubjectControl},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &Client{
		conn: nc,
		js:   js,
		log:  log.Named("nats"),
	}, nil
}

// PublishTelemetry publishes one telemetry sample.
func (c *Client) PublishTelemetry(msg *types.TelemetryMessage) error {
	return c.publish(SubjectTelemetry, msg)
}

// PublishWaypoint publishes one landing-event report.
func (c *Client) PublishWaypoint(msg *types.WaypointMessage) error {
	return c.publish(SubjectWaypoint, msg)
}

// PublishControl publishes a flight control event.
func (c *Client) PublishControl(msg *types.ControlMessage) error {
	return c.publish(SubjectControl, msg)
}

func (c *Client) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// SubscribeTelemetry subscribes to telemetry samples. Undecodable
// messages are logged and dropped; the stream never stalls on bad input.
func (c *Client) SubscribeTelemetry(handler func(*types.TelemetryMessage)) error {
	_, err := c.js.Subscribe(SubjectTelemetry, func(msg *nats.Msg) {
		var m types.TelemetryMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			c.log.Warn("Dropping undecodable telemetry message", logger.Error(err))
			return
		}
		handler(&m)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// SubscribeWaypoints subscribes to landing-event reports.
func (c *Client) SubscribeWaypoints(handler func(*types.WaypointMessage)) error {
	_, err := c.js.Subscribe(SubjectWaypoint, func(msg *nats.Msg) {
		var m types.WaypointMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			c.log.Warn("Dropping undecodable waypoint message", logger.Error(err))
			return
		}
		handler(&m)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// SubscribeControl subscribes to flight control events.
func (c *Client) SubscribeControl(handler func(*types.ControlMessage)) error {
	_, err := c.js.Subscribe(SubjectControl, func(msg *nats.Msg) {
		var m types.ControlMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			c.log.Warn("Dropping undecodable control message", logger.Error(err))
			return
		}
		handler(&m)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// SubscribeTelemetryRaw delivers telemetry payloads undecoded, for
// consumers that archive the wire bytes verbatim.
func (c *Client) SubscribeTelemetryRaw(handler func([]byte)) error {
	_, err := c.js.Subscribe(SubjectTelemetry, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
