// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/touch-sensor/internal/touch"
)

// TopicEvents is the MQTT topic for touch transitions.
const TopicEvents = "home/touch/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/touch/sensor/system"

// Event names carried in transition payloads.
const (
	EventTouched  = "TOUCHED"
	EventReleased = "RELEASED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a committed touch transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(tr touch.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "CALIBRATED"
	Reason     string // e.g., "SIGTERM", "SIGHUP", "HTTP"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Touch TouchPayload `json:"touch"`
}

// TouchPayload contains the transition details.
type TouchPayload struct {
	Timestamp string       `json:"timestamp"`
	Event     string       `json:"event"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	Left      ChannelState `json:"left"`
	Right     ChannelState `json:"right"`
	Connected bool         `json:"connected"`
}

// ChannelState represents a single pad's readings.
type ChannelState struct {
	Raw      uint16  `json:"raw"`
	Baseline uint16  `json:"baseline"`
	Value    float64 `json:"value"`
}

// EventName returns EventReleased for a transition into NoTouch and
// EventTouched otherwise.
func EventName(tr touch.Transition) string {
	if tr.To == touch.NoTouch {
		return EventReleased
	}
	return EventTouched
}

// FormatPayload creates the JSON payload for a touch transition.
func FormatPayload(tr touch.Transition) ([]byte, error) {
	r := tr.Reading
	payload := Payload{
		Touch: TouchPayload{
			Timestamp: tr.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventName(tr),
			From:      tr.From.String(),
			To:        tr.To.String(),
			Left:      ChannelState{Raw: r.LeftRaw, Baseline: r.LeftBaseline, Value: r.LeftValue()},
			Right:     ChannelState{Raw: r.RightRaw, Baseline: r.RightBaseline, Value: r.RightValue()},
			Connected: r.Connected,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
