// Package mqtt publishes chamber telemetry with an abstraction for testing.
// Publishing is one-way: nothing received over MQTT controls the chamber.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/uvc-timer/internal/logic"
)

// Topic is the MQTT topic for chamber state events.
const Topic = "uvc/chamber/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "uvc/chamber/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a chamber state event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateEvent is a controller transition stamped with wall-clock time.
type StateEvent struct {
	Timestamp time.Time
	logic.Transition
	Remaining time.Duration // time left in the new state, zero if untimed
}

// Kind names the event for the payload: arm flag changes inside OPEN are
// reported separately from state changes.
func (e StateEvent) Kind() string {
	if e.From != e.To {
		return "STATE_CHANGE"
	}
	if e.Armed {
		return "ARMED"
	}
	return "DISARMED"
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Chamber ChamberPayload `json:"chamber"`
}

// ChamberPayload contains the state event details.
type ChamberPayload struct {
	Timestamp    string `json:"timestamp"`
	Event        string `json:"event"`
	From         string `json:"from"`
	To           string `json:"to"`
	Cause        string `json:"cause"`
	Button       string `json:"button,omitempty"`
	Armed        bool   `json:"armed"`
	RemainingSec int64  `json:"remaining_seconds,omitempty"`
}

// FormatPayload creates the JSON payload for a state event.
func FormatPayload(event StateEvent) ([]byte, error) {
	payload := Payload{
		Chamber: ChamberPayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Event:        event.Kind(),
			From:         string(event.From),
			To:           string(event.To),
			Cause:        string(event.Cause),
			Button:       string(event.Event),
			Armed:        event.Armed,
			RemainingSec: int64(event.Remaining.Round(time.Second) / time.Second),
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
