package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event            string       `json:"event,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	State            string       `json:"state"`
	Armed            bool         `json:"armed"`
	Led              string       `json:"led"`
	Lamp             string       `json:"lamp"`
	Door             string       `json:"door"`
	RemainingSeconds int64        `json:"remaining_seconds"`
	Ready            bool         `json:"ready"`
	UptimeSeconds    int64        `json:"uptime_seconds"`
	StartTime        string       `json:"start_time"`
	Timestamp        string       `json:"timestamp"`
	MQTT             MQTTStatus   `json:"mqtt"`
	Counts           CountsJSON   `json:"event_counts"`
	Network          *NetworkJSON `json:"network,omitempty"`
	Config           ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Cycles     int `json:"cycles"`
	Interlocks int `json:"interlocks"`
	Overrides  int `json:"overrides"`
	Buttons    int `json:"buttons"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Profile     string `json:"profile"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	UVCTimeMs   int64  `json:"uvc_time_ms"`
	IdleTimeMs  int64  `json:"idle_time_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	IdleLampOn  bool   `json:"idle_lamp_on"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func doorString(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if !snap.State.Valid() {
		state = "UNKNOWN"
	}

	return StatusInner{
		State:            state,
		Armed:            snap.Armed,
		Led:              string(snap.Led),
		Lamp:             onOff(snap.LampOn),
		Door:             doorString(snap.DoorOpen),
		RemainingSeconds: int64(snap.Remaining.Truncate(time.Second).Seconds()),
		Ready:            snap.Ready,
		UptimeSeconds:    int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:        snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		MQTT:             MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:     snap.Counts.Cycles,
			Interlocks: snap.Counts.Interlocks,
			Overrides:  snap.Counts.Overrides,
			Buttons:    snap.Counts.Buttons,
		},
		Config: ConfigJSON{
			Profile:     snap.Config.Profile,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			UVCTimeMs:   snap.Config.UVCTimeMs,
			IdleTimeMs:  snap.Config.IdleTimeMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			IdleLampOn:  snap.Config.IdleLampOn,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
