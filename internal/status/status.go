// Package status provides a thread-safe status tracker for the uvc-timer daemon.
// The poll loop writes it; HTTP handlers and MQTT system events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/uvc-timer/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Profile     string
	PollMs      int64
	DebounceMs  int64
	UVCTimeMs   int64
	IdleTimeMs  int64
	HeartbeatMs int64
	IdleLampOn  bool
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Armed         bool
	Led           logic.LedPattern
	LampOn        bool
	RelayAsserted bool
	DoorOpen      bool
	Remaining     time.Duration
	Counts        logic.Counts
	Ready         bool // at least one poll completed
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateOpen,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of one poll iteration.
func (t *Tracker) Update(out logic.Output, doorOpen bool, remaining time.Duration, counts logic.Counts) {
	t.mu.Lock()
	t.snap.State = out.State
	t.snap.Armed = out.Armed
	t.snap.Led = out.Led
	t.snap.LampOn = out.LampOn
	t.snap.RelayAsserted = out.RelayAsserted
	t.snap.DoorOpen = doorOpen
	t.snap.Remaining = remaining
	t.snap.Counts = counts
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
