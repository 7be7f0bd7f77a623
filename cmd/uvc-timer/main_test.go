package main

import (
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/uvc-timer/internal/config"
	"github.com/sweeney/uvc-timer/internal/gpio"
	"github.com/sweeney/uvc-timer/internal/logic"
	"github.com/sweeney/uvc-timer/internal/metrics"
	"github.com/sweeney/uvc-timer/internal/mqtt"
	"github.com/sweeney/uvc-timer/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pi-helper.env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestReadNetworkInfoFromEnvFile(t *testing.T) {
	path := writeEnvFile(t, `NETWORK_TYPE=wifi
NETWORK_IP=192.168.1.100
NETWORK_STATUS=connected
NETWORK_GATEWAY=192.168.1.1
NETWORK_WIFI_STATUS=connected
NETWORK_WIFI_SSID="My Network"
`)
	// The file wins over the process environment.
	t.Setenv(envNetworkIP, "10.0.0.1")

	info := readNetworkInfo(path)
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "My Network",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoFallsBackToEnvironment(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "ethernet")

	info := readNetworkInfo(filepath.Join(t.TempDir(), "missing.env"))
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo from environment")
	}
	if info.Status != "connected" || info.Type != "ethernet" {
		t.Errorf("unexpected info: %+v", *info)
	}
	if info.IP != "" {
		t.Errorf("IP: got %q, want empty", info.IP)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(""); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoFileWithoutStatus(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	path := writeEnvFile(t, "NETWORK_TYPE=wifi\n")

	if info := readNetworkInfo(path); info != nil {
		t.Errorf("expected nil when the file has no NETWORK_STATUS, got %+v", info)
	}
}

// --- parseConfig tests ---

func TestParseConfigDefaults(t *testing.T) {
	cfg, printState, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if printState {
		t.Error("printState should default to false")
	}
	if cfg.Profile != config.ProfileNormal {
		t.Errorf("Profile: got %q, want normal", cfg.Profile)
	}
	if time.Duration(cfg.UVCTime) != 20*time.Minute || time.Duration(cfg.IdleTime) != 60*time.Minute {
		t.Errorf("unexpected timings: uvc=%v idle=%v", time.Duration(cfg.UVCTime), time.Duration(cfg.IdleTime))
	}
	if time.Duration(cfg.Debounce) != 80*time.Millisecond {
		t.Errorf("Debounce: got %v, want 80ms", time.Duration(cfg.Debounce))
	}
	if cfg.GPIOPins() != gpio.DefaultPins() {
		t.Errorf("Pins: got %+v, want defaults", cfg.GPIOPins())
	}
}

func TestParseConfigDebugProfile(t *testing.T) {
	cfg, _, err := parseConfig([]string{"-profile", "debug", "-print-state"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Debug() {
		t.Error("expected debug profile")
	}
	if time.Duration(cfg.UVCTime) != 3*time.Second || time.Duration(cfg.IdleTime) != 6*time.Second {
		t.Errorf("unexpected timings: uvc=%v idle=%v", time.Duration(cfg.UVCTime), time.Duration(cfg.IdleTime))
	}
}

func TestParseConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uvc-timer.yaml")
	yaml := `profile: debug
uvc_time: 5s
broker: tcp://file-broker:1883
http: ":8080"
pins:
  door: 5
  button: 5
  relay: 6
  led: 13
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := parseConfig([]string{"-config", path, "-broker", "tcp://flag-broker:1883", "-pin-led", "19"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker != "tcp://flag-broker:1883" {
		t.Errorf("Broker: got %q, flag should win", cfg.Broker)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q, want value from file", cfg.HTTPAddr)
	}
	if time.Duration(cfg.UVCTime) != 5*time.Second {
		t.Errorf("UVCTime: got %v, want 5s from file", time.Duration(cfg.UVCTime))
	}
	if time.Duration(cfg.IdleTime) != 6*time.Second {
		t.Errorf("IdleTime: got %v, want debug profile 6s", time.Duration(cfg.IdleTime))
	}
	want := gpio.Pins{Door: 5, Button: 5, Relay: 6, LED: 19}
	if cfg.GPIOPins() != want {
		t.Errorf("Pins: got %+v, want %+v", cfg.GPIOPins(), want)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown profile", []string{"-profile", "turbo"}},
		{"relay on input pin", []string{"-pin-relay", "17"}},
		{"pin out of range", []string{"-pin-led", "40"}},
		{"zero poll", []string{"-poll", "0s"}},
		{"missing config file", []string{"-config", "/nonexistent/uvc-timer.yaml"}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseConfig(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// --- runLoop tests ---

// debugTiming is the debug profile: 3s disinfection, 6s idle.
var debugTiming = logic.Timing{UVCTime: 3000, IdleTime: 6000}

func testOptions() loopOptions {
	return loopOptions{
		Timing: debugTiming,
		Policy: logic.DefaultRelayPolicy(),
	}
}

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

func testClock() func() time.Time {
	return fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 10*time.Millisecond)
}

// repeat returns n copies of sample.
func repeat(sample gpio.Sample, n int) []gpio.Sample {
	out := make([]gpio.Sample, n)
	for i := range out {
		out[i] = sample
	}
	return out
}

// script concatenates sample runs.
func script(runs ...[]gpio.Sample) []gpio.Sample {
	var out []gpio.Sample
	for _, r := range runs {
		out = append(out, r...)
	}
	return out
}

var (
	idle    = gpio.Sample{}
	pressed = gpio.Sample{ButtonPressed: true}
	doorUp  = gpio.Sample{DoorOpen: true}
)

// faultReader wraps a FakeReader and returns errors for a range of Read() calls.
type faultReader struct {
	inner      *gpio.FakeReader
	call       int
	faultStart int // first call index that returns error (inclusive)
	faultEnd   int // last call index that returns error (exclusive)
}

func (r *faultReader) Read() (gpio.Sample, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return gpio.Sample{}, errors.New("gpio fault")
	}
	return r.inner.Read()
}

func (r *faultReader) Close() error { return r.inner.Close() }

type loopHarness struct {
	writer   *gpio.FakeWriter
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	recorder *metrics.Recorder
}

func newHarness() *loopHarness {
	return &loopHarness{
		writer:   gpio.NewFakeWriter(),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), status.Config{}),
		recorder: metrics.NewRecorder(nil),
	}
}

// run drives runLoop for nTicks, then sends signal and waits for it to return.
func (h *loopHarness) run(t *testing.T, reader gpio.Reader, opts loopOptions, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(reader, h.writer, h.pub, h.pub, h.tracker, h.recorder, opts, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func (h *loopHarness) metricsText(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.recorder.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestRunLoopQuietStartup(t *testing.T) {
	samples := repeat(idle, 50)
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 0 {
		t.Errorf("expected 0 state events, got %d", len(h.pub.Events))
	}
	if names := h.pub.SystemEventNames(); len(names) != 1 || names[0] != "SHUTDOWN" {
		t.Errorf("expected only SHUTDOWN, got %v", names)
	}
	// OPEN: lamp off means relay asserted from the first write.
	if len(h.writer.Relay) == 0 || !h.writer.Relay[0] {
		t.Errorf("expected relay asserted first, got %v", h.writer.Relay)
	}
	if snap := h.tracker.Snapshot(); snap.State != logic.StateOpen || !snap.Ready {
		t.Errorf("unexpected tracker state: %s ready=%v", snap.State, snap.Ready)
	}
}

func TestRunLoopLongPressStartsCycle(t *testing.T) {
	// Long press fires 1s after the press at tick 1, i.e. on tick 101.
	samples := script(repeat(pressed, 110), repeat(idle, 100))
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 1 {
		t.Fatalf("expected 1 state event, got %d", len(h.pub.Events))
	}
	e := h.pub.Events[0]
	if e.From != logic.StateOpen || e.To != logic.StateDisinfecting {
		t.Errorf("unexpected transition: %s -> %s", e.From, e.To)
	}
	if e.Cause != logic.CauseButton || e.Event != logic.ButtonLongPressStart {
		t.Errorf("unexpected cause: %s/%s", e.Cause, e.Event)
	}
	if e.Remaining != 3*time.Second {
		t.Errorf("Remaining: got %v, want 3s", e.Remaining)
	}
	wantTS := time.Date(2026, 1, 1, 0, 0, 1, 10_000_000, time.UTC)
	if !e.Timestamp.Equal(wantTS) {
		t.Errorf("Timestamp: got %v, want %v", e.Timestamp, wantTS)
	}

	// Lamp on during the cycle; SHUTDOWN then forces it off.
	relay := h.writer.Relay
	if len(relay) < 3 || relay[len(relay)-2] {
		t.Errorf("expected relay released during cycle, got %v", relay)
	}
	if last, _ := h.writer.LastRelay(); !last {
		t.Error("expected relay asserted after shutdown")
	}
	if snap := h.tracker.Snapshot(); snap.LampOn || !snap.RelayAsserted {
		t.Errorf("shutdown snapshot should show lamp off: lamp=%v relay=%v", snap.LampOn, snap.RelayAsserted)
	}
}

func TestRunLoopFullCycle(t *testing.T) {
	// DISINFECTING at 1010ms, deadline 4010ms, IDLE on the first tick after.
	samples := script(repeat(pressed, 110), repeat(idle, 400))
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 state events, got %d", len(h.pub.Events))
	}
	e := h.pub.Events[1]
	if e.From != logic.StateDisinfecting || e.To != logic.StateIdle || e.Cause != logic.CauseTimer {
		t.Errorf("unexpected transition: %s -> %s (%s)", e.From, e.To, e.Cause)
	}
	if e.Remaining != 6*time.Second {
		t.Errorf("Remaining: got %v, want 6s", e.Remaining)
	}
	wantTS := time.Date(2026, 1, 1, 0, 0, 4, 20_000_000, time.UTC)
	if !e.Timestamp.Equal(wantTS) {
		t.Errorf("Timestamp: got %v, want %v", e.Timestamp, wantTS)
	}

	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", snap.Counts.Cycles)
	}
	if !strings.Contains(h.metricsText(t), `uvc_transitions_total{cause="TIMER",from="DISINFECTING",to="IDLE"} 1`) {
		t.Error("expected timer transition in metrics")
	}
}

func TestRunLoopDoorInterlock(t *testing.T) {
	samples := script(repeat(pressed, 110), repeat(idle, 50), repeat(doorUp, 20))
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 state events, got %d", len(h.pub.Events))
	}
	e := h.pub.Events[1]
	if e.To != logic.StateOpen || e.Cause != logic.CauseDoor {
		t.Errorf("expected door interlock to OPEN, got %s (%s)", e.To, e.Cause)
	}
	if e.Remaining != 0 {
		t.Errorf("Remaining: got %v, want 0", e.Remaining)
	}

	// Relay asserted again once the door opened, before shutdown.
	relay := h.writer.Relay
	if len(relay) < 4 || !relay[len(relay)-2] {
		t.Errorf("expected relay asserted after interlock, got %v", relay)
	}
	snap := h.tracker.Snapshot()
	if !snap.DoorOpen || snap.Counts.Interlocks != 1 {
		t.Errorf("unexpected snapshot: door=%v interlocks=%d", snap.DoorOpen, snap.Counts.Interlocks)
	}
}

func TestRunLoopDoubleClickDoublesCycle(t *testing.T) {
	// Double click completes on tick 31; second long press fires on tick 231.
	samples := script(
		repeat(pressed, 10), repeat(idle, 10), repeat(pressed, 10), repeat(idle, 100),
		repeat(pressed, 110), repeat(idle, 10),
	)
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 state events, got %d", len(h.pub.Events))
	}
	armed := h.pub.Events[0]
	if armed.Kind() != "ARMED" || armed.Event != logic.ButtonDoubleClick {
		t.Errorf("expected ARMED by double click, got %s/%s", armed.Kind(), armed.Event)
	}
	cycle := h.pub.Events[1]
	if cycle.To != logic.StateDisinfecting || cycle.Armed {
		t.Errorf("expected disarmed DISINFECTING, got %s armed=%v", cycle.To, cycle.Armed)
	}
	if cycle.Remaining != 6*time.Second {
		t.Errorf("Remaining: got %v, want 6s", cycle.Remaining)
	}

	// FAST blink while armed toggles the LED.
	var on, off int
	for _, l := range h.writer.LED {
		if l {
			on++
		} else {
			off++
		}
	}
	if on == 0 || off == 0 {
		t.Errorf("expected LED to blink while armed, got %v", h.writer.LED)
	}
}

func TestRunLoopGPIOReadError(t *testing.T) {
	inner := gpio.NewFakeReader(script(repeat(idle, 5), repeat(pressed, 110), repeat(idle, 5)))
	reader := &faultReader{
		inner:      inner,
		faultStart: 5, // calls 5,6,7 return error
		faultEnd:   8,
	}
	h := newHarness()

	// 5 idle + 3 errors + 110 pressed + 5 idle
	if err := h.run(t, reader, testOptions(), testClock(), 123, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 1 || h.pub.Events[0].To != logic.StateDisinfecting {
		t.Fatalf("expected the loop to recover and start a cycle, got %+v", h.pub.Events)
	}
	if !strings.Contains(h.metricsText(t), `uvc_gpio_errors_total{op="read"} 3`) {
		t.Error("expected 3 read errors in metrics")
	}
}

func TestRunLoopRelayWriteErrorRetries(t *testing.T) {
	samples := repeat(idle, 5)
	h := newHarness()
	h.writer.SetRelayError = errors.New("line busy")

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !strings.Contains(h.metricsText(t), `uvc_gpio_errors_total{op="relay"} 6`) {
		t.Errorf("expected a relay write attempt on every poll plus shutdown, got:\n%s", h.metricsText(t))
	}
	// Rewritten every poll while outputs are unconfirmed, then cleared on shutdown.
	if len(h.writer.LED) != 6 {
		t.Errorf("LED writes: got %d, want 6", len(h.writer.LED))
	}
}

func TestRunLoopPublishError(t *testing.T) {
	samples := script(repeat(pressed, 110), repeat(idle, 5))
	h := newHarness()
	h.pub.PublishError = errors.New("broker down")

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// The chamber still runs the cycle.
	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", snap.Counts.Cycles)
	}
	if !strings.Contains(h.metricsText(t), "uvc_mqtt_publish_errors_total 1") {
		t.Error("expected publish error in metrics")
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "192.168.1.42")

	opts := testOptions()
	opts.Heartbeat = 15 * time.Minute
	samples := repeat(idle, 4)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 5*time.Minute)
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), opts, clock, len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Ticks at 5, 10, 15, 20 minutes: one heartbeat at 15.
	names := h.pub.SystemEventNames()
	if len(names) != 2 || names[0] != "HEARTBEAT" || names[1] != "SHUTDOWN" {
		t.Fatalf("expected [HEARTBEAT SHUTDOWN], got %v", names)
	}
	hb := h.pub.SystemEvents[0]
	if !hb.Retained {
		t.Error("expected retained heartbeat")
	}
	payload := string(hb.RawPayload)
	for _, want := range []string{`"event":"HEARTBEAT"`, `"state":"OPEN"`, `"ip":"192.168.1.42"`} {
		if !strings.Contains(payload, want) {
			t.Errorf("heartbeat payload missing %s: %s", want, payload)
		}
	}
}

func TestRunLoopShutdownSignals(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			h := newHarness()
			h.pub.Connected = true
			if err := h.run(t, gpio.NewFakeReader(repeat(idle, 2)), testOptions(), testClock(), 2, tt.sig); err != nil {
				t.Fatalf("runLoop returned error: %v", err)
			}

			if len(h.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(h.pub.SystemEvents))
			}
			se := h.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" || se.Reason != tt.want || !se.Retained {
				t.Errorf("unexpected shutdown event: %+v", se)
			}
			if !strings.Contains(string(se.RawPayload), `"lamp":"OFF"`) {
				t.Errorf("shutdown payload should report lamp off: %s", se.RawPayload)
			}
			if !h.tracker.Snapshot().MQTTConnected {
				t.Error("expected MQTT status copied into the tracker")
			}
			if last, ok := h.writer.LastLED(); !ok || last {
				t.Error("expected LED cleared on shutdown")
			}
		})
	}
}

func TestRunLoopDebugProgress(t *testing.T) {
	opts := testOptions()
	opts.Debug = true
	samples := script(repeat(pressed, 110), repeat(idle, 200))
	h := newHarness()

	// Progress logging must not disturb the control flow.
	if err := h.run(t, gpio.NewFakeReader(samples), opts, testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if len(h.pub.Events) != 1 {
		t.Errorf("expected 1 state event, got %d", len(h.pub.Events))
	}
}

func TestOutputLatchSkipsUnchangedWrites(t *testing.T) {
	w := gpio.NewFakeWriter()
	rec := metrics.NewRecorder(nil)
	var l outputLatch

	out := logic.Output{RelayAsserted: true, LedLevel: false}
	l.drive(w, out, rec)
	l.drive(w, out, rec)
	if len(w.Relay) != 1 || len(w.LED) != 1 {
		t.Fatalf("expected one write each, got relay=%v led=%v", w.Relay, w.LED)
	}

	out.LedLevel = true
	l.drive(w, out, rec)
	if len(w.Relay) != 1 || len(w.LED) != 2 {
		t.Errorf("expected only the LED rewritten, got relay=%v led=%v", w.Relay, w.LED)
	}
}

func TestStatusConfig(t *testing.T) {
	cfg, _, err := parseConfig([]string{"-profile", "debug", "-heartbeat", "0s"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc := statusConfig(cfg)
	if sc.Profile != "debug" || sc.UVCTimeMs != 3000 || sc.IdleTimeMs != 6000 || sc.HeartbeatMs != 0 {
		t.Errorf("unexpected status config: %+v", sc)
	}
	if !sc.IdleLampOn {
		t.Error("expected IdleLampOn from defaults")
	}
}

func TestRunLoopSharedLineStartsCycle(t *testing.T) {
	// Door and button on one line: shutting the door is the press.
	opened := gpio.Sample{DoorOpen: true}
	shut := gpio.Sample{ButtonPressed: true}

	// Door shut at tick 51 (510ms); long press fires at 1510ms, tick 151.
	// The door stays shut through tick 300, then opens.
	samples := script(repeat(opened, 50), repeat(shut, 250), repeat(opened, 10))
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(h.pub.Events) != 2 {
		t.Fatalf("expected 2 state events, got %d: %+v", len(h.pub.Events), h.pub.Events)
	}
	start := h.pub.Events[0]
	if start.To != logic.StateDisinfecting || start.Cause != logic.CauseButton {
		t.Errorf("expected DISINFECTING by button, got %s (%s)", start.To, start.Cause)
	}
	if stop := h.pub.Events[1]; stop.To != logic.StateOpen || stop.Cause != logic.CauseDoor {
		t.Errorf("expected OPEN by door, got %s (%s)", stop.To, stop.Cause)
	}

	// Lamp off while open, on for the cycle, off at the interlock and shutdown.
	want := []bool{true, false, true, true}
	if len(h.writer.Relay) != len(want) {
		t.Fatalf("relay writes: got %v, want %v", h.writer.Relay, want)
	}
	for i := range want {
		if h.writer.Relay[i] != want[i] {
			t.Fatalf("relay writes: got %v, want %v", h.writer.Relay, want)
		}
	}
}

func TestRunLoopHeldPressAcrossInterlockIgnored(t *testing.T) {
	pressedDoorOpen := gpio.Sample{DoorOpen: true, ButtonPressed: true}

	// Cycle starts at tick 101. A press begins at tick 161 as the door opens
	// and is held long after the door shuts again.
	samples := script(
		repeat(pressed, 110), repeat(idle, 50),
		repeat(pressedDoorOpen, 20), repeat(pressed, 150),
		repeat(idle, 10),
	)
	h := newHarness()

	if err := h.run(t, gpio.NewFakeReader(samples), testOptions(), testClock(), len(samples), syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	want := []logic.State{logic.StateDisinfecting, logic.StateOpen}
	if len(h.pub.Events) != len(want) {
		t.Fatalf("expected %v, got %+v", want, h.pub.Events)
	}
	for i, s := range want {
		if h.pub.Events[i].To != s {
			t.Errorf("event %d: got %s, want %s", i, h.pub.Events[i].To, s)
		}
	}
	if snap := h.tracker.Snapshot(); snap.Counts.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", snap.Counts.Cycles)
	}
}
