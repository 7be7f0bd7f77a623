// Package config holds daemon settings: timing profiles, pins and endpoints.
// Settings come from built-in defaults, an optional YAML file, and
// command-line flags, in increasing priority.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/uvc-timer/internal/gpio"
	"github.com/sweeney/uvc-timer/internal/logic"
)

// Profile names.
const (
	ProfileNormal = "normal"
	ProfileDebug  = "debug"
)

// Timings is a named set of cycle durations.
type Timings struct {
	UVCTime  time.Duration
	IdleTime time.Duration
	Debounce time.Duration
}

// Profiles maps profile names to their timings.
var Profiles = map[string]Timings{
	ProfileNormal: {UVCTime: 20 * time.Minute, IdleTime: 60 * time.Minute, Debounce: 80 * time.Millisecond},
	ProfileDebug:  {UVCTime: 3 * time.Second, IdleTime: 6 * time.Second, Debounce: 80 * time.Millisecond},
}

// DefaultEnvFile is where pi-helper writes network state.
const DefaultEnvFile = "/run/pi-helper.env"

// maxCycle keeps deadlines within the wrap-safe range of logic.Millis.
const maxCycle = time.Duration(math.MaxInt32) * time.Millisecond

// Duration is a time.Duration that unmarshals from YAML strings like "20m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// PinConfig is the YAML form of gpio.Pins.
type PinConfig struct {
	Door   int `yaml:"door"`
	Button int `yaml:"button"`
	Relay  int `yaml:"relay"`
	LED    int `yaml:"led"`
}

// Config contains all daemon settings. Zero timing fields are filled from
// the selected profile by Resolve.
type Config struct {
	Profile    string    `yaml:"profile"`
	UVCTime    Duration  `yaml:"uvc_time,omitempty"`
	IdleTime   Duration  `yaml:"idle_time,omitempty"`
	Debounce   Duration  `yaml:"debounce,omitempty"`
	ClickTime  Duration  `yaml:"click_time,omitempty"`
	PressTime  Duration  `yaml:"press_time,omitempty"`
	Poll       Duration  `yaml:"poll"`
	Heartbeat  Duration  `yaml:"heartbeat"`
	IdleLampOn bool      `yaml:"idle_lamp_on"`
	Broker     string    `yaml:"broker"`
	HTTPAddr   string    `yaml:"http"`
	EnvFile    string    `yaml:"env_file"`
	Pins       PinConfig `yaml:"pins"`
}

// Default returns the built-in configuration.
func Default() Config {
	pins := gpio.DefaultPins()
	return Config{
		Profile:    ProfileNormal,
		Poll:       Duration(10 * time.Millisecond),
		Heartbeat:  Duration(15 * time.Minute),
		IdleLampOn: logic.DefaultRelayPolicy().IdleLampOn,
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
		EnvFile:    DefaultEnvFile,
		Pins: PinConfig{
			Door:   pins.Door,
			Button: pins.Button,
			Relay:  pins.Relay,
			LED:    pins.LED,
		},
	}
}

// Load reads a YAML config file on top of the defaults. Environment
// variables in the file (${VAR}) are expanded before parsing.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills unset timing fields from the profile.
func (c Config) Resolve() (Config, error) {
	p, ok := Profiles[c.Profile]
	if !ok {
		return c, fmt.Errorf("unknown profile %q", c.Profile)
	}
	if c.UVCTime == 0 {
		c.UVCTime = Duration(p.UVCTime)
	}
	if c.IdleTime == 0 {
		c.IdleTime = Duration(p.IdleTime)
	}
	if c.Debounce == 0 {
		c.Debounce = Duration(p.Debounce)
	}
	return c, nil
}

// Validate checks a resolved config.
func (c Config) Validate() error {
	if _, ok := Profiles[c.Profile]; !ok {
		return fmt.Errorf("unknown profile %q", c.Profile)
	}

	// The short re-disinfection cycle is a tenth of uvc_time and must not be zero.
	if time.Duration(c.UVCTime) < 10*time.Millisecond {
		return fmt.Errorf("uvc_time %v: must be at least 10ms", time.Duration(c.UVCTime))
	}
	if 2*time.Duration(c.UVCTime) > maxCycle {
		return fmt.Errorf("uvc_time %v: doubled cycle exceeds %v", time.Duration(c.UVCTime), maxCycle)
	}
	if c.IdleTime <= 0 || time.Duration(c.IdleTime) > maxCycle {
		return fmt.Errorf("idle_time %v: must be in (0, %v]", time.Duration(c.IdleTime), maxCycle)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce %v: must not be negative", time.Duration(c.Debounce))
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll %v: must be positive", time.Duration(c.Poll))
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat %v: must not be negative", time.Duration(c.Heartbeat))
	}

	return validatePins(c.Pins)
}

func validatePins(p PinConfig) error {
	named := []struct {
		name string
		pin  int
	}{
		{"door", p.Door},
		{"button", p.Button},
		{"relay", p.Relay},
		{"led", p.LED},
	}
	for _, n := range named {
		if n.pin < 0 || n.pin > gpio.MaxPin {
			return fmt.Errorf("%s pin %d: out of range 0-%d", n.name, n.pin, gpio.MaxPin)
		}
	}

	// Door and button may share a line; outputs must be exclusive.
	for _, out := range named[2:] {
		for _, other := range named {
			if other.name != out.name && other.pin == out.pin {
				return fmt.Errorf("%s pin %d: also used by %s", out.name, out.pin, other.name)
			}
		}
	}
	return nil
}

// Timing returns the controller timings.
func (c Config) Timing() logic.Timing {
	return logic.Timing{
		UVCTime:  logic.MillisFromDuration(time.Duration(c.UVCTime)),
		IdleTime: logic.MillisFromDuration(time.Duration(c.IdleTime)),
	}
}

// RelayPolicy returns the relay mapping policy.
func (c Config) RelayPolicy() logic.RelayPolicy {
	return logic.RelayPolicy{IdleLampOn: c.IdleLampOn}
}

// GPIOPins returns the pin assignment.
func (c Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Door:   c.Pins.Door,
		Button: c.Pins.Button,
		Relay:  c.Pins.Relay,
		LED:    c.Pins.LED,
	}
}

// Debug reports whether the debug profile is active.
func (c Config) Debug() bool {
	return c.Profile == ProfileDebug
}
