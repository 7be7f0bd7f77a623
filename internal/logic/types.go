// Package logic contains the pure chamber controller: the operating state
// machine, the LED pattern mapping and the relay interlock.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via Millis parameters.
package logic

import "time"

// State is the operating state of the chamber.
type State string

const (
	StateOpen         State = "OPEN"
	StateDisinfecting State = "DISINFECTING"
	StateIdle         State = "IDLE"
	StateForceWait    State = "FORCE_WAIT"
	StateForceOn      State = "FORCE_ON"
)

// AllStates lists every operating state.
var AllStates = []State{StateOpen, StateDisinfecting, StateIdle, StateForceWait, StateForceOn}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	for _, v := range AllStates {
		if s == v {
			return true
		}
	}
	return false
}

// timed reports whether the state carries a deadline.
func (s State) timed() bool {
	return s == StateDisinfecting || s == StateIdle
}

// ButtonEvent is a classified button gesture.
type ButtonEvent string

const (
	ButtonNone           ButtonEvent = ""
	ButtonClick          ButtonEvent = "CLICK"
	ButtonDoubleClick    ButtonEvent = "DOUBLE_CLICK"
	ButtonLongPressStart ButtonEvent = "LONG_PRESS_START"
)

// AllButtonEvents lists every gesture (ButtonNone excluded).
var AllButtonEvents = []ButtonEvent{ButtonClick, ButtonDoubleClick, ButtonLongPressStart}

// Cause describes what triggered a transition.
type Cause string

const (
	CauseButton Cause = "BUTTON"
	CauseTimer  Cause = "TIMER"
	CauseDoor   Cause = "DOOR"
)

// LedPattern is the blink pattern of the status LED.
type LedPattern string

const (
	LedOff  LedPattern = "OFF"
	LedOn   LedPattern = "ON"
	LedSlow LedPattern = "SLOW"
	LedFast LedPattern = "FAST"
)

// Timing holds the cycle durations.
type Timing struct {
	UVCTime  Millis // base disinfection duration
	IdleTime Millis // pause between disinfection cycles
}

// RelayPolicy controls how states map onto the lamp relay.
type RelayPolicy struct {
	// IdleLampOn keeps the lamp energized during IDLE. The default follows
	// the documented state mapping; the chamber firmware instead drives the
	// relay to its lamp-off level in IDLE, which this field set to false
	// reproduces.
	IdleLampOn bool
}

// DefaultRelayPolicy returns the documented mapping: lamp on in IDLE.
func DefaultRelayPolicy() RelayPolicy {
	return RelayPolicy{IdleLampOn: true}
}

// Input is a single poll sample.
type Input struct {
	Now      Millis
	DoorOpen bool
	Button   ButtonEvent // ButtonNone if no gesture this poll
}

// Output is the result of one poll iteration.
type Output struct {
	State         State
	Armed         bool
	Led           LedPattern
	LedLevel      bool // true = LED lit
	LampOn        bool
	RelayAsserted bool // inverted: asserted = lamp de-energized
}

// Transition records a single state change.
type Transition struct {
	At       Millis
	From     State
	To       State
	Cause    Cause
	Event    ButtonEvent // set when Cause is CauseButton
	Armed    bool        // flag value after the transition
	Deadline Millis      // only meaningful when To is timed
}

// Remaining returns the length of the timed state just entered, or zero.
func (t Transition) Remaining() time.Duration {
	if !t.To.timed() {
		return 0
	}
	return time.Duration(t.Deadline.Sub(t.At)) * time.Millisecond
}

// Counts tracks notable events since startup.
type Counts struct {
	Cycles     int // entries into DISINFECTING
	Interlocks int // door-forced exits to OPEN
	Overrides  int // entries into FORCE_WAIT from OPEN
	Buttons    int // gestures received, handled or not
}
