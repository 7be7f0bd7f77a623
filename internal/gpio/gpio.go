// Package gpio provides chamber I/O with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Sample is a single reading of the chamber inputs, already in logical form.
type Sample struct {
	DoorOpen      bool // true = door open
	ButtonPressed bool // true = button held (debounced)
}

// Reader reads the chamber inputs.
type Reader interface {
	// Read returns the current logical input levels.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the chamber outputs.
type Writer interface {
	// SetRelay drives the lamp relay. The relay is wired inverted:
	// asserted = lamp off.
	SetRelay(asserted bool) error

	// SetLED drives the status LED.
	SetLED(on bool) error

	// Close leaves the relay asserted and releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets for the chamber I/O.
// Door and Button may share a line; outputs may not share with anything.
type Pins struct {
	Door   int
	Button int
	Relay  int
	LED    int
}

// Default pin assignment (BCM numbering).
const (
	DefaultPinDoor   = 17
	DefaultPinButton = 27
	DefaultPinRelay  = 22
	DefaultPinLED    = 23
)

// MaxPin is the highest line offset on gpiochip0 of a Raspberry Pi header.
const MaxPin = 27

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{
		Door:   DefaultPinDoor,
		Button: DefaultPinButton,
		Relay:  DefaultPinRelay,
		LED:    DefaultPinLED,
	}
}

// Shared reports whether the door sensor and button use the same line.
func (p Pins) Shared() bool {
	return p.Door == p.Button
}

// decode maps raw line levels to logical inputs. Both inputs are active
// high: raw 1 = door open / button pressed. On a shared line the door
// switch is the button, so the line reading low (door shut) is the press.
func decode(doorRaw, buttonRaw int, shared bool) Sample {
	if shared {
		return Sample{DoorOpen: doorRaw == 1, ButtonPressed: doorRaw == 0}
	}
	return Sample{DoorOpen: doorRaw == 1, ButtonPressed: buttonRaw == 1}
}
