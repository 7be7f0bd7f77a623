//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "uvc-timer"

// RealIO drives the chamber through the Linux GPIO character device.
// It implements both Reader and Writer.
type RealIO struct {
	chip   *gpiocdev.Chip
	door   *gpiocdev.Line
	button *gpiocdev.Line // same as door when the pins are shared
	relay  *gpiocdev.Line
	led    *gpiocdev.Line
}

// NewRealIO requests all chamber lines on gpiochip0. The relay starts
// asserted so the lamp stays off until the controller decides otherwise.
// The button line uses the kernel debouncer with the given period.
func NewRealIO(pins Pins, debounce time.Duration) (*RealIO, error) {
	chip, err := gpiocdev.NewChip("gpiochip0", gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	io := &RealIO{chip: chip}

	// Inputs use pull-down to match Pi boot defaults.
	io.door, err = chip.RequestLine(pins.Door, gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithDebounce(debounce))
	if err != nil {
		io.Close()
		return nil, fmt.Errorf("request door pin %d: %w", pins.Door, err)
	}

	if pins.Shared() {
		io.button = io.door
	} else {
		io.button, err = chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithDebounce(debounce))
		if err != nil {
			io.Close()
			return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
		}
	}

	io.relay, err = chip.RequestLine(pins.Relay, gpiocdev.AsOutput(1))
	if err != nil {
		io.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pins.Relay, err)
	}

	io.led, err = chip.RequestLine(pins.LED, gpiocdev.AsOutput(0))
	if err != nil {
		io.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pins.LED, err)
	}

	return io, nil
}

// Read returns the logical input levels.
func (r *RealIO) Read() (Sample, error) {
	doorRaw, err := r.door.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read door pin: %w", err)
	}

	shared := r.button == r.door
	buttonRaw := doorRaw
	if !shared {
		buttonRaw, err = r.button.Value()
		if err != nil {
			return Sample{}, fmt.Errorf("read button pin: %w", err)
		}
	}

	return decode(doorRaw, buttonRaw, shared), nil
}

// SetRelay drives the relay line. asserted = raw 1 = lamp off.
func (r *RealIO) SetRelay(asserted bool) error {
	if err := r.relay.SetValue(level(asserted)); err != nil {
		return fmt.Errorf("set relay pin: %w", err)
	}
	return nil
}

// SetLED drives the status LED line.
func (r *RealIO) SetLED(on bool) error {
	if err := r.led.SetValue(level(on)); err != nil {
		return fmt.Errorf("set led pin: %w", err)
	}
	return nil
}

// Close asserts the relay (lamp off), turns the LED off and releases all
// lines. Inputs are reconfigured to pull-down (Pi boot defaults) first so
// external sensors cannot hold them in unexpected states during early boot.
func (r *RealIO) Close() error {
	var errs []error

	if r.relay != nil {
		if err := r.relay.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("assert relay: %w", err))
		}
		if err := r.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if r.led != nil {
		if err := r.led.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear led: %w", err))
		}
		if err := r.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led pin: %w", err))
		}
	}
	if r.button != nil && r.button != r.door {
		if err := r.button.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure button pin: %w", err))
		}
		if err := r.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if r.door != nil {
		if err := r.door.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure door pin: %w", err))
		}
		if err := r.door.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close door pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(b bool) int {
	if b {
		return 1
	}
	return 0
}
