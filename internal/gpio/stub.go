//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealIO is not available on non-Linux platforms.
type RealIO struct{}

// NewRealIO returns an error on non-Linux platforms.
func NewRealIO(pins Pins, debounce time.Duration) (*RealIO, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealIO) Read() (Sample, error) {
	return Sample{}, errors.New("gpio: not supported")
}

// SetRelay is not implemented on non-Linux platforms.
func (r *RealIO) SetRelay(asserted bool) error {
	return errors.New("gpio: not supported")
}

// SetLED is not implemented on non-Linux platforms.
func (r *RealIO) SetLED(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealIO) Close() error {
	return nil
}
