package gpio

import "errors"

// FakeReader is a test double that returns scripted input samples.
type FakeReader struct {
	// Samples contains scripted input values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeWriter records output levels for test assertions.
type FakeWriter struct {
	// Relay contains every relay level written, in order.
	Relay []bool

	// LED contains every LED level written, in order.
	LED []bool

	// SetRelayError, if set, will be returned by SetRelay.
	SetRelayError error

	// SetLEDError, if set, will be returned by SetLED.
	SetLEDError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// SetRelay records the relay level.
func (f *FakeWriter) SetRelay(asserted bool) error {
	if f.SetRelayError != nil {
		return f.SetRelayError
	}
	f.Relay = append(f.Relay, asserted)
	return nil
}

// SetLED records the LED level.
func (f *FakeWriter) SetLED(on bool) error {
	if f.SetLEDError != nil {
		return f.SetLEDError
	}
	f.LED = append(f.LED, on)
	return nil
}

// Close asserts the relay like the real writer does, then marks it closed.
func (f *FakeWriter) Close() error {
	f.Relay = append(f.Relay, true)
	f.Closed = true
	return nil
}

// LastRelay returns the most recent relay level. ok is false if nothing was written.
func (f *FakeWriter) LastRelay() (asserted, ok bool) {
	if len(f.Relay) == 0 {
		return false, false
	}
	return f.Relay[len(f.Relay)-1], true
}

// LastLED returns the most recent LED level. ok is false if nothing was written.
func (f *FakeWriter) LastLED() (on, ok bool) {
	if len(f.LED) == 0 {
		return false, false
	}
	return f.LED[len(f.LED)-1], true
}
