package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	samples := []Sample{
		{DoorOpen: true, ButtonPressed: false},
		{DoorOpen: false, ButtonPressed: true},
		{DoorOpen: true, ButtonPressed: true},
	}

	f := NewFakeReader(samples)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("sample %d: expected %+v, got %+v", i, want, got)
		}
	}

	// Fourth read should repeat last sample
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != samples[2] {
		t.Errorf("sample 3 (repeat): expected %+v, got %+v", samples[2], got)
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]Sample{{DoorOpen: true}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([]Sample{{}})

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	samples := []Sample{
		{DoorOpen: true},
		{ButtonPressed: true},
	}

	f := NewFakeReader(samples)
	f.Read()
	f.Reset()

	got, _ := f.Read()
	if got != samples[0] {
		t.Errorf("after reset: expected %+v, got %+v", samples[0], got)
	}
}

func TestFakeWriterRecordsLevels(t *testing.T) {
	w := NewFakeWriter()

	if _, ok := w.LastRelay(); ok {
		t.Error("expected no relay level before any write")
	}

	w.SetRelay(true)
	w.SetRelay(false)
	w.SetLED(true)

	if len(w.Relay) != 2 {
		t.Fatalf("expected 2 relay writes, got %d", len(w.Relay))
	}
	if got, ok := w.LastRelay(); !ok || got {
		t.Errorf("LastRelay: got (%v, %v), want (false, true)", got, ok)
	}
	if got, ok := w.LastLED(); !ok || !got {
		t.Errorf("LastLED: got (%v, %v), want (true, true)", got, ok)
	}
}

func TestFakeWriterErrors(t *testing.T) {
	w := NewFakeWriter()
	w.SetRelayError = errors.New("relay fault")
	w.SetLEDError = errors.New("led fault")

	if err := w.SetRelay(false); err == nil {
		t.Error("expected relay error")
	}
	if err := w.SetLED(true); err == nil {
		t.Error("expected led error")
	}
	if len(w.Relay) != 0 || len(w.LED) != 0 {
		t.Error("failed writes should not be recorded")
	}
}

func TestFakeWriterCloseAssertsRelay(t *testing.T) {
	w := NewFakeWriter()
	w.SetRelay(false)

	if err := w.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Closed {
		t.Error("should be closed after Close()")
	}
	if got, _ := w.LastRelay(); !got {
		t.Error("Close should leave the relay asserted")
	}
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()
	if p.Shared() {
		t.Error("default door and button pins should be separate")
	}
	if (Pins{Door: 5, Button: 5}).Shared() != true {
		t.Error("equal door and button pins should be shared")
	}
}
