package gpio

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name              string
		doorRaw, btnRaw   int
		shared            bool
		wantDoor, wantBtn bool
	}{
		{"separate idle", 0, 0, false, false, false},
		{"separate door open", 1, 0, false, true, false},
		{"separate button pressed", 0, 1, false, false, true},
		{"separate both", 1, 1, false, true, true},
		{"shared door shut is a press", 0, 0, true, false, true},
		{"shared door open is a release", 1, 1, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := decode(tt.doorRaw, tt.btnRaw, tt.shared)
			if s.DoorOpen != tt.wantDoor || s.ButtonPressed != tt.wantBtn {
				t.Errorf("got door=%v button=%v, want door=%v button=%v",
					s.DoorOpen, s.ButtonPressed, tt.wantDoor, tt.wantBtn)
			}
		})
	}
}

// A shared line can never report an open door and a held button together,
// so a press on it cannot trip the door interlock.
func TestDecodeSharedNeverPressedWithDoorOpen(t *testing.T) {
	for _, raw := range []int{0, 1} {
		s := decode(raw, raw, true)
		if s.DoorOpen && s.ButtonPressed {
			t.Errorf("raw=%d: door open and button pressed at once", raw)
		}
	}
}
