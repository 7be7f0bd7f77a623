package logic

// Blink periods in milliseconds. Each pattern is lit for the first half.
const (
	slowPeriod Millis = 1000
	fastPeriod Millis = 200
)

// PatternFor returns the LED pattern for a state and arm flag.
func PatternFor(s State, armed bool) LedPattern {
	switch s {
	case StateOpen:
		if armed {
			return LedFast
		}
		return LedSlow
	case StateDisinfecting:
		return LedOn
	case StateIdle:
		return LedSlow
	case StateForceWait:
		return LedOn
	case StateForceOn:
		return LedFast
	}
	return LedOff
}

// Level returns whether the LED is lit at tick now.
func (p LedPattern) Level(now Millis) bool {
	switch p {
	case LedOn:
		return true
	case LedSlow:
		return now%slowPeriod < slowPeriod/2
	case LedFast:
		return now%fastPeriod < fastPeriod/2
	case LedOff:
		return false
	}
	return false
}

// LampOn returns whether the UV-C lamp should be energized.
// An open door always keeps the lamp off while disinfecting.
func LampOn(s State, doorOpen bool, policy RelayPolicy) bool {
	switch s {
	case StateOpen:
		return false
	case StateDisinfecting:
		return !doorOpen
	case StateIdle:
		return policy.IdleLampOn
	case StateForceWait:
		return false
	case StateForceOn:
		return true
	}
	return false
}

// RelayAsserted converts a lamp intent to the relay signal level. The relay
// is wired inverted: asserting it de-energizes the lamp.
func RelayAsserted(lampOn bool) bool {
	return !lampOn
}
