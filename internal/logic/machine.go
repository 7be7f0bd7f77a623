package logic

import "time"

// Machine is the chamber controller. It is a plain value: copying it copies
// the full controller state, and it is not safe for concurrent use.
type Machine struct {
	timing   Timing
	policy   RelayPolicy
	state    State
	deadline Millis
	armed    bool
	counts   Counts
}

// NewMachine returns a controller in the power-on state: OPEN, not armed.
func NewMachine(timing Timing, policy RelayPolicy) *Machine {
	return &Machine{
		timing: timing,
		policy: policy,
		state:  StateOpen,
	}
}

type buttonKey struct {
	state State
	event ButtonEvent
}

// buttonAction applies a gesture and returns the next state.
type buttonAction func(m *Machine, now Millis) State

// buttonTable is the complete set of gesture transitions. Any pair not
// listed here is a no-op.
var buttonTable = map[buttonKey]buttonAction{
	{StateOpen, ButtonLongPressStart}:   (*Machine).startDisinfecting,
	{StateOpen, ButtonDoubleClick}:      (*Machine).toggleArm,
	{StateForceWait, ButtonClick}:       goTo(StateForceOn),
	{StateForceOn, ButtonClick}:         goTo(StateForceWait),
	{StateForceWait, ButtonDoubleClick}: goTo(StateOpen),
	{StateForceOn, ButtonDoubleClick}:   goTo(StateOpen),
}

func goTo(s State) buttonAction {
	return func(*Machine, Millis) State { return s }
}

// startDisinfecting consumes the arm flag into the first cycle's length.
func (m *Machine) startDisinfecting(now Millis) State {
	d := m.timing.UVCTime
	if m.armed {
		d *= 2
		m.armed = false
	}
	m.deadline = now.Add(d)
	return StateDisinfecting
}

// toggleArm arms the double-length cycle, or escalates to manual override
// when already armed.
func (m *Machine) toggleArm(Millis) State {
	if m.armed {
		m.armed = false
		return StateForceWait
	}
	m.armed = true
	return StateOpen
}

// OnButtonEvent applies a classified gesture. It returns the resulting
// transition, or nil if the gesture changed nothing. A transition with
// From == To records a change of the arm flag only.
func (m *Machine) OnButtonEvent(ev ButtonEvent, now Millis) *Transition {
	if ev == ButtonNone {
		return nil
	}
	m.counts.Buttons++

	action, ok := buttonTable[buttonKey{m.state, ev}]
	if !ok {
		return nil
	}

	from, wasArmed := m.state, m.armed
	to := action(m, now)
	if to == from && m.armed == wasArmed {
		return nil
	}
	t := m.enter(now, to, CauseButton)
	t.Event = ev
	return t
}

// OnTick re-evaluates the door interlock and the cycle timers. The door
// interlock wins over a timer expiring in the same tick.
func (m *Machine) OnTick(now Millis, doorOpen bool) *Transition {
	switch m.state {
	case StateDisinfecting, StateIdle:
		if doorOpen {
			return m.enter(now, StateOpen, CauseDoor)
		}
		if !now.After(m.deadline) {
			return nil
		}
		if m.state == StateDisinfecting {
			m.deadline = now.Add(m.timing.IdleTime)
			return m.enter(now, StateIdle, CauseTimer)
		}
		m.deadline = now.Add(m.timing.UVCTime / 10)
		return m.enter(now, StateDisinfecting, CauseTimer)
	case StateOpen, StateForceWait, StateForceOn:
		return nil
	}
	return nil
}

// Step runs one poll iteration: the gesture first, then the door and timers,
// then the output mapping.
func (m *Machine) Step(in Input) (Output, []Transition) {
	var ts []Transition
	if t := m.OnButtonEvent(in.Button, in.Now); t != nil {
		ts = append(ts, *t)
	}
	if t := m.OnTick(in.Now, in.DoorOpen); t != nil {
		ts = append(ts, *t)
	}
	return m.Output(in.Now, in.DoorOpen), ts
}

// Output derives LED and relay levels from the current state.
func (m *Machine) Output(now Millis, doorOpen bool) Output {
	pattern := PatternFor(m.state, m.armed)
	lamp := LampOn(m.state, doorOpen, m.policy)
	return Output{
		State:         m.state,
		Armed:         m.armed,
		Led:           pattern,
		LedLevel:      pattern.Level(now),
		LampOn:        lamp,
		RelayAsserted: RelayAsserted(lamp),
	}
}

func (m *Machine) enter(now Millis, to State, cause Cause) *Transition {
	from := m.state
	m.state = to

	if to != from {
		switch {
		case to == StateDisinfecting:
			m.counts.Cycles++
		case cause == CauseDoor:
			m.counts.Interlocks++
		case to == StateForceWait && from == StateOpen:
			m.counts.Overrides++
		}
	}

	t := &Transition{
		At:    now,
		From:  from,
		To:    to,
		Cause: cause,
		Armed: m.armed,
	}
	if to.timed() {
		t.Deadline = m.deadline
	}
	return t
}

// State returns the current operating state.
func (m *Machine) State() State {
	return m.state
}

// Armed reports whether the next cycle from OPEN runs double length.
func (m *Machine) Armed() bool {
	return m.armed
}

// Deadline returns the end of the current timed state. ok is false when the
// state has no deadline.
func (m *Machine) Deadline() (deadline Millis, ok bool) {
	if !m.state.timed() {
		return 0, false
	}
	return m.deadline, true
}

// Remaining returns the time left in the current timed state, or zero.
func (m *Machine) Remaining(now Millis) time.Duration {
	if !m.state.timed() {
		return 0
	}
	left := m.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Millisecond
}

// Counts returns a copy of the event counters.
func (m *Machine) Counts() Counts {
	return m.counts
}
