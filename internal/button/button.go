// Package button turns a debounced button level into gesture events.
// Debouncing happens upstream (kernel line debounce); this package only
// measures press and release timing. Time is injected, never read.
package button

import (
	"time"

	"github.com/sweeney/uvc-timer/internal/logic"
)

// Default gesture timings.
const (
	DefaultClickTime = 600 * time.Millisecond  // max gap between clicks of a double click
	DefaultPressTime = 1000 * time.Millisecond // hold time for a long press
)

type phase int

const (
	phaseIdle      phase = iota // released, nothing pending
	phaseDown                   // first press in progress
	phaseUp                     // released once, waiting for a second press
	phaseSecondDown             // second press in progress
	phaseHeld                   // long press reported, waiting for release
)

// Classifier recognizes click, double click and long press from periodic
// samples of the button level. Not safe for concurrent use.
type Classifier struct {
	clickTime time.Duration
	pressTime time.Duration

	phase phase
	since time.Time
}

// NewClassifier creates a classifier with the given timings. Zero values
// select the defaults.
func NewClassifier(clickTime, pressTime time.Duration) *Classifier {
	if clickTime <= 0 {
		clickTime = DefaultClickTime
	}
	if pressTime <= 0 {
		pressTime = DefaultPressTime
	}
	return &Classifier{clickTime: clickTime, pressTime: pressTime}
}

// Update feeds one sample and returns at most one gesture.
// ButtonNone is returned when no gesture completed on this sample.
func (c *Classifier) Update(pressed bool, now time.Time) logic.ButtonEvent {
	switch c.phase {
	case phaseIdle:
		if pressed {
			c.enter(phaseDown, now)
		}

	case phaseDown:
		if !pressed {
			c.enter(phaseUp, now)
			return logic.ButtonNone
		}
		if now.Sub(c.since) >= c.pressTime {
			c.enter(phaseHeld, now)
			return logic.ButtonLongPressStart
		}

	case phaseUp:
		if pressed {
			c.enter(phaseSecondDown, now)
			return logic.ButtonNone
		}
		if now.Sub(c.since) >= c.clickTime {
			c.enter(phaseIdle, now)
			return logic.ButtonClick
		}

	case phaseSecondDown:
		if !pressed {
			c.enter(phaseIdle, now)
			return logic.ButtonDoubleClick
		}

	case phaseHeld:
		if !pressed {
			c.enter(phaseIdle, now)
		}
	}
	return logic.ButtonNone
}

// Cancel drops any gesture in progress. A press that is still held is
// ignored until the button is released.
func (c *Classifier) Cancel(now time.Time) {
	if c.phase != phaseIdle {
		c.enter(phaseHeld, now)
	}
}

func (c *Classifier) enter(p phase, now time.Time) {
	c.phase = p
	c.since = now
}
