// Package hal defines the narrow hardware interfaces the rover core
// depends on. Board bring-up (clocks, pin muxing, timer construction)
// lives behind these interfaces in a backend package.
package hal

import (
	"context"
	"errors"
	"time"
)

// Level is the level of a digital line.
type Level bool

// Levels.
const (
	Low  Level = false
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Output is a digital output line. Writes are register writes on the
// target hardware and treated as infallible; backends which can fail
// log the failure.
type Output interface {
	Set(Level)
}

// Channel identifies a PWM channel of a timer, starting from 1.
type Channel int

// Polarity of a PWM output.
type Polarity int

// Polarities.
const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// String implements fmt.Stringer.
func (p Polarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// DefaultPWMFrequency is the PWM frequency driving the wheels (Hz).
const DefaultPWMFrequency = 2000

// ComplementaryPWM is a timer whose channels each drive an output and its
// electrical complement, separated by a dead time.
type ComplementaryPWM interface {
	// MaxDuty is the duty value for 100%, derived from the period.
	MaxDuty() uint32
	SetDuty(ch Channel, duty uint32)
	SetPolarity(ch Channel, p Polarity)
	// SetDeadTime sets the gap, in duty ticks, between an output and its
	// complement switching.
	SetDeadTime(ticks uint32)
	Enable(ch Channel)
	Disable(ch Channel)
}

// Edge is a transition on a digital input.
type Edge struct {
	Rising bool
	Time   time.Time
}

// EdgeInput delivers transitions of a digital input. Implementations
// suspend the caller instead of polling the line.
type EdgeInput interface {
	// WaitEdge waits for the next edge. It returns ErrEdgeTimeout if
	// no edge arrives within timeout, or ctx.Err().
	WaitEdge(ctx context.Context, timeout time.Duration) (Edge, error)
}

// ErrEdgeTimeout indicates no edge was seen in time.
var ErrEdgeTimeout = errors.New("timeout waiting for edge")
