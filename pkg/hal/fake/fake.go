// Package fake provides in-memory hardware recording every write.
// It's used by tests and as the wiring of the simulator.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/robotalks/rover/pkg/hal"
)

// Output records levels written to a line.
type Output struct {
	// OnChange is called after each Set, outside the lock.
	OnChange func(hal.Level)

	lock    sync.Mutex
	level   hal.Level
	history []hal.Level
}

// NewOutput creates an Output with an initial level.
func NewOutput(initial hal.Level) *Output {
	return &Output{level: initial}
}

// Set implements hal.Output.
func (o *Output) Set(l hal.Level) {
	o.lock.Lock()
	o.level = l
	o.history = append(o.history, l)
	fn := o.OnChange
	o.lock.Unlock()
	if fn != nil {
		fn(l)
	}
}

// Level returns the current level.
func (o *Output) Level() hal.Level {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.level
}

// History returns all levels written since creation.
func (o *Output) History() []hal.Level {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]hal.Level(nil), o.history...)
}

// ChannelState is the state of a PWM channel.
type ChannelState struct {
	Duty     uint32
	Polarity hal.Polarity
	Enabled  bool
}

// PWM is an in-memory complementary PWM timer.
type PWM struct {
	lock     sync.Mutex
	maxDuty  uint32
	deadTime uint32
	channels map[hal.Channel]ChannelState
	writes   int
}

// NewPWM creates a PWM from a timer clock and frequency, the same way
// a hardware timer derives its auto-reload value.
func NewPWM(timerClockHz, freqHz uint32) *PWM {
	maxDuty := uint32(0xffff)
	if freqHz > 0 {
		if period := timerClockHz / freqHz; period > 0 && period < maxDuty {
			maxDuty = period
		}
	}
	return &PWM{maxDuty: maxDuty, channels: make(map[hal.Channel]ChannelState)}
}

// MaxDuty implements hal.ComplementaryPWM.
func (p *PWM) MaxDuty() uint32 {
	return p.maxDuty
}

// SetDuty implements hal.ComplementaryPWM.
func (p *PWM) SetDuty(ch hal.Channel, duty uint32) {
	p.update(ch, func(s *ChannelState) { s.Duty = duty })
}

// SetPolarity implements hal.ComplementaryPWM.
func (p *PWM) SetPolarity(ch hal.Channel, pol hal.Polarity) {
	p.update(ch, func(s *ChannelState) { s.Polarity = pol })
}

// SetDeadTime implements hal.ComplementaryPWM.
func (p *PWM) SetDeadTime(ticks uint32) {
	p.lock.Lock()
	p.deadTime = ticks
	p.writes++
	p.lock.Unlock()
}

// Enable implements hal.ComplementaryPWM.
func (p *PWM) Enable(ch hal.Channel) {
	p.update(ch, func(s *ChannelState) { s.Enabled = true })
}

// Disable implements hal.ComplementaryPWM.
func (p *PWM) Disable(ch hal.Channel) {
	p.update(ch, func(s *ChannelState) { s.Enabled = false })
}

func (p *PWM) update(ch hal.Channel, fn func(*ChannelState)) {
	p.lock.Lock()
	s := p.channels[ch]
	fn(&s)
	p.channels[ch] = s
	p.writes++
	p.lock.Unlock()
}

// Channel returns the state of a channel.
func (p *PWM) Channel(ch hal.Channel) ChannelState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.channels[ch]
}

// DeadTime returns the dead time.
func (p *PWM) DeadTime() uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.deadTime
}

// Writes returns the number of register writes.
func (p *PWM) Writes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

// EdgeInput delivers injected edges.
type EdgeInput struct {
	edgeCh chan hal.Edge
}

// NewEdgeInput creates an EdgeInput buffering up to size edges.
func NewEdgeInput(size int) *EdgeInput {
	return &EdgeInput{edgeCh: make(chan hal.Edge, size)}
}

// Inject queues edges. Edges beyond the buffer are dropped, as a
// hardware event FIFO would.
func (e *EdgeInput) Inject(edges ...hal.Edge) {
	for _, edge := range edges {
		select {
		case e.edgeCh <- edge:
		default:
		}
	}
}

// Pulse queues a rising edge at start and a falling edge after width.
func (e *EdgeInput) Pulse(start time.Time, width time.Duration) {
	e.Inject(hal.Edge{Rising: true, Time: start}, hal.Edge{Time: start.Add(width)})
}

// Pending returns the number of queued edges.
func (e *EdgeInput) Pending() int {
	return len(e.edgeCh)
}

// WaitEdge implements hal.EdgeInput.
func (e *EdgeInput) WaitEdge(ctx context.Context, timeout time.Duration) (hal.Edge, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case edge := <-e.edgeCh:
		return edge, nil
	case <-timer.C:
		return hal.Edge{}, hal.ErrEdgeTimeout
	case <-ctx.Done():
		return hal.Edge{}, ctx.Err()
	}
}

// Drain discards queued edges.
func (e *EdgeInput) Drain() (n int) {
	for {
		select {
		case <-e.edgeCh:
			n++
		default:
			return n
		}
	}
}
