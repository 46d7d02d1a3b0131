// Package chassis drives the wheels of a rover: one or two axles, each
// with a complementary PWM channel for speed and a direction pin per
// wheel.
package chassis

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/hal"
)

// Axle is a pair of wheels sharing a PWM channel.
type Axle struct {
	Left    hal.Output
	Right   hal.Output
	Channel hal.Channel
}

// State is a snapshot of the chassis outputs.
type State struct {
	Direction command.Direction
	Duty      uint32
	MaxDuty   uint32
	Polarity  hal.Polarity
	Enabled   bool
	Left      hal.Level
	Right     hal.Level
}

// Moving indicates the wheels are driven.
func (s State) Moving() bool {
	return s.Enabled && s.Duty != 0
}

// Chassis owns the PWM timer and the direction pins.
type Chassis struct {
	pwm     hal.ComplementaryPWM
	axles   []Axle
	maxDuty uint32

	lock  sync.Mutex
	state State
}

// pin levels per direction.
var pinTable = map[command.Direction][2]hal.Level{
	command.Forward: {hal.High, hal.Low},
	command.Back:    {hal.Low, hal.High},
	command.Left:    {hal.Low, hal.Low},
	command.Right:   {hal.High, hal.High},
}

// New brings up the chassis. All axles are driven identically. The
// channels are left enabled with duty 0; the owner is expected to call
// Stop before accepting commands.
func New(pwm hal.ComplementaryPWM, axles ...Axle) *Chassis {
	c := &Chassis{
		pwm:     pwm,
		axles:   axles,
		maxDuty: pwm.MaxDuty(),
	}
	pwm.SetDeadTime(c.maxDuty / 1024)
	for _, axle := range axles {
		pwm.SetPolarity(axle.Channel, hal.ActiveHigh)
		pwm.SetDuty(axle.Channel, 0)
		axle.Left.Set(hal.High)
		axle.Right.Set(hal.Low)
		pwm.Enable(axle.Channel)
	}
	c.state = State{
		Direction: command.Unknown,
		MaxDuty:   c.maxDuty,
		Polarity:  hal.ActiveHigh,
		Enabled:   true,
		Left:      hal.High,
		Right:     hal.Low,
	}
	return c
}

// MaxDuty returns the duty value for 100%.
func (c *Chassis) MaxDuty() uint32 {
	return c.maxDuty
}

// State returns a snapshot.
func (c *Chassis) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Start drives the wheels at half duty in the current pin configuration.
func (c *Chassis) Start() {
	c.StartWithDuty(c.maxDuty / 2)
}

// StartWithDuty drives the wheels at duty, clamped to MaxDuty.
func (c *Chassis) StartWithDuty(duty uint32) {
	if duty > c.maxDuty {
		duty = c.maxDuty
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.startLocked(duty)
}

func (c *Chassis) startLocked(duty uint32) {
	for _, axle := range c.axles {
		c.pwm.SetDuty(axle.Channel, duty)
		c.pwm.Enable(axle.Channel)
	}
	c.state.Duty, c.state.Enabled = duty, true
}

// Stop sets duty 0 and disables the channels. Pins are unchanged.
func (c *Chassis) Stop() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, axle := range c.axles {
		c.pwm.SetDuty(axle.Channel, 0)
		c.pwm.Disable(axle.Channel)
	}
	c.state.Direction = command.Stop
	c.state.Duty, c.state.Enabled = 0, false
}

// Forward drives both wheels forward.
func (c *Chassis) Forward() { c.move(command.Forward) }

// Back drives both wheels backward.
func (c *Chassis) Back() { c.move(command.Back) }

// Left spins left.
func (c *Chassis) Left() { c.move(command.Left) }

// Right spins right.
func (c *Chassis) Right() { c.move(command.Right) }

func (c *Chassis) move(dir command.Direction) {
	levels := pinTable[dir]
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, axle := range c.axles {
		axle.Left.Set(levels[0])
		axle.Right.Set(levels[1])
	}
	c.state.Direction = dir
	c.state.Left, c.state.Right = levels[0], levels[1]
	c.startLocked(c.maxDuty / 2)
}

// Apply executes a direction command. It returns false for Unknown,
// leaving the outputs untouched.
func (c *Chassis) Apply(dir command.Direction) bool {
	switch dir {
	case command.Forward:
		c.Forward()
	case command.Back:
		c.Back()
	case command.Left:
		c.Left()
	case command.Right:
		c.Right()
	case command.Stop:
		c.Stop()
	default:
		return false
	}
	glog.V(2).Infof("chassis %s", dir)
	return true
}
