// Package physics moves a simulated rover body by the motion its
// wheels are commanded to.
package physics

import (
	"time"

	"github.com/robotalks/rover/pkg/sim"
)

// Motion is what the wheels are doing.
type Motion struct {
	// Speed is the straight speed (cm/s), negative backward.
	Speed float64
	// TurnRate is the spin rate in place (rad/s), positive
	// counter-clockwise.
	TurnRate float64
}

// IsZero indicates the wheels are still.
func (m Motion) IsZero() bool {
	return m.Speed == 0 && m.TurnRate == 0
}

type state interface {
	estimate(now time.Time) (sim.Pose2D, state)
}

// Engine integrates the pose of Object over time.
type Engine struct {
	Object sim.Placeable2D
	// Accel is the straight acceleration (cm/s²), 0 for immediate.
	Accel float64

	motion Motion
	state  state
}

// New creates the engine.
func New(obj sim.Placeable2D) *Engine {
	return &Engine{Object: obj}
}

// Motion returns the current commanded motion.
func (e *Engine) Motion() Motion {
	return e.motion
}

// SetMotion changes the motion at now. Setting the same motion again
// has no effect.
func (e *Engine) SetMotion(now time.Time, m Motion) {
	if m == e.motion {
		return
	}
	pose := e.Update(now)
	e.motion = m
	switch {
	case m.TurnRate != 0:
		e.state = newTurnState(pose, now, m.TurnRate)
	default:
		e.state = newDriveState(e.state, pose, now, m.Speed, e.Accel)
	}
}

// Update moves the object to where it is at now, and returns the pose.
// If the object refuses the move, the motion is stopped.
func (e *Engine) Update(now time.Time) sim.Pose2D {
	s := e.state
	if s == nil {
		return e.Object.Position2D()
	}
	var pose sim.Pose2D
	pose, e.state = s.estimate(now)
	if placed := e.Object.SetPose2D(pose); placed != pose {
		e.state, e.motion = nil, Motion{}
		return placed
	}
	return pose
}
