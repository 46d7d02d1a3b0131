package physics

import (
	"time"

	"github.com/robotalks/rover/pkg/sim"
)

type turnState struct {
	startPose sim.Pose2D
	startTime time.Time
	rate      float64
}

// newTurnState spins in place at rate (rad/s), counter-clockwise when
// positive.
func newTurnState(pose sim.Pose2D, now time.Time, rate float64) state {
	if rate == 0 {
		return nil
	}
	return &turnState{
		startPose: pose,
		startTime: now,
		rate:      rate,
	}
}

func (s *turnState) estimate(now time.Time) (sim.Pose2D, state) {
	pose := s.startPose
	pose.Orientation = pose.Orientation.AddRadians(now.Sub(s.startTime).Seconds() * s.rate)
	return pose, s
}
