// Package autopilot steers the rover away from obstacles using the
// latest distance sample.
package autopilot

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/ranger"
)

// Threshold is the obstacle distance.
const Threshold ranger.Distance = 50

// Next decides the direction following last given distance d. It
// returns Unknown when no change is needed, including d == Threshold.
func Next(last command.Direction, d ranger.Distance) command.Direction {
	switch {
	case d < Threshold && last == command.Forward:
		return command.Stop
	case d < Threshold && last == command.Stop:
		// even distance turns left, odd turns right
		if d%2 == 0 {
			return command.Left
		}
		return command.Right
	case d > Threshold && (last == command.Left || last == command.Right || last == command.Stop):
		return command.Forward
	}
	return command.Unknown
}

// State is the rover state the controller reads.
type State interface {
	Mode() command.Mode
	Active() command.Direction
}

// Publisher publishes direction commands.
type Publisher interface {
	Publish(command.Direction)
}

// SampleSource delivers distance samples, consuming each once.
type SampleSource interface {
	Next(ctx context.Context) (ranger.Sample, error)
}

// Timing of the controller.
const (
	DefaultCooldown = 3 * time.Second
	DefaultRetry    = 500 * time.Millisecond
)

// Controller runs Next on each new sample while in AutoPilot mode.
type Controller struct {
	// Cooldown is the wait after publishing a command, to let the
	// maneuver take effect.
	Cooldown time.Duration
	// Retry is the wait after a sample leading to no command.
	Retry time.Duration
	Clock clock.Clock

	state     State
	samples   SampleSource
	publisher Publisher
}

// NewController creates a Controller with default timing.
func NewController(state State, samples SampleSource, publisher Publisher) *Controller {
	return &Controller{
		Cooldown:  DefaultCooldown,
		Retry:     DefaultRetry,
		Clock:     clock.New(),
		state:     state,
		samples:   samples,
		publisher: publisher,
	}
}

// Run implements framework.Runnable.
func (c *Controller) Run(ctx context.Context) error {
	for {
		sample, err := c.samples.Next(ctx)
		if err != nil {
			return err
		}
		if c.state.Mode() != command.AutoPilot {
			continue
		}
		active := c.state.Active()
		wait := c.Retry
		if next := Next(active, sample.Distance); next != command.Unknown {
			glog.V(1).Infof("autopilot: %s at %dcm: %s", active, sample.Distance, next)
			c.publisher.Publish(next)
			wait = c.Cooldown
		}
		if err := framework.Sleep(ctx, c.Clock, wait); err != nil {
			return err
		}
	}
}
