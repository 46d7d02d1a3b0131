package rover

import (
	"context"

	"github.com/robotalks/rover/pkg/bus"
	"github.com/robotalks/rover/pkg/command"
)

// Actuator applies direction commands.
type Actuator interface {
	Apply(command.Direction) bool
}

// Dispatcher applies commands from the bus to the chassis and records
// the active direction.
type Dispatcher struct {
	sub      *bus.Subscriber
	actuator Actuator
	state    *State
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sub *bus.Subscriber, actuator Actuator, state *State) *Dispatcher {
	return &Dispatcher{sub: sub, actuator: actuator, state: state}
}

// Run implements framework.Runnable.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		dir, err := d.sub.Next(ctx)
		if err != nil {
			return err
		}
		if d.actuator.Apply(dir) {
			d.state.SetActive(dir)
		}
	}
}
