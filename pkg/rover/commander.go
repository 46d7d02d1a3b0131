package rover

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/autopilot"
	"github.com/robotalks/rover/pkg/command"
)

// Commander decodes command bytes from one link. Recognized tokens set
// the control mode, and directions are published.
type Commander struct {
	name      string
	state     *State
	publisher autopilot.Publisher

	lock    sync.Mutex
	decoder *command.Decoder
}

// NewCommander creates a Commander.
func NewCommander(name string, state *State, publisher autopilot.Publisher) *Commander {
	return &Commander{
		name:      name,
		state:     state,
		publisher: publisher,
		decoder:   command.NewDecoder(command.DefaultCapacity),
	}
}

// Name implements framework.Named.
func (c *Commander) Name() string {
	return c.name
}

// Write implements io.Writer. It never fails.
func (c *Commander) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, b := range p {
		if cmd, ok := c.decoder.Feed(b); ok {
			c.handle(cmd)
		}
	}
	return len(p), nil
}

func (c *Commander) handle(cmd command.Command) {
	if cmd.IsUnknown() {
		if cmd.Line != "" {
			glog.Warningf("%s: unknown command %q", c.name, cmd.Line)
		}
		return
	}
	if c.state.SetMode(cmd.Mode) {
		glog.Infof("%s: mode %s", c.name, cmd.Mode)
	}
	if cmd.Direction.IsValid() {
		glog.V(2).Infof("%s: %s", c.name, cmd.Direction)
		c.publisher.Publish(cmd.Direction)
	}
}
