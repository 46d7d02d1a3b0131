package rover

import (
	"context"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/autopilot"
	"github.com/robotalks/rover/pkg/bus"
	"github.com/robotalks/rover/pkg/chassis"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/hal"
	"github.com/robotalks/rover/pkg/ranger"
	"github.com/robotalks/rover/pkg/telemetry"
)

// Hardware is what a rover is built on.
type Hardware struct {
	PWM     hal.ComplementaryPWM
	Axles   []chassis.Axle
	Trigger hal.Output
	Echo    hal.EdgeInput
}

// Options configures a Rover.
type Options struct {
	Bus      bus.Options
	Ranger   ranger.Config
	Cooldown time.Duration
	Retry    time.Duration
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Bus:      bus.DefaultOptions,
		Ranger:   ranger.DefaultConfig,
		Cooldown: autopilot.DefaultCooldown,
		Retry:    autopilot.DefaultRetry,
	}
}

// Rover is the assembled control core.
type Rover struct {
	State      *State
	Bus        *bus.Bus
	Chassis    *chassis.Chassis
	Ranger     *ranger.Ranger
	Autopilot  *autopilot.Controller
	Dispatcher *Dispatcher
	Reporter   *telemetry.Reporter

	tasks []framework.Runnable
}

// New assembles a rover. The chassis is stopped before returning.
func New(hw Hardware, opts Options) (*Rover, error) {
	if len(hw.Axles) == 0 {
		return nil, errors.New("no axles")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	r := &Rover{
		State:    &State{},
		Bus:      bus.New(opts.Bus),
		Chassis:  chassis.New(hw.PWM, hw.Axles...),
		Ranger:   ranger.New(hw.Trigger, hw.Echo, opts.Ranger),
		Reporter: telemetry.NewReporter(),
	}
	r.Chassis.Stop()
	r.State.Observer = r.Reporter
	r.Ranger.Clock = opts.Clock
	r.Ranger.OnSample = r.Reporter.SampleTaken

	sub, err := r.Bus.Subscribe()
	if err != nil {
		return nil, errors.Wrap(err, "dispatcher")
	}
	r.Dispatcher = NewDispatcher(sub, r.Chassis, r.State)

	pub, err := r.Bus.Publisher("autopilot")
	if err != nil {
		return nil, errors.Wrap(err, "autopilot")
	}
	r.Autopilot = autopilot.NewController(r.State, r.Ranger.Samples, pub)
	r.Autopilot.Clock = opts.Clock
	if opts.Cooldown > 0 {
		r.Autopilot.Cooldown = opts.Cooldown
	}
	if opts.Retry > 0 {
		r.Autopilot.Retry = opts.Retry
	}

	r.tasks = append(r.tasks,
		framework.NamedRun("dispatcher", r.Dispatcher),
		framework.NamedRun("ranger", r.Ranger),
		framework.NamedRun("autopilot", r.Autopilot),
		framework.NamedRun("telemetry", r.Reporter),
	)
	return r, nil
}

// NewCommander creates a Commander with its own bus publisher.
func (r *Rover) NewCommander(name string) (*Commander, error) {
	pub, err := r.Bus.Publisher(name)
	if err != nil {
		return nil, errors.Wrapf(err, "link %s", name)
	}
	return NewCommander(name, r.State, pub), nil
}

// AddLink adds a task reading commands from conn.
func (r *Rover) AddLink(name string, conn io.ReadWriter) error {
	commander, err := r.NewCommander(name)
	if err != nil {
		return err
	}
	r.Add(&Link{Conn: conn, Commander: commander})
	return nil
}

// Add adds tasks to run with the rover. It must be called before Run.
func (r *Rover) Add(tasks ...framework.Runnable) {
	r.tasks = append(r.tasks, tasks...)
}

// Run runs all tasks until ctx is done, then stops the chassis.
func (r *Rover) Run(ctx context.Context) error {
	return r.RunWith(framework.NewRunnerWith(ctx))
}

// RunWith runs all tasks on runner until its context is done, then
// stops the chassis.
func (r *Rover) RunWith(runner *framework.Runner) error {
	runner.Go(r.tasks...)
	glog.Infof("rover running %d tasks", runner.Len())
	err := runner.Wait()
	r.Chassis.Stop()
	glog.Info("chassis stopped")
	return err
}
