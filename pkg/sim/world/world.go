// Package world simulates a rover in a walled arena. The rover's
// hardware is in-memory: the world reads the chassis outputs to move
// the rover and answers sonar triggers with echo pulses timed by the
// distance to the nearest wall ahead.
package world

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/chassis"
	"github.com/robotalks/rover/pkg/hal"
	"github.com/robotalks/rover/pkg/hal/fake"
	"github.com/robotalks/rover/pkg/ranger"
	"github.com/robotalks/rover/pkg/rover"
	"github.com/robotalks/rover/pkg/sim"
	"github.com/robotalks/rover/pkg/sim/physics"
)

// Config defines the simulated world.
type Config struct {
	// Arena is the size of the walled area, centred at the origin.
	Arena sim.Size2D `yaml:"arena"`
	// Walls are obstacles inside the arena.
	Walls []sim.Rect `yaml:"walls"`
	// Radius of the rover body.
	Radius float64 `yaml:"radius"`
	// MaxSpeed is the straight speed (cm/s) at full duty.
	MaxSpeed float64 `yaml:"max-speed"`
	// Accel is the straight acceleration (cm/s²), 0 for immediate.
	Accel float64 `yaml:"accel"`
	// MaxTurnRate is the spin rate (degrees/s) at full duty.
	MaxTurnRate float64 `yaml:"max-turn-rate"`
	// Tick is the simulation step.
	Tick time.Duration `yaml:"tick"`
	// TimerClock is the simulated PWM timer clock (Hz).
	TimerClock uint32 `yaml:"timer-clock"`
	// Axles is 1 or 2.
	Axles int `yaml:"axles"`
}

// DefaultConfig is a 4m x 3m arena with a box in it.
var DefaultConfig = Config{
	Arena: sim.Size2D{CX: 400, CY: 300},
	Walls: []sim.Rect{
		{Pos2D: sim.Pos2D{X: 80, Y: -40}, Size2D: sim.Size2D{CX: 40, CY: 80}},
	},
	Radius:      10,
	MaxSpeed:    60,
	MaxTurnRate: 180,
	Tick:        20 * time.Millisecond,
	TimerClock:  72000000,
	Axles:       2,
}

// Snapshot is the observable state of the world.
type Snapshot struct {
	Pose   sim.Pose2D
	Radius float64
	Arena  sim.Size2D
	Walls  []sim.Rect
	Motion physics.Motion
	// Bumped is set when the rover is pushing against a wall.
	Bumped bool
}

// World is the simulated arena and the rover hardware in it.
type World struct {
	Config
	Clock clock.Clock
	// OnChange is called after each step which changed the snapshot.
	OnChange func(Snapshot)

	PWM     *fake.PWM
	Pins    []*fake.Output
	Trigger *fake.Output
	Echo    *fake.EdgeInput

	lock    sync.Mutex
	engine  *physics.Engine
	pose    sim.Pose2D
	bumped  bool
	trigger hal.Level
}

// New creates a world with the rover at the origin facing +X.
func New(conf Config) *World {
	if conf.Tick <= 0 {
		conf.Tick = DefaultConfig.Tick
	}
	if conf.TimerClock == 0 {
		conf.TimerClock = DefaultConfig.TimerClock
	}
	if conf.Axles < 1 || conf.Axles > 2 {
		conf.Axles = DefaultConfig.Axles
	}
	w := &World{
		Config:  conf,
		Clock:   clock.New(),
		PWM:     fake.NewPWM(conf.TimerClock, hal.DefaultPWMFrequency),
		Trigger: fake.NewOutput(hal.Low),
		Echo:    fake.NewEdgeInput(8),
	}
	for i := 0; i < conf.Axles*2; i++ {
		w.Pins = append(w.Pins, fake.NewOutput(hal.Low))
	}
	w.engine = physics.New((*body)(w))
	w.engine.Accel = conf.Accel
	w.Trigger.OnChange = w.triggerChanged
	return w
}

// Hardware returns the rover hardware wired into the world.
func (w *World) Hardware() rover.Hardware {
	hw := rover.Hardware{PWM: w.PWM, Trigger: w.Trigger, Echo: w.Echo}
	for i := 0; i < len(w.Pins); i += 2 {
		hw.Axles = append(hw.Axles, chassis.Axle{
			Left:    w.Pins[i],
			Right:   w.Pins[i+1],
			Channel: hal.Channel(i/2 + 1),
		})
	}
	return hw
}

// SetPose places the rover.
func (w *World) SetPose(pose sim.Pose2D) {
	w.lock.Lock()
	w.pose = pose
	w.lock.Unlock()
}

// Snapshot returns the current state.
func (w *World) Snapshot() Snapshot {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.snapshotLocked()
}

func (w *World) snapshotLocked() Snapshot {
	return Snapshot{
		Pose:   w.pose,
		Radius: w.Radius,
		Arena:  w.Arena,
		Walls:  w.Walls,
		Motion: w.engine.Motion(),
		Bumped: w.bumped,
	}
}

// motion derives the wheel motion from the first axle.
func (w *World) motion() physics.Motion {
	ch := w.PWM.Channel(1)
	if !ch.Enabled || ch.Duty == 0 {
		return physics.Motion{}
	}
	ratio := float64(ch.Duty) / float64(w.PWM.MaxDuty())
	switch left, right := bool(w.Pins[0].Level()), bool(w.Pins[1].Level()); {
	case left && !right:
		return physics.Motion{Speed: w.MaxSpeed * ratio}
	case !left && right:
		return physics.Motion{Speed: -w.MaxSpeed * ratio}
	case !left && !right:
		return physics.Motion{TurnRate: sim.AngleFromDegrees(w.MaxTurnRate*ratio).Radians()}
	default:
		return physics.Motion{TurnRate: -sim.AngleFromDegrees(w.MaxTurnRate*ratio).Radians()}
	}
}

// Step advances the world to now.
func (w *World) Step(now time.Time) {
	motion := w.motion()
	w.lock.Lock()
	before := w.snapshotLocked()
	w.engine.SetMotion(now, motion)
	w.engine.Update(now)
	after := w.snapshotLocked()
	fn := w.OnChange
	w.lock.Unlock()
	if fn != nil && (before.Pose != after.Pose || before.Motion != after.Motion || before.Bumped != after.Bumped) {
		fn(after)
	}
}

// Run implements framework.Runnable.
func (w *World) Run(ctx context.Context) error {
	ticker := w.Clock.Ticker(w.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Step(w.Clock.Now())
		}
	}
}

// Distance returns the distance from the front of the rover to the
// nearest wall ahead, including the arena boundary.
func (w *World) Distance() float64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.distanceLocked()
}

func (w *World) distanceLocked() float64 {
	d := math.Inf(1)
	for _, rc := range w.obstacles() {
		d = math.Min(d, rc.RayDistance(w.pose))
	}
	return math.Max(d-w.Radius, 0)
}

// obstacles are the walls plus the arena boundary as four thin walls.
func (w *World) obstacles() []sim.Rect {
	const thickness = 1
	hw, hh := w.Arena.CX/2, w.Arena.CY/2
	return append([]sim.Rect{
		{Pos2D: sim.Pos2D{X: -hw - thickness, Y: -hh - thickness}, Size2D: sim.Size2D{CX: thickness, CY: w.Arena.CY + 2*thickness}},
		{Pos2D: sim.Pos2D{X: hw, Y: -hh - thickness}, Size2D: sim.Size2D{CX: thickness, CY: w.Arena.CY + 2*thickness}},
		{Pos2D: sim.Pos2D{X: -hw, Y: -hh - thickness}, Size2D: sim.Size2D{CX: w.Arena.CX, CY: thickness}},
		{Pos2D: sim.Pos2D{X: -hw, Y: hh}, Size2D: sim.Size2D{CX: w.Arena.CX, CY: thickness}},
	}, w.Walls...)
}

// EchoWidth is the echo pulse width for a distance, or 0 if it's out
// of range.
func EchoWidth(cm float64) time.Duration {
	if cm >= float64(ranger.MaxRange) {
		return 0
	}
	// Centre the width in the centimetre so truncation recovers cm.
	us := math.Floor(cm)*58 + 29
	return time.Duration(us) * time.Microsecond
}

func (w *World) triggerChanged(l hal.Level) {
	w.lock.Lock()
	fired := w.trigger && !l
	w.trigger = l
	var cm float64
	if fired {
		cm = w.distanceLocked()
	}
	w.lock.Unlock()
	if !fired {
		return
	}
	width := EchoWidth(cm)
	if width == 0 {
		glog.V(3).Infof("sim: nothing in range")
		return
	}
	start := time.Now()
	w.Echo.Pulse(start, width)
}

type body World

func (b *body) Position2D() sim.Pose2D {
	return b.pose
}

// SetPose2D refuses moves into walls or out of the arena.
func (b *body) SetPose2D(pose sim.Pose2D) sim.Pose2D {
	w := (*World)(b)
	hw, hh := w.Arena.CX/2-w.Radius, w.Arena.CY/2-w.Radius
	blocked := pose.X < -hw || pose.X > hw || pose.Y < -hh || pose.Y > hh
	for _, rc := range w.Walls {
		if blocked {
			break
		}
		blocked = rc.Contains(pose.Pos2D, w.Radius)
	}
	// Turning in place is always possible.
	if blocked && pose.Pos2D != w.pose.Pos2D {
		w.bumped = true
		return w.pose
	}
	w.bumped = false
	w.pose = pose
	return pose
}
