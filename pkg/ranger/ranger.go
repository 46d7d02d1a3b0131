// Package ranger measures distance with a trigger/echo ultrasonic sensor
// (HC-SR04 class) and publishes the latest sample.
package ranger

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/hal"
)

// Distance in centimetres.
type Distance uint32

// MaxRange is reported when nothing echoes back in time.
const MaxRange Distance = 400

// Trigger pulse timing.
const (
	TriggerSettle = 5 * time.Microsecond
	TriggerPulse  = 10 * time.Microsecond
)

// hold keeps the trigger line at its level for d.
var hold = time.Sleep

// ErrEchoTimeout indicates the echo line didn't change in time.
var ErrEchoTimeout = errors.New("echo timeout")

// Config defines the timing of a Ranger.
type Config struct {
	// EchoTimeout bounds the wait for each echo edge.
	EchoTimeout time.Duration `yaml:"echo-timeout"`
	// Interval is the time between measurements.
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig is the default timing.
var DefaultConfig = Config{
	EchoTimeout: 60 * time.Millisecond,
	Interval:    time.Second,
}

// Sample is the result of one measurement.
type Sample struct {
	Distance Distance
	// Err is set when the measurement failed, and Distance is MaxRange.
	Err  error
	Time time.Time
}

// Ranger drives the trigger line and times the echo.
type Ranger struct {
	Config
	// Clock schedules measurements, stamps samples and bounds the echo
	// wait. The trigger pulse is always held in real time.
	Clock   clock.Clock
	Samples *Samples
	// OnSample is called with each sample before it's published.
	OnSample func(Sample)

	trigger hal.Output
	echo    hal.EdgeInput
}

// Drainer is implemented by edge inputs which can discard pending edges.
type Drainer interface {
	Drain() int
}

// New creates a Ranger.
func New(trigger hal.Output, echo hal.EdgeInput, conf Config) *Ranger {
	if conf.EchoTimeout <= 0 {
		conf.EchoTimeout = DefaultConfig.EchoTimeout
	}
	if conf.Interval <= 0 {
		conf.Interval = DefaultConfig.Interval
	}
	return &Ranger{
		Config:  conf,
		Clock:   clock.New(),
		Samples: NewSamples(),
		trigger: trigger,
		echo:    echo,
	}
}

// DistanceOf converts the echo pulse width to centimetres, clamped to
// MaxRange. Sound travels a centimetre in about 29 µs and covers the
// distance twice.
func DistanceOf(width time.Duration) Distance {
	us := width.Microseconds()
	if us <= 0 {
		return 0
	}
	if cm := Distance(us / 2 / 29); cm < MaxRange {
		return cm
	}
	return MaxRange
}

// Measure triggers the sensor once and times the echo pulse.
// On a stalled sensor it returns MaxRange with ErrEchoTimeout.
func (r *Ranger) Measure(ctx context.Context) (Distance, error) {
	if d, ok := r.echo.(Drainer); ok {
		if n := d.Drain(); n > 0 {
			glog.V(3).Infof("ranger: drained %d stale edges", n)
		}
	}
	r.trigger.Set(hal.Low)
	hold(TriggerSettle)
	r.trigger.Set(hal.High)
	hold(TriggerPulse)
	r.trigger.Set(hal.Low)

	rise, err := r.waitEdge(ctx, true)
	if err != nil {
		return MaxRange, err
	}
	fall, err := r.waitEdge(ctx, false)
	if err != nil {
		return MaxRange, err
	}
	return DistanceOf(fall.Time.Sub(rise.Time)), nil
}

// waitEdge skips edges of the other direction until EchoTimeout expires.
func (r *Ranger) waitEdge(ctx context.Context, rising bool) (hal.Edge, error) {
	deadline := r.Clock.Now().Add(r.EchoTimeout)
	for {
		remaining := deadline.Sub(r.Clock.Now())
		if remaining <= 0 {
			return hal.Edge{}, ErrEchoTimeout
		}
		edge, err := r.echo.WaitEdge(ctx, remaining)
		switch {
		case err == hal.ErrEdgeTimeout:
			return hal.Edge{}, ErrEchoTimeout
		case err != nil:
			return hal.Edge{}, err
		case edge.Rising == rising:
			return edge, nil
		}
	}
}

// Run measures every Interval and publishes into Samples. A failed
// measurement is logged and published as MaxRange.
func (r *Ranger) Run(ctx context.Context) error {
	for {
		d, err := r.Measure(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			glog.Errorf("ranger: %v", err)
		}
		sample := Sample{Distance: d, Err: err, Time: r.Clock.Now()}
		if fn := r.OnSample; fn != nil {
			fn(sample)
		}
		r.Samples.Publish(sample)
		if err := framework.Sleep(ctx, r.Clock, r.Interval); err != nil {
			return err
		}
	}
}
