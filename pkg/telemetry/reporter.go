package telemetry

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/ranger"
)

// Sink receives status changes.
type Sink interface {
	SendStatus(*Status) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(*Status) error

// SendStatus implements Sink.
func (f SinkFunc) SendStatus(s *Status) error {
	return f(s)
}

// LogSink logs each status.
var LogSink = SinkFunc(func(s *Status) error {
	glog.Infof("status: mode=%s direction=%s distance=%dcm fault=%v",
		s.ControlMode(), s.ActiveDirection(), s.DistanceCm, s.SensorFault)
	return nil
})

// Reporter collects status changes and sends the latest status to
// sinks. Changes coalesce while a send is in progress.
type Reporter struct {
	lock    sync.Mutex
	status  Status
	sinks   []Sink
	dirtyCh chan struct{}
}

// NewReporter creates a Reporter.
func NewReporter(sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks, dirtyCh: make(chan struct{}, 1)}
}

// AddSink adds a sink. It must be called before Run.
func (r *Reporter) AddSink(sinks ...Sink) {
	r.sinks = append(r.sinks, sinks...)
}

// Status returns the current status.
func (r *Reporter) Status() Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.status
}

func (r *Reporter) update(fn func(s *Status) bool) {
	r.lock.Lock()
	changed := fn(&r.status)
	r.lock.Unlock()
	if changed {
		select {
		case r.dirtyCh <- struct{}{}:
		default:
		}
	}
}

// ModeChanged records the control mode.
func (r *Reporter) ModeChanged(m command.Mode) {
	r.update(func(s *Status) bool {
		if s.Mode == int32(m) {
			return false
		}
		s.Mode = int32(m)
		return true
	})
}

// DirectionChanged records the active direction.
func (r *Reporter) DirectionChanged(d command.Direction) {
	r.update(func(s *Status) bool {
		if s.Direction == int32(d) {
			return false
		}
		s.Direction = int32(d)
		return true
	})
}

// SampleTaken records a distance sample.
func (r *Reporter) SampleTaken(sample ranger.Sample) {
	r.update(func(s *Status) bool {
		fault := sample.Err != nil
		if s.DistanceCm == uint32(sample.Distance) && s.SensorFault == fault {
			return false
		}
		s.DistanceCm, s.SensorFault = uint32(sample.Distance), fault
		return true
	})
}

// Run implements framework.Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.dirtyCh:
		}
		r.lock.Lock()
		r.status.Seq++
		status := r.status
		r.lock.Unlock()
		for _, sink := range r.sinks {
			if err := sink.SendStatus(&status); err != nil {
				glog.Errorf("telemetry: %v", err)
			}
		}
	}
}
