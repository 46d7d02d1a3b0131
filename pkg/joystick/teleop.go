// Package joystick drives a rover from a joystick by sending
// direction tokens.
package joystick

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/command"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/joystick/device"
)

// Axes and buttons of a common gamepad. The D-pad is reported as axes
// 6 and 7 on most devices.
const (
	AxisX     = 0
	AxisY     = 1
	AxisPadX  = 6
	AxisPadY  = 7
	ButtonA   = 0
	AxisRange = 32767
)

// DefaultDeadzone is the axis value below which the stick is centred.
const DefaultDeadzone = AxisRange / 3

// RetryInterval is the pause before looking for a device again.
var RetryInterval = time.Second

// Sender sends a command line.
type Sender interface {
	Send(data []byte) error
}

// Teleop maps joystick events to commands.
type Teleop struct {
	Sender      Sender
	DeviceIndex int
	Deadzone    int
	Open        device.OpenFunc
	Clock       clock.Clock

	x, y int
	last command.Direction
}

// NewTeleop creates a Teleop on the first available device.
func NewTeleop(sender Sender) *Teleop {
	return &Teleop{
		Sender:      sender,
		DeviceIndex: -1,
		Deadzone:    DefaultDeadzone,
		Open:        device.Open,
		Clock:       clock.New(),
	}
}

// Name implements framework.Named.
func (t *Teleop) Name() string {
	return "joystick"
}

// Direction is the direction selected by the stick position. The
// vertical axis wins over the horizontal one.
func (t *Teleop) Direction() command.Direction {
	switch {
	case t.y < -t.Deadzone:
		return command.Forward
	case t.y > t.Deadzone:
		return command.Back
	case t.x < -t.Deadzone:
		return command.Left
	case t.x > t.Deadzone:
		return command.Right
	}
	return command.Stop
}

// Handle processes one event and returns the token to send, if any.
func (t *Teleop) Handle(ev device.Event) (string, bool) {
	switch e := ev.(type) {
	case device.AxisEvent:
		switch e.Index() {
		case AxisX, AxisPadX:
			t.x = e.Value()
		case AxisY, AxisPadY:
			t.y = e.Value()
		default:
			return "", false
		}
		dir := t.Direction()
		if e.IsInit() {
			t.last = dir
			return "", false
		}
		if dir == t.last {
			return "", false
		}
		t.last = dir
		return dir.Token(), true
	case device.ButtonEvent:
		if e.Index() == ButtonA && e.Pressed() && !e.IsInit() {
			return command.TokenAutoPilot, true
		}
	}
	return "", false
}

func (t *Teleop) send(token string) {
	glog.V(2).Infof("joystick: %s", token)
	if err := t.Sender.Send([]byte(token + "\n")); err != nil {
		glog.Errorf("joystick send %q: %v", token, err)
	}
}

// Run implements framework.Runnable. It keeps looking for a device,
// and stops the rover when the device is gone.
func (t *Teleop) Run(ctx context.Context) error {
	for {
		dev, err := t.Open(t.DeviceIndex)
		switch {
		case err != nil:
			glog.Warningf("open joystick: %v", err)
		case dev == nil:
			glog.V(2).Info("no joystick detected")
		default:
			glog.Infof("joystick %d %q opened", dev.Index(), dev.Name())
			err = t.serve(ctx, dev)
			t.x, t.y, t.last = 0, 0, command.Stop
			t.send(command.TokenStop)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			glog.Warningf("joystick %d: %v", dev.Index(), err)
		}
		if err := framework.Sleep(ctx, t.Clock, RetryInterval); err != nil {
			return err
		}
	}
}

func (t *Teleop) serve(ctx context.Context, dev device.Device) error {
	events := make(chan device.Event)
	errCh := make(chan error, 1)
	go func() {
		for {
			ev, err := dev.ReadEvent()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer dev.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case ev := <-events:
			if token, ok := t.Handle(ev); ok {
				t.send(token)
			}
		}
	}
}
