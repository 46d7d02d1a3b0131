//go:build linux
// +build linux

// Package linux implements hal on Linux using the GPIO character device
// and the sysfs PWM class.
package linux

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/mkch/gpio"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/hal"
)

// Consumer is the label shown for requested lines.
const Consumer = "rover"

// Output is a GPIO line requested as output.
type Output struct {
	name string
	line *gpio.Line
}

// ChipPath returns the device path of chip, which is either a path or
// a name under /dev (e.g. gpiochip0).
func ChipPath(chip string) string {
	if filepath.IsAbs(chip) {
		return chip
	}
	return filepath.Join("/dev", chip)
}

// OpenOutput requests a line on chip (see ChipPath) as output.
func OpenOutput(chip string, offset uint32, initial hal.Level) (*Output, error) {
	c, err := gpio.OpenChip(ChipPath(chip))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", chip)
	}
	defer c.Close()
	var value byte
	if initial {
		value = 1
	}
	line, err := c.OpenLine(offset, value, gpio.Output, Consumer)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s line %d as output", chip, offset)
	}
	return &Output{name: lineName(chip, offset), line: line}, nil
}

// Set implements hal.Output.
func (o *Output) Set(l hal.Level) {
	var value byte
	if l {
		value = 1
	}
	if err := o.line.SetValue(value); err != nil {
		glog.Errorf("gpio %s: set %s: %v", o.name, l, err)
	}
}

// Close releases the line.
func (o *Output) Close() error {
	return o.line.Close()
}

// EdgeInput is a GPIO line requested for edge events on both edges.
// The kernel timestamps events, so the pulse width doesn't depend on
// scheduling latency. The event channel only keeps the latest event;
// callers must wait for edges as they happen.
type EdgeInput struct {
	name string
	line *gpio.LineWithEvent
}

// OpenEdgeInput requests a line on chip as input with edge events.
func OpenEdgeInput(chip string, offset uint32) (*EdgeInput, error) {
	c, err := gpio.OpenChip(ChipPath(chip))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", chip)
	}
	defer c.Close()
	line, err := c.OpenLineWithEvents(offset, gpio.Input, gpio.BothEdges, Consumer)
	if err != nil {
		return nil, errors.Wrapf(err, "request %s line %d for events", chip, offset)
	}
	return &EdgeInput{name: lineName(chip, offset), line: line}, nil
}

// WaitEdge implements hal.EdgeInput.
func (e *EdgeInput) WaitEdge(ctx context.Context, timeout time.Duration) (hal.Edge, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev, ok := <-e.line.Events():
		if !ok {
			return hal.Edge{}, errors.Errorf("gpio %s: line closed", e.name)
		}
		return hal.Edge{Rising: ev.RisingEdge, Time: ev.Time}, nil
	case <-timer.C:
		return hal.Edge{}, hal.ErrEdgeTimeout
	case <-ctx.Done():
		return hal.Edge{}, ctx.Err()
	}
}

// Close releases the line.
func (e *EdgeInput) Close() error {
	return e.line.Close()
}

func lineName(chip string, offset uint32) string {
	return chip + ":" + strconv.FormatUint(uint64(offset), 10)
}

// Drain discards pending events.
func (e *EdgeInput) Drain() (n int) {
	for {
		select {
		case _, ok := <-e.line.Events():
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
