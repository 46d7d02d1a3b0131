//go:build linux
// +build linux

package main

import (
	"io"
	"path/filepath"

	"github.com/robotalks/rover/pkg/chassis"
	"github.com/robotalks/rover/pkg/config"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/hal"
	"github.com/robotalks/rover/pkg/hal/linux"
	"github.com/robotalks/rover/pkg/rover"
)

type closers []io.Closer

func (c closers) Close() error {
	var errs framework.AggregatedError
	for i := len(c) - 1; i >= 0; i-- {
		errs.Add(c[i].Close())
	}
	return errs.Aggregate()
}

func openHardware(conf config.Hardware) (hw rover.Hardware, closer io.Closer, err error) {
	var opened closers
	defer func() {
		if err != nil {
			opened.Close()
		}
	}()
	output := func(offset uint32) (hal.Output, error) {
		out, err := linux.OpenOutput(conf.GPIOChip, offset, hal.Low)
		if err != nil {
			return nil, err
		}
		opened = append(opened, out)
		return out, nil
	}

	channels := make(map[hal.Channel]linux.PWMOutputs)
	for n, axle := range conf.Axles {
		ch := hal.Channel(n + 1)
		channels[ch] = linux.PWMOutputs{Main: axle.PWM, Complement: axle.Complement}
		a := chassis.Axle{Channel: ch}
		if a.Left, err = output(axle.Left); err != nil {
			return
		}
		if a.Right, err = output(axle.Right); err != nil {
			return
		}
		hw.Axles = append(hw.Axles, a)
	}
	pwm, err := linux.OpenSysfsPWM(filepath.Join("/sys/class/pwm", conf.PWMChip), conf.PWMFreq, channels)
	if err != nil {
		return
	}
	opened = append(opened, pwm)
	hw.PWM = pwm
	if hw.Trigger, err = output(conf.Trigger); err != nil {
		return
	}
	echo, err := linux.OpenEdgeInput(conf.GPIOChip, conf.Echo)
	if err != nil {
		return
	}
	opened = append(opened, echo)
	hw.Echo = echo
	return hw, opened, nil
}
