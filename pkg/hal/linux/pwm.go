//go:build linux
// +build linux

package linux

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/hal"
)

// PWMOutputs maps a timer channel to sysfs PWM indices on one chip.
// Complement is the index driving the complementary output, or -1 when
// the board has none.
type PWMOutputs struct {
	Main       int
	Complement int
}

// SysfsPWM implements hal.ComplementaryPWM on /sys/class/pwm.
// Duty ticks are nanoseconds, so MaxDuty is the period in ns. The
// complementary output is a second PWM output with inverted polarity;
// sysfs has no dead-time control, so the complement stays off for the
// dead time after the main output falls. Both outputs are edge aligned,
// so at the start of each period the complement turns off exactly as
// the main output turns on, with no gap. Boards needing a gap on both
// edges must use a timer with hardware dead-time insertion.
type SysfsPWM struct {
	dir      string
	period   uint32
	channels map[hal.Channel]PWMOutputs

	lock     sync.Mutex
	deadTime uint32
	duty     map[hal.Channel]uint32
}

// OpenSysfsPWM exports the outputs of chip (e.g. /sys/class/pwm/pwmchip0)
// and sets the period from freqHz.
func OpenSysfsPWM(chip string, freqHz uint32, channels map[hal.Channel]PWMOutputs) (*SysfsPWM, error) {
	if freqHz == 0 {
		return nil, errors.New("pwm frequency must be positive")
	}
	p := &SysfsPWM{
		dir:      chip,
		period:   uint32(time.Second / time.Duration(freqHz)),
		channels: channels,
		duty:     make(map[hal.Channel]uint32),
	}
	for ch, outs := range channels {
		for _, index := range []int{outs.Main, outs.Complement} {
			if index < 0 {
				continue
			}
			if err := p.export(index); err != nil {
				return nil, errors.Wrapf(err, "pwm channel %d", ch)
			}
		}
		if outs.Complement >= 0 {
			if err := p.write(outs.Complement, "polarity", "inversed"); err != nil {
				return nil, errors.Wrapf(err, "pwm channel %d complement", ch)
			}
		}
	}
	return p, nil
}

func (p *SysfsPWM) export(index int) error {
	if _, err := os.Stat(p.outputDir(index)); err == nil {
		return p.write(index, "period", strconv.FormatUint(uint64(p.period), 10))
	}
	if err := ioutil.WriteFile(filepath.Join(p.dir, "export"), []byte(strconv.Itoa(index)), 0644); err != nil {
		return errors.Wrapf(err, "export pwm%d", index)
	}
	// udev may take a moment to set permissions on the new directory.
	var err error
	for i := 0; i < 10; i++ {
		if err = p.write(index, "period", strconv.FormatUint(uint64(p.period), 10)); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return err
}

func (p *SysfsPWM) outputDir(index int) string {
	return filepath.Join(p.dir, fmt.Sprintf("pwm%d", index))
}

func (p *SysfsPWM) write(index int, attr, value string) error {
	return ioutil.WriteFile(filepath.Join(p.outputDir(index), attr), []byte(value), 0644)
}

func (p *SysfsPWM) writeChannel(ch hal.Channel, fn func(outs PWMOutputs) error) {
	outs, ok := p.channels[ch]
	if !ok {
		glog.Errorf("pwm: channel %d not configured", ch)
		return
	}
	if err := fn(outs); err != nil {
		glog.Errorf("pwm: channel %d: %v", ch, err)
	}
}

// MaxDuty implements hal.ComplementaryPWM.
func (p *SysfsPWM) MaxDuty() uint32 {
	return p.period
}

// SetDuty implements hal.ComplementaryPWM.
func (p *SysfsPWM) SetDuty(ch hal.Channel, duty uint32) {
	if duty > p.period {
		duty = p.period
	}
	p.lock.Lock()
	p.duty[ch] = duty
	deadTime := p.deadTime
	p.lock.Unlock()
	p.writeChannel(ch, func(outs PWMOutputs) error {
		if err := p.write(outs.Main, "duty_cycle", strconv.FormatUint(uint64(duty), 10)); err != nil {
			return err
		}
		if outs.Complement < 0 {
			return nil
		}
		comp := duty
		if duty > 0 {
			if comp += deadTime; comp > p.period {
				comp = p.period
			}
		}
		return p.write(outs.Complement, "duty_cycle", strconv.FormatUint(uint64(comp), 10))
	})
}

// SetPolarity implements hal.ComplementaryPWM.
func (p *SysfsPWM) SetPolarity(ch hal.Channel, pol hal.Polarity) {
	main, comp := "normal", "inversed"
	if pol == hal.ActiveLow {
		main, comp = comp, main
	}
	p.writeChannel(ch, func(outs PWMOutputs) error {
		if err := p.write(outs.Main, "polarity", main); err != nil {
			return err
		}
		if outs.Complement >= 0 {
			return p.write(outs.Complement, "polarity", comp)
		}
		return nil
	})
}

// SetDeadTime implements hal.ComplementaryPWM.
func (p *SysfsPWM) SetDeadTime(ticks uint32) {
	p.lock.Lock()
	p.deadTime = ticks
	p.lock.Unlock()
}

// Enable implements hal.ComplementaryPWM.
func (p *SysfsPWM) Enable(ch hal.Channel) {
	p.setEnable(ch, "1")
}

// Disable implements hal.ComplementaryPWM.
func (p *SysfsPWM) Disable(ch hal.Channel) {
	p.setEnable(ch, "0")
}

func (p *SysfsPWM) setEnable(ch hal.Channel, value string) {
	p.writeChannel(ch, func(outs PWMOutputs) error {
		if err := p.write(outs.Main, "enable", value); err != nil {
			return err
		}
		if outs.Complement >= 0 {
			return p.write(outs.Complement, "enable", value)
		}
		return nil
	})
}

// Close disables and unexports all outputs.
func (p *SysfsPWM) Close() error {
	for _, outs := range p.channels {
		for _, index := range []int{outs.Main, outs.Complement} {
			if index < 0 {
				continue
			}
			p.write(index, "enable", "0")
			ioutil.WriteFile(filepath.Join(p.dir, "unexport"), []byte(strconv.Itoa(index)), 0644)
		}
	}
	return nil
}
