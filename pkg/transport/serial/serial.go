// Package serial opens the UART carrying remote commands.
package serial

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Config defines the serial port.
type Config struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud"`
	// ReadTimeout bounds each read so the link can notice
	// cancellation. A timed out read returns no data and no error.
	ReadTimeout time.Duration `yaml:"read-timeout"`
}

// DefaultConfig is 115200 8N1.
var DefaultConfig = Config{
	BaudRate:    115200,
	ReadTimeout: 100 * time.Millisecond,
}

// Mode returns the port mode, 8N1 at the configured baud rate.
func (c Config) Mode() *serial.Mode {
	baud := c.BaudRate
	if baud <= 0 {
		baud = DefaultConfig.BaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the port, discarding anything received before.
func Open(conf Config) (serial.Port, error) {
	if conf.Device == "" {
		return nil, errors.New("serial device not specified")
	}
	port, err := serial.Open(conf.Device, conf.Mode())
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", conf.Device)
	}
	timeout := conf.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultConfig.ReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, errors.Wrapf(err, "serial %s read timeout", conf.Device)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, errors.Wrapf(err, "serial %s reset", conf.Device)
	}
	return port, nil
}

// Ports lists the serial ports on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
