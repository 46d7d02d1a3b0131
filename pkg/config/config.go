// Package config assembles the rover configuration from built-in
// defaults, an optional YAML file, ROVER_* environment variables and
// command line flags, in that order.
package config

import (
	"bytes"
	"flag"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/caarlos0/env"
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/rover/pkg/autopilot"
	"github.com/robotalks/rover/pkg/bus"
	"github.com/robotalks/rover/pkg/ranger"
	"github.com/robotalks/rover/pkg/remote"
	"github.com/robotalks/rover/pkg/rover"
	"github.com/robotalks/rover/pkg/sim/world"
	"github.com/robotalks/rover/pkg/transport/serial"
)

// Axle maps one axle to GPIO lines and PWM outputs.
type Axle struct {
	// Left and Right are the GPIO line offsets of the wheel direction pins.
	Left  uint32 `yaml:"left"`
	Right uint32 `yaml:"right"`
	// PWM and Complement are the sysfs PWM indices of the channel outputs.
	PWM        int `yaml:"pwm"`
	Complement int `yaml:"complement"`
}

// Hardware describes the board wiring.
type Hardware struct {
	GPIOChip string `yaml:"gpio-chip"`
	PWMChip  string `yaml:"pwm-chip"`
	PWMFreq  uint32 `yaml:"pwm-freq"`
	Axles    []Axle `yaml:"axles"`
	Trigger  uint32 `yaml:"trigger"`
	Echo     uint32 `yaml:"echo"`
}

// Bus configures the command bus.
type Bus struct {
	Capacity       int `yaml:"capacity"`
	MaxSubscribers int `yaml:"max-subscribers"`
	MaxPublishers  int `yaml:"max-publishers"`
}

// Autopilot configures the obstacle avoidance timing.
type Autopilot struct {
	Cooldown time.Duration `yaml:"cooldown"`
	Retry    time.Duration `yaml:"retry"`
}

// Sim configures the simulated world.
type Sim struct {
	Enabled bool         `yaml:"enabled"`
	World   world.Config `yaml:"world"`
	// See is where visualization messages are written, "-" for stdout.
	See string `yaml:"see"`
}

// Config is the complete rover configuration.
type Config struct {
	Type        string `yaml:"type"`
	ID          string `yaml:"id"`
	Description string `yaml:"description"`

	Hardware  Hardware      `yaml:"hardware"`
	Serial    serial.Config `yaml:"serial"`
	MQTTURL   string        `yaml:"mqtt"`
	Listen    string        `yaml:"listen"`
	Bus       Bus           `yaml:"bus"`
	Ranger    ranger.Config `yaml:"ranger"`
	Autopilot Autopilot     `yaml:"autopilot"`
	Sim       Sim           `yaml:"sim"`
}

var defaultConfig = Config{
	Type: "rover",
	Hardware: Hardware{
		GPIOChip: "gpiochip0",
		PWMChip:  "pwmchip0",
		PWMFreq:  2000,
		Axles: []Axle{
			{Left: 5, Right: 6, PWM: 0, Complement: 1},
			{Left: 13, Right: 19, PWM: 2, Complement: 3},
		},
		Trigger: 23,
		Echo:    24,
	},
	Serial: serial.DefaultConfig,
	Bus: Bus{
		Capacity:       bus.DefaultOptions.Capacity,
		MaxSubscribers: bus.DefaultOptions.MaxSubscribers,
		// serial, MQTT, websocket and autopilot
		MaxPublishers: 4,
	},
	Ranger: ranger.DefaultConfig,
	Autopilot: Autopilot{
		Cooldown: autopilot.DefaultCooldown,
		Retry:    autopilot.DefaultRetry,
	},
	Sim: Sim{World: world.DefaultConfig},
}

var (
	machineIDOnce sync.Once
	machineID     string
)

// MachineID returns an ID derived from the machine, or the host name
// when the machine ID is not available.
func MachineID() string {
	machineIDOnce.Do(func() {
		id, err := machineid.ProtectedID("rover")
		if err == nil {
			machineID = id[:16]
			return
		}
		glog.Warningf("machine id: %v", err)
		if machineID, err = os.Hostname(); err != nil {
			machineID = "unknown"
		}
	})
	return machineID
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Hardware.Axles = append([]Axle(nil), defaultConfig.Hardware.Axles...)
	conf.Sim.World.Walls = append(conf.Sim.World.Walls[:0:0], defaultConfig.Sim.World.Walls...)
	if conf.ID == "" {
		conf.ID = MachineID()
	}
	return &conf
}

// LoadYAML merges a YAML document into c.
func (c *Config) LoadYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.Wrap(err, "parse config")
	}
	return nil
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	return errors.Wrap(c.LoadYAML(data), fn)
}

// Environ are the ROVER_* environment variables. Empty values are
// ignored.
type Environ struct {
	Config   string `env:"ROVER_CONFIG"`
	Type     string `env:"ROVER_TYPE"`
	ID       string `env:"ROVER_ID"`
	MQTTURL  string `env:"ROVER_MQTT_URL"`
	Listen   string `env:"ROVER_LISTEN"`
	Serial   string `env:"ROVER_SERIAL"`
	BaudRate string `env:"ROVER_SERIAL_BAUD"`
	Sim      string `env:"ROVER_SIM"`
}

// ParseEnviron reads the environment variables.
func ParseEnviron() (Environ, error) {
	var e Environ
	err := env.Parse(&e)
	return e, errors.Wrap(err, "environment")
}

// Apply overrides c with the non-empty values.
func (e Environ) Apply(c *Config) error {
	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	set(&c.Type, e.Type)
	set(&c.ID, e.ID)
	set(&c.MQTTURL, e.MQTTURL)
	set(&c.Listen, e.Listen)
	set(&c.Serial.Device, e.Serial)
	if e.BaudRate != "" {
		baud, err := strconv.Atoi(e.BaudRate)
		if err != nil {
			return errors.Wrap(err, "ROVER_SERIAL_BAUD")
		}
		c.Serial.BaudRate = baud
	}
	if e.Sim != "" {
		enabled, err := strconv.ParseBool(e.Sim)
		if err != nil {
			return errors.Wrap(err, "ROVER_SIM")
		}
		c.Sim.Enabled = enabled
	}
	return nil
}

// Flags are the command line flags.
type Flags struct {
	File   string
	values Config
	set    *flag.FlagSet
}

// SetupFlags sets up command line flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVar(&f.File, "config", "", "Configuration file (YAML)")
	fs.StringVar(&f.values.Type, "type", defaultConfig.Type, "Rover type")
	fs.StringVar(&f.values.ID, "id", "", "Rover ID, defaults to one derived from the machine ID")
	fs.StringVar(&f.values.Description, "desc", "", "Rover description")
	fs.StringVar(&f.values.MQTTURL, "mqtt", "", "MQTT broker URL, e.g. mqtt://host:1883/rovers/")
	fs.StringVar(&f.values.Listen, "listen", "", "Websocket listen address, e.g. :8080")
	fs.StringVar(&f.values.Serial.Device, "serial", "", "Serial device carrying commands")
	fs.IntVar(&f.values.Serial.BaudRate, "baud", defaultConfig.Serial.BaudRate, "Serial baud rate")
	fs.BoolVar(&f.values.Sim.Enabled, "sim", false, "Run in a simulated world")
	fs.StringVar(&f.values.Sim.See, "see", "", "Write simulation visualization to file, - for stdout")
	return f
}

// Apply overrides c with the flags set on the command line.
func (f *Flags) Apply(c *Config) {
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "type":
			c.Type = f.values.Type
		case "id":
			c.ID = f.values.ID
		case "desc":
			c.Description = f.values.Description
		case "mqtt":
			c.MQTTURL = f.values.MQTTURL
		case "listen":
			c.Listen = f.values.Listen
		case "serial":
			c.Serial.Device = f.values.Serial.Device
		case "baud":
			c.Serial.BaudRate = f.values.Serial.BaudRate
		case "sim":
			c.Sim.Enabled = f.values.Sim.Enabled
		case "see":
			c.Sim.See = f.values.Sim.See
		}
	})
}

// Load builds the Config from defaults, the config file, the
// environment and the flags. The config file is the -config flag or
// ROVER_CONFIG.
func (f *Flags) Load() (*Config, error) {
	environ, err := ParseEnviron()
	if err != nil {
		return nil, err
	}
	conf := NewConfig()
	fn := f.File
	if fn == "" {
		fn = environ.Config
	}
	if fn != "" {
		if err := conf.LoadFile(fn); err != nil {
			return nil, err
		}
	}
	if err := environ.Apply(conf); err != nil {
		return nil, err
	}
	f.Apply(conf)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Ref returns the reference of the rover.
func (c *Config) Ref() remote.Ref {
	return remote.Ref{Type: c.Type, ID: c.ID}
}

// Info returns the rover description announced to operators.
func (c *Config) Info() remote.Info {
	info := remote.Info{
		Ref:  c.Ref(),
		Meta: remote.Meta{Description: c.Description},
	}
	info.Meta.Labels = map[string]string{
		"axles": strconv.Itoa(c.axles()),
	}
	if c.Sim.Enabled {
		info.Meta.Labels["sim"] = "true"
	}
	return info
}

func (c *Config) axles() int {
	if c.Sim.Enabled {
		return c.Sim.World.Axles
	}
	return len(c.Hardware.Axles)
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if !c.Ref().IsValid() {
		return errors.Errorf("invalid rover type/id %q", c.Ref().Name())
	}
	if n := c.axles(); n < 1 || n > 2 {
		return errors.Errorf("1 or 2 axles expected, got %d", n)
	}
	if !c.Sim.Enabled && c.Hardware.PWMFreq == 0 {
		return errors.New("pwm-freq must not be 0")
	}
	if c.Bus.MaxPublishers > 0 && c.Bus.MaxPublishers < c.links()+1 {
		return errors.Errorf("bus allows %d publishers, %d needed", c.Bus.MaxPublishers, c.links()+1)
	}
	return nil
}

// links counts the enabled command links.
func (c *Config) links() (n int) {
	for _, enabled := range []bool{c.Serial.Device != "", c.MQTTURL != "", c.Listen != ""} {
		if enabled {
			n++
		}
	}
	return
}

// RoverOptions converts the configuration to rover.Options.
func (c *Config) RoverOptions() rover.Options {
	opts := rover.DefaultOptions()
	opts.Bus = bus.Options{
		Capacity:       c.Bus.Capacity,
		MaxSubscribers: c.Bus.MaxSubscribers,
		MaxPublishers:  c.Bus.MaxPublishers,
	}
	opts.Ranger = c.Ranger
	opts.Cooldown = c.Autopilot.Cooldown
	opts.Retry = c.Autopilot.Retry
	return opts
}
