package main

import (
	"flag"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/config"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/remote/mqtt"
	"github.com/robotalks/rover/pkg/remote/websocket"
	"github.com/robotalks/rover/pkg/rover"
	"github.com/robotalks/rover/pkg/sim/see"
	"github.com/robotalks/rover/pkg/sim/world"
	"github.com/robotalks/rover/pkg/telemetry"
	"github.com/robotalks/rover/pkg/transport/serial"
)

var flags *config.Flags

func init() {
	flags = config.SetupFlags(flag.CommandLine)
}

func openSee(fn string) (io.WriteCloser, error) {
	if fn == "-" {
		return os.Stdout, nil
	}
	return os.Create(fn)
}

// simHardware builds the simulated world and its tasks.
func simHardware(conf *config.Config) (rover.Hardware, []framework.Runnable, io.Closer, error) {
	w := world.New(conf.Sim.World)
	var closer io.Closer
	if conf.Sim.See != "" {
		out, err := openSee(conf.Sim.See)
		if err != nil {
			return rover.Hardware{}, nil, nil, errors.Wrap(err, "see output")
		}
		w.OnChange = see.NewAdapter(out, conf.ID).Report
		if out != os.Stdout {
			closer = out
		}
	}
	return w.Hardware(), []framework.Runnable{framework.NamedRun("world", w)}, closer, nil
}

func run(conf *config.Config) error {
	var (
		hw     rover.Hardware
		tasks  []framework.Runnable
		closer io.Closer
		err    error
	)
	if conf.Sim.Enabled {
		hw, tasks, closer, err = simHardware(conf)
	} else {
		hw, closer, err = openHardware(conf.Hardware)
	}
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	r, err := rover.New(hw, conf.RoverOptions())
	if err != nil {
		return err
	}
	r.Reporter.AddSink(telemetry.LogSink)
	r.Add(tasks...)

	if conf.Serial.Device != "" {
		port, err := serial.Open(conf.Serial)
		if err != nil {
			return err
		}
		if err := r.AddLink("serial", port); err != nil {
			return err
		}
	}
	if conf.MQTTURL != "" {
		commander, err := r.NewCommander("mqtt")
		if err != nil {
			return err
		}
		endpoint, err := mqtt.NewEndpoint(conf.MQTTURL, conf.Info(), commander)
		if err != nil {
			return err
		}
		r.Reporter.AddSink(endpoint)
		r.Add(endpoint)
	}
	if conf.Listen != "" {
		pub, err := r.Bus.Publisher("websocket")
		if err != nil {
			return err
		}
		r.Add(websocket.NewServer(conf.Listen, r.State, pub, r.Reporter))
	}

	glog.Infof("rover %s started", conf.Ref().Name())
	return r.RunWith(framework.NewRunner().HandleSignals())
}

func main() {
	flag.Parse()
	conf, err := flags.Load()
	if err != nil {
		glog.Fatalf("config: %v", err)
	}
	if err := run(conf); err != nil {
		glog.Fatalf("rover: %v", err)
	}
	glog.Flush()
}
