package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/rover/pkg/cli/sh"
	"github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/joystick"
)

var deviceIndex = -1

func init() {
	sh.SetupFlags()
	flag.IntVar(&deviceIndex, "device", deviceIndex, "Device index, -1 for auto detection.")
}

func main() {
	flag.Parse()

	conf := sh.NewConfig()
	connector, err := conf.NewConnector()
	if err != nil {
		glog.Fatal(err)
	}
	conn, err := connector.Connect(conf.Ref)
	if err != nil {
		glog.Fatalf("connect %s: %v", conf.Ref.Name(), err)
	}
	defer conn.Close()

	teleop := joystick.NewTeleop(conn)
	teleop.DeviceIndex = deviceIndex
	if err := framework.NewRunner().HandleSignals().Go(teleop).Wait(); err != nil {
		glog.Error(err)
	}
}
