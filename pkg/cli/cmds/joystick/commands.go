package joystick

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rover/pkg/cli/sh"
	"github.com/robotalks/rover/pkg/joystick"
)

var (
	lock   sync.Mutex
	cancel context.CancelFunc
)

func stop() bool {
	lock.Lock()
	defer lock.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	cancel = nil
	return true
}

var (
	// JoystickCmd drives the connected rover with a joystick.
	JoystickCmd = ishell.Cmd{
		Name:    "js",
		Aliases: []string{"joystick"},
		Help:    "[INDEX]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			teleop := joystick.NewTeleop(sh.ShellFrom(c).Conn.Conn)
			if len(c.Args) > 0 {
				index, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid INDEX: %v", err))
					return
				}
				teleop.DeviceIndex = index
			}
			stop()
			ctx, cancelFn := context.WithCancel(context.Background())
			lock.Lock()
			cancel = cancelFn
			lock.Unlock()
			go teleop.Run(ctx)
			c.Println("joystick started")
		}),
	}

	// JoystickStopCmd stops driving with the joystick.
	JoystickStopCmd = ishell.Cmd{
		Name:    "js.stop",
		Aliases: []string{"jss"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if !stop() {
				c.Println("joystick not started")
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&JoystickCmd,
		&JoystickStopCmd,
	)
}
