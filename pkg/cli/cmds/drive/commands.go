package drive

import (
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rover/pkg/cli/sh"
	"github.com/robotalks/rover/pkg/command"
)

// Send sends one command line to the connected rover.
func Send(c *ishell.Context, line string) {
	s := sh.ShellFrom(c)
	if err := s.Send(line); err != nil {
		c.Err(err)
		return
	}
	if s.OutputJSON {
		c.Printf("{\"sent\":%q}\n", line)
		return
	}
	c.Println("OK")
}

func tokenCmd(name, alias, token, help string) *ishell.Cmd {
	return &ishell.Cmd{
		Name:    name,
		Aliases: []string{alias},
		Help:    help,
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			Send(c, token)
		}),
	}
}

var (
	// ForwardCmd drives forward.
	ForwardCmd = tokenCmd("fwd", command.TokenForward, command.TokenForward, "drive forward")
	// BackCmd drives backward.
	BackCmd = tokenCmd("back", command.TokenBack, command.TokenBack, "drive backward")
	// LeftCmd spins left.
	LeftCmd = tokenCmd("left", command.TokenLeft, command.TokenLeft, "spin left")
	// RightCmd spins right.
	RightCmd = tokenCmd("right", command.TokenRight, command.TokenRight, "spin right")
	// StopCmd stops and switches to manual mode.
	StopCmd = tokenCmd("stop", command.TokenStop, command.TokenStop, "stop")
	// AutoCmd switches to autopilot.
	AutoCmd = tokenCmd("auto", command.TokenAutoPilot, command.TokenAutoPilot, "switch to autopilot")

	// RawCmd sends text as is.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "TEXT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			Send(c, strings.Join(c.Args, " "))
		}),
	}
)

func init() {
	sh.AddCmds(ForwardCmd, BackCmd, LeftCmd, RightCmd, StopCmd, AutoCmd, &RawCmd)
}
