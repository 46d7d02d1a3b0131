package watch

import (
	"encoding/json"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rover/pkg/cli/sh"
	"github.com/robotalks/rover/pkg/telemetry"
)

var (
	// WatchCmd streams status of the connected rover.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "stream status until unwatch",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			s.Conn.Watch(func(status *telemetry.Status) {
				if s.OutputJSON {
					out, err := json.Marshal(status)
					if err != nil {
						c.Err(err)
						return
					}
					c.Println(string(out))
					return
				}
				c.Println(sh.FormatStatus(status))
			})
		}),
	}

	// UnwatchCmd stops streaming status.
	UnwatchCmd = ishell.Cmd{
		Name:    "unwatch",
		Aliases: []string{"uw"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if !sh.ShellFrom(c).Conn.Unwatch() {
				c.Println("not watching")
			}
		}),
	}
)

func init() {
	sh.AddCmds(&WatchCmd, &UnwatchCmd)
}
