// Package all registers all shell commands.
package all

import (
	// command packages
	_ "github.com/robotalks/rover/pkg/cli/cmds/drive"
	_ "github.com/robotalks/rover/pkg/cli/cmds/joystick"
	_ "github.com/robotalks/rover/pkg/cli/cmds/watch"
)
