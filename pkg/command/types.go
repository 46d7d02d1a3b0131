package command

// Direction is the direction command for the chassis.
type Direction int

// Directions.
const (
	Unknown Direction = iota
	Forward
	Back
	Left
	Right
	Stop
)

var directionNames = [...]string{
	Unknown: "unknown",
	Forward: "forward",
	Back:    "back",
	Left:    "left",
	Right:   "right",
	Stop:    "stop",
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return directionNames[Unknown]
	}
	return directionNames[d]
}

// IsValid indicates the direction can be applied to a chassis.
func (d Direction) IsValid() bool {
	return d > Unknown && d <= Stop
}

// Token returns the protocol token for the direction.
func (d Direction) Token() string {
	switch d {
	case Forward:
		return TokenForward
	case Back:
		return TokenBack
	case Left:
		return TokenLeft
	case Right:
		return TokenRight
	case Stop:
		return TokenStop
	}
	return ""
}

// Mode is the control mode.
type Mode int

// Modes.
const (
	Manual Mode = iota
	AutoPilot
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == AutoPilot {
		return "autopilot"
	}
	return "manual"
}

// Tokens.
const (
	TokenForward   = "f"
	TokenBack      = "b"
	TokenLeft      = "l"
	TokenRight     = "r"
	TokenStop      = "s"
	TokenAutoPilot = "a"
)

// Command is the result of decoding one line.
type Command struct {
	// Line is the raw line without terminator.
	Line string
	// Direction is Unknown when the line is not a direction token,
	// including the autopilot switch.
	Direction Direction
	// ModeSwitch is set when the line is a recognized token, and
	// Mode is the mode the token selects.
	ModeSwitch bool
	Mode       Mode
}

// IsUnknown indicates the line was not recognized.
func (c Command) IsUnknown() bool {
	return !c.ModeSwitch
}
