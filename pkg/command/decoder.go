package command

import "unicode/utf8"

// DefaultCapacity is the maximum length of a line before it's
// forcibly split.
const DefaultCapacity = 10

// Terminators.
const (
	LF byte = '\n'
	CR byte = '\r'
)

// Decoder accumulates bytes into lines and decodes them.
// It's not safe for concurrent use; each byte stream owns one.
type Decoder struct {
	buf []byte
}

// NewDecoder creates a Decoder with the given capacity. A capacity
// less than 1 uses DefaultCapacity.
func NewDecoder(capacity int) *Decoder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Decoder{buf: make([]byte, 0, capacity)}
}

// Capacity returns the line capacity.
func (d *Decoder) Capacity() int {
	return cap(d.buf)
}

// Buffered returns the number of bytes waiting for a terminator.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed consumes one byte. It returns a Command and true when a
// line is closed, either by a terminator or because the buffer
// was already full. In the latter case b starts the next line.
func (d *Decoder) Feed(b byte) (Command, bool) {
	term := b == LF || b == CR
	if !term && len(d.buf) < cap(d.buf) {
		d.buf = append(d.buf, b)
		return Command{}, false
	}
	cmd := Decode(d.buf)
	d.buf = d.buf[:0]
	if !term {
		d.buf = append(d.buf, b)
	}
	return cmd, true
}

// Reset drops any partial line.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Decode maps a line (without terminator) to a Command.
func Decode(line []byte) Command {
	if !utf8.Valid(line) {
		return Command{Line: string(line)}
	}
	cmd := Command{Line: string(line), ModeSwitch: true}
	switch cmd.Line {
	case TokenForward:
		cmd.Direction = Forward
	case TokenBack:
		cmd.Direction = Back
	case TokenLeft:
		cmd.Direction = Left
	case TokenRight:
		cmd.Direction = Right
	case TokenStop:
		cmd.Direction = Stop
	case TokenAutoPilot:
		cmd.Mode = AutoPilot
	default:
		cmd.ModeSwitch = false
	}
	return cmd
}
