// Package device reads Linux joystick devices (/dev/input/jsN).
package device

import "io"

// Event is either an AxisEvent or a ButtonEvent.
type Event interface {
	// IsInit indicates the event reports the initial state.
	IsInit() bool
	// Index returns either Axis or Button index.
	Index() int
}

// AxisEvent represents the change on an axis.
type AxisEvent interface {
	Event
	// Value is in [-32767, 32767].
	Value() int
}

// ButtonEvent represents the change on a button.
type ButtonEvent interface {
	Event
	Pressed() bool
}

// Device represents an opened joystick.
type Device interface {
	io.Closer
	Index() int
	Name() string
	// ReadEvent blocks until the next event.
	ReadEvent() (Event, error)
}

// OpenFunc opens the device with index, or the first available one if
// index is negative. It returns nil Device if none is found.
type OpenFunc func(index int) (Device, error)
