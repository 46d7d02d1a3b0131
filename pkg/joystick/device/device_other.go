//go:build !linux
// +build !linux

package device

import "errors"

// Open implements OpenFunc.
func Open(index int) (Device, error) {
	return nil, errors.New("joystick is only supported on linux")
}
