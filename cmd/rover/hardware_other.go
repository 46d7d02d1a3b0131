//go:build !linux
// +build !linux

package main

import (
	"io"

	"github.com/pkg/errors"

	"github.com/robotalks/rover/pkg/config"
	"github.com/robotalks/rover/pkg/rover"
)

func openHardware(config.Hardware) (rover.Hardware, io.Closer, error) {
	return rover.Hardware{}, nil, errors.New("hardware is only supported on linux, use -sim")
}
