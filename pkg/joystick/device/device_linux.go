//go:build linux
// +build linux

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	jsiocgName = 0x80ff6a13

	evButton uint8 = 0x01
	evAxis   uint8 = 0x02
	evInit   uint8 = 0x80

	maxDevices = 32
)

type device struct {
	file  *os.File
	index int
	name  string
}

// Open implements OpenFunc.
func Open(index int) (Device, error) {
	if index >= 0 {
		return open(index)
	}
	for index = 0; index < maxDevices; index++ {
		d, err := open(index)
		if os.IsNotExist(err) {
			continue
		}
		return d, err
	}
	return nil, nil
}

func open(index int) (Device, error) {
	f, err := os.Open(fmt.Sprintf("/dev/input/js%d", index))
	if err != nil {
		return nil, err
	}
	var buf [256]byte
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), jsiocgName, uintptr(unsafe.Pointer(&buf[0]))); errno != 0 {
		f.Close()
		return nil, errno
	}
	name := buf[:]
	if pos := bytes.IndexByte(name, 0); pos >= 0 {
		name = name[:pos]
	}
	return &device{file: f, index: index, name: string(name)}, nil
}

func (d *device) Close() error { return d.file.Close() }
func (d *device) Index() int   { return d.index }
func (d *device) Name() string { return d.name }

// js_event from linux/joystick.h.
type rawEvent struct {
	Time   uint32
	Val    int16
	Type   uint8
	Number uint8
}

func (d *device) ReadEvent() (Event, error) {
	for {
		var ev rawEvent
		if err := binary.Read(d.file, binary.LittleEndian, &ev); err != nil {
			return nil, err
		}
		switch ev.Type &^ evInit {
		case evAxis:
			return axisEvent(ev), nil
		case evButton:
			return buttonEvent(ev), nil
		}
	}
}

type axisEvent rawEvent

func (e axisEvent) IsInit() bool { return e.Type&evInit != 0 }
func (e axisEvent) Index() int   { return int(e.Number) }
func (e axisEvent) Value() int   { return int(e.Val) }

type buttonEvent rawEvent

func (e buttonEvent) IsInit() bool  { return e.Type&evInit != 0 }
func (e buttonEvent) Index() int    { return int(e.Number) }
func (e buttonEvent) Pressed() bool { return e.Val != 0 }
