package rover

import (
	"sync"

	"github.com/robotalks/rover/pkg/command"
)

// Observer is notified of state changes.
type Observer interface {
	ModeChanged(command.Mode)
	DirectionChanged(command.Direction)
}

// State is the control mode and the direction last applied to the
// chassis. Each is guarded separately and no lock is held while
// notifying the observer.
type State struct {
	Observer Observer

	modeLock sync.Mutex
	mode     command.Mode

	activeLock sync.Mutex
	active     command.Direction
}

// Mode implements autopilot.State.
func (s *State) Mode() command.Mode {
	s.modeLock.Lock()
	defer s.modeLock.Unlock()
	return s.mode
}

// SetMode sets the control mode and reports whether it changed.
func (s *State) SetMode(m command.Mode) bool {
	s.modeLock.Lock()
	changed := s.mode != m
	s.mode = m
	s.modeLock.Unlock()
	if changed && s.Observer != nil {
		s.Observer.ModeChanged(m)
	}
	return changed
}

// Active implements autopilot.State.
func (s *State) Active() command.Direction {
	s.activeLock.Lock()
	defer s.activeLock.Unlock()
	return s.active
}

// SetActive records the direction applied to the chassis.
func (s *State) SetActive(d command.Direction) {
	s.activeLock.Lock()
	changed := s.active != d
	s.active = d
	s.activeLock.Unlock()
	if changed && s.Observer != nil {
		s.Observer.DirectionChanged(d)
	}
}
