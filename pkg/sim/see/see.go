// Package see streams a simulated world to the github.com/robotalks/see
// visualizer as JSON messages, one batch per line.
package see

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/robotalks/rover/pkg/sim"
	"github.com/robotalks/rover/pkg/sim/world"
)

// Message is the message for see.
type Message struct {
	Action   string `json:"action"`
	Object   Object `json:"object,omitempty"`
	RemoveID string `json:"id,omitempty"`
}

// Actions
const (
	ActionReset  = "reset"
	ActionObject = "object"
	ActionRemove = "remove"
)

// Properties
const (
	PropID     = "id"
	PropType   = "type"
	PropRect   = "rect"
	PropOrigin = "origin"
	PropRadius = "radius"
	PropRotate = "rotate"
	PropStyle  = "style"
)

// Object is the data model of a visible object.
type Object map[string]interface{}

// Rect is object rect area.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Pos is a position.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewObject creates Object.
func NewObject(typ, id string) Object {
	return Object{PropID: id, PropType: typ}
}

// Rc sets rect.
func (o Object) Rc(rc sim.Rect) Object {
	o[PropRect] = &Rect{X: rc.X, Y: rc.Y, W: rc.CX, H: rc.CY}
	return o
}

// At sets origin.
func (o Object) At(p sim.Pos2D) Object {
	o[PropOrigin] = &Pos{X: p.X, Y: p.Y}
	return o
}

// Radius sets radius.
func (o Object) Radius(r float64) Object {
	o[PropRadius] = r
	return o
}

// Rotate sets rotation in degrees.
func (o Object) Rotate(deg float64) Object {
	o[PropRotate] = deg
	return o
}

// With sets a custom property.
func (o Object) With(key string, val interface{}) Object {
	o[key] = val
	return o
}

// Adapter converts world snapshots to see messages. The first report
// resets the view and draws the arena and walls; later reports only
// update the rover.
type Adapter struct {
	Writer  io.Writer
	RoverID string

	lock    sync.Mutex
	started bool
}

// NewAdapter creates an Adapter writing to w.
func NewAdapter(w io.Writer, roverID string) *Adapter {
	return &Adapter{Writer: w, RoverID: roverID}
}

// Messages converts a snapshot.
func (a *Adapter) Messages(s world.Snapshot) []Message {
	a.lock.Lock()
	defer a.lock.Unlock()
	var msgs []Message
	if !a.started {
		a.started = true
		msgs = append(msgs,
			Message{Action: ActionReset},
			Message{Action: ActionObject, Object: NewObject("arena", "arena").Rc(sim.Rect{
				Pos2D:  sim.Pos2D{X: -s.Arena.CX / 2, Y: -s.Arena.CY / 2},
				Size2D: s.Arena,
			})},
		)
		for i, rc := range s.Walls {
			msgs = append(msgs, Message{Action: ActionObject, Object: NewObject("wall", fmt.Sprintf("wall-%d", i)).Rc(rc)})
		}
	}
	style := "normal"
	if s.Bumped {
		style = "bumped"
	}
	msgs = append(msgs, Message{
		Action: ActionObject,
		Object: NewObject("rover", a.RoverID).
			At(s.Pose.Pos2D).
			Radius(s.Radius).
			Rotate(s.Pose.Orientation.Degrees()).
			With(PropStyle, style),
	})
	return msgs
}

// Report writes the messages of a snapshot as one JSON line. It can be
// used as world.World.OnChange.
func (a *Adapter) Report(s world.Snapshot) {
	encoded, err := json.Marshal(a.Messages(s))
	if err != nil {
		return
	}
	a.Writer.Write(append(encoded, '\n'))
}
