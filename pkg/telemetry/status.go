// Package telemetry reports rover status changes to sinks.
package telemetry

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/rover/pkg/command"
)

// Status is the rover status message.
type Status struct {
	Mode        int32  `protobuf:"varint,1,opt,name=mode,proto3" json:"mode,omitempty"`
	Direction   int32  `protobuf:"varint,2,opt,name=direction,proto3" json:"direction,omitempty"`
	DistanceCm  uint32 `protobuf:"varint,3,opt,name=distance_cm,json=distanceCm,proto3" json:"distance_cm,omitempty"`
	SensorFault bool   `protobuf:"varint,4,opt,name=sensor_fault,json=sensorFault,proto3" json:"sensor_fault,omitempty"`
	// Seq increases with each published status.
	Seq uint64 `protobuf:"varint,5,opt,name=seq,proto3" json:"seq,omitempty"`
}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Status) ProtoMessage() {}

// ControlMode returns Mode as command.Mode.
func (m *Status) ControlMode() command.Mode {
	return command.Mode(m.Mode)
}

// ActiveDirection returns Direction as command.Direction.
func (m *Status) ActiveDirection() command.Direction {
	return command.Direction(m.Direction)
}

// Encode serializes a status.
func Encode(s *Status) ([]byte, error) {
	return proto.Marshal(s)
}

// Decode parses a serialized status.
func Decode(data []byte) (*Status, error) {
	s := &Status{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
