// Package remote defines how rovers are identified and described to
// remote operators.
package remote

import "strings"

// Ref is a reference to a rover.
type Ref struct {
	// Type is the rover type, e.g. "rover".
	Type string
	// ID is the unique ID of the device.
	ID string
}

// Name is Type/ID.
func (r Ref) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates both Type and ID are set.
func (r Ref) IsValid() bool {
	return r.Type != "" && r.ID != "" && !strings.ContainsAny(r.Type+r.ID, "/+#")
}

// Meta describes a rover.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Info is a rover reference with its description.
type Info struct {
	Ref  Ref  `json:"ref"`
	Meta Meta `json:"meta"`
}

// Topics under the rover name.
const (
	TopicCmd    = "cmd"
	TopicStatus = "status"
	TopicMeta   = "meta"
)

// Topic returns the topic of the rover under its name.
func (r Ref) Topic(sub string) string {
	return r.Name() + "/" + sub
}
