package engine

import (
	"encoding/json"

	"treesync/common"
	"treesync/tree"
)

// Behavior represents how a message mutates the tree.
type Behavior string

const (
	// BehaviorReplace substitutes the subtree at the target path wholesale.
	BehaviorReplace Behavior = "replace"
	// BehaviorMerge merges the payload's direct children into the target.
	BehaviorMerge Behavior = "merge"
)

// StatusFunc reports the outcome of a local apply and enqueue. It is invoked
// exactly once per call, synchronously, with nil on success.
type StatusFunc func(err error)

// Message is the atomic unit of mutation exchanged with the transport.
// A nil payload always means "delete the subtree at the target path",
// regardless of behavior.
type Message struct {
	// ID is a unique, time-ordered identifier for the message.
	ID int64
	// Behavior selects replace or merge semantics.
	Behavior Behavior
	// Path is the target location in the tree.
	Path tree.Path
	// Payload is the incoming subtree, or nil for delete.
	Payload tree.Node
	// Priority is optional ordering metadata attached to the new subtree.
	Priority interface{}

	// status is the caller-supplied completion callback. It is local only
	// and never crosses the wire.
	status StatusFunc
}

// wireMessage is the JSON encoding of a Message.
type wireMessage struct {
	ID       int64       `json:"id"`
	Behavior Behavior    `json:"behavior"`
	Path     string      `json:"path"`
	Payload  interface{} `json:"payload"`
	Priority interface{} `json:"priority,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:       m.ID,
		Behavior: m.Behavior,
		Path:     m.Path.String(),
		Payload:  tree.Export(m.Payload),
		Priority: m.Priority,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       int64           `json:"id"`
		Behavior Behavior        `json:"behavior"`
		Path     string          `json:"path"`
		Payload  json.RawMessage `json:"payload"`
		Priority interface{}     `json:"priority"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Behavior {
	case BehaviorReplace, BehaviorMerge:
	default:
		return common.ErrInvalidMessage{Message: "unknown behavior: " + string(wire.Behavior)}
	}

	var payload tree.Node
	if len(wire.Payload) > 0 {
		var value interface{}
		if err := json.Unmarshal(wire.Payload, &value); err != nil {
			return common.ErrMalformedPayload{Payload: string(wire.Payload), Cause: err}
		}
		if value != nil {
			payload = tree.FromValue(value)
		}
	}

	m.ID = wire.ID
	m.Behavior = wire.Behavior
	m.Path = tree.FromString(wire.Path)
	m.Payload = payload
	m.Priority = wire.Priority
	return nil
}
