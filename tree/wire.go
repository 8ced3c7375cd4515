package tree

import (
	"encoding/json"
	"strings"

	"treesync/common"
)

// Reserved keys in the export format. A scalar with a priority is wrapped as
// {".value": v, ".priority": p}; an object carries its priority as a
// ".priority" sibling of its children.
const (
	PriorityKey = ".priority"
	ValueKey    = ".value"
)

// FromValue builds a node from a decoded JSON-compatible value. Maps become
// object nodes, everything else becomes a scalar. The reserved ".priority"
// and ".value" keys are folded back into node metadata so exported trees
// round-trip.
func FromValue(value interface{}) Node {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return NewScalarNode(value)
	}

	priority := obj[PriorityKey]

	// A {".value": v} wrapper denotes a scalar with priority.
	if raw, ok := obj[ValueKey]; ok {
		node := NewScalarNode(raw)
		node.SetPriority(priority)
		return node
	}

	node := NewObjectNode()
	node.SetPriority(priority)
	for key, child := range obj {
		if key == PriorityKey {
			continue
		}
		node.Set(key, FromValue(child))
	}
	return node
}

// Export returns a JSON-compatible representation of the node with priority
// metadata embedded under the reserved keys. Export is the inverse of
// FromValue.
func Export(node Node) interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *ObjectNode:
		result := make(map[string]interface{}, n.Len()+1)
		for _, key := range n.Keys() {
			result[key] = Export(n.Get(key))
		}
		if n.Priority() != nil {
			result[PriorityKey] = n.Priority()
		}
		return result
	default:
		if node.Priority() != nil {
			return map[string]interface{}{
				ValueKey:    node.Value(),
				PriorityKey: node.Priority(),
			}
		}
		return node.Value()
	}
}

// ParseRaw parses a raw text payload into a node. Text starting with '{' is
// parsed as a structured JSON object; a parse failure is a malformed payload
// error. Anything else is treated as a scalar: JSON literals (numbers, bools,
// null, quoted strings) parse as such, bare text is kept as a plain string.
// A null payload parses to a nil node, meaning delete.
func ParseRaw(raw string) (Node, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, common.ErrMalformedPayload{Payload: raw, Cause: err}
		}
		return FromValue(obj), nil
	}

	var scalar interface{}
	if err := json.Unmarshal([]byte(trimmed), &scalar); err != nil {
		// Not a JSON literal, keep the raw text as a string value.
		return NewScalarNode(raw), nil
	}
	if scalar == nil {
		return nil, nil
	}
	return NewScalarNode(scalar), nil
}
