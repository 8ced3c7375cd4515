package tree

import (
	"sort"
)

// NodeType represents the type of a tree node.
type NodeType string

const (
	// NodeTypeObject represents a mapping from segment names to child nodes.
	NodeTypeObject NodeType = "object"
	// NodeTypeScalar represents a leaf value (string, number, bool or null).
	NodeTypeScalar NodeType = "scalar"
)

// Node is a value in the synchronized tree. The model is a closed tagged
// union: ObjectNode for mappings and ScalarNode for leaves. Ordered lists are
// emulated with pushed object keys rather than a native list type.
//
// A node may carry an optional priority side-value. The priority only affects
// sibling ordering, never value equality or merging.
type Node interface {
	// Type returns the type of the node.
	Type() NodeType

	// Value returns a plain Go representation of the node without any
	// priority metadata. Object values are freshly built maps, safe to
	// retain outside the engine lock.
	Value() interface{}

	// Priority returns the ordering metadata of the node, or nil.
	Priority() interface{}

	// SetPriority replaces the ordering metadata of the node.
	SetPriority(priority interface{})

	// Clone returns a deep copy of the node.
	Clone() Node
}

// ScalarNode is a leaf node holding a string, number, bool or null value.
type ScalarNode struct {
	value    interface{}
	priority interface{}
}

// NewScalarNode creates a new scalar node.
func NewScalarNode(value interface{}) *ScalarNode {
	return &ScalarNode{value: value}
}

// Type returns the type of the node.
func (n *ScalarNode) Type() NodeType {
	return NodeTypeScalar
}

// Value returns the scalar value.
func (n *ScalarNode) Value() interface{} {
	return n.value
}

// SetValue replaces the scalar value in place, preserving node identity.
func (n *ScalarNode) SetValue(value interface{}) {
	n.value = value
}

// IsNull returns true if the scalar holds an explicit null.
func (n *ScalarNode) IsNull() bool {
	return n.value == nil
}

// Priority returns the ordering metadata of the node, or nil.
func (n *ScalarNode) Priority() interface{} {
	return n.priority
}

// SetPriority replaces the ordering metadata of the node.
func (n *ScalarNode) SetPriority(priority interface{}) {
	n.priority = priority
}

// Clone returns a copy of the node.
func (n *ScalarNode) Clone() Node {
	return &ScalarNode{value: n.value, priority: n.priority}
}

// ObjectNode is an interior node mapping segment names to children.
type ObjectNode struct {
	children map[string]Node
	priority interface{}
}

// NewObjectNode creates a new empty object node.
func NewObjectNode() *ObjectNode {
	return &ObjectNode{children: make(map[string]Node)}
}

// Type returns the type of the node.
func (n *ObjectNode) Type() NodeType {
	return NodeTypeObject
}

// Value returns a plain map representation of the subtree.
func (n *ObjectNode) Value() interface{} {
	result := make(map[string]interface{}, len(n.children))
	for key, child := range n.children {
		result[key] = child.Value()
	}
	return result
}

// Get returns the child with the given key, or nil if absent.
func (n *ObjectNode) Get(key string) Node {
	return n.children[key]
}

// Set assigns the child with the given key, replacing any previous child.
func (n *ObjectNode) Set(key string, child Node) {
	n.children[key] = child
}

// Delete removes the child with the given key. It returns true if a child
// was removed.
func (n *ObjectNode) Delete(key string) bool {
	if _, ok := n.children[key]; !ok {
		return false
	}
	delete(n.children, key)
	return true
}

// Keys returns the child keys in ascending lexicographic order.
func (n *ObjectNode) Keys() []string {
	keys := make([]string, 0, len(n.children))
	for key := range n.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of children.
func (n *ObjectNode) Len() int {
	return len(n.children)
}

// Priority returns the ordering metadata of the node, or nil.
func (n *ObjectNode) Priority() interface{} {
	return n.priority
}

// SetPriority replaces the ordering metadata of the node.
func (n *ObjectNode) SetPriority(priority interface{}) {
	n.priority = priority
}

// Clone returns a deep copy of the subtree.
func (n *ObjectNode) Clone() Node {
	clone := &ObjectNode{
		children: make(map[string]Node, len(n.children)),
		priority: n.priority,
	}
	for key, child := range n.children {
		clone.children[key] = child.Clone()
	}
	return clone
}

// IsNull returns true if the node is an explicitly null scalar. A nil Node is
// also treated as null.
func IsNull(node Node) bool {
	if node == nil {
		return true
	}
	scalar, ok := node.(*ScalarNode)
	return ok && scalar.IsNull()
}
