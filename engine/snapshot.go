package engine

import (
	"treesync/tree"
)

// Snapshot is a read-only, point-in-time view of the subtree at a path. The
// underlying node is a deep copy taken under the engine lock, so a snapshot
// stays safe to read after further mutations but does not track them.
type Snapshot struct {
	path tree.Path
	node tree.Node
}

// NewSnapshot wraps a node copy and its path as a snapshot. A nil node means
// nothing exists at the path.
func NewSnapshot(path tree.Path, node tree.Node) Snapshot {
	return Snapshot{path: path, node: node}
}

// Exists returns true if a value is present at the snapshot's path.
func (s Snapshot) Exists() bool {
	return s.node != nil
}

// Path returns the path the snapshot was taken at.
func (s Snapshot) Path() tree.Path {
	return s.path
}

// Node returns the copied node, or nil if absent.
func (s Snapshot) Node() tree.Node {
	return s.node
}

// Value returns a plain Go representation of the subtree without priority
// metadata, or nil if absent.
func (s Snapshot) Value() interface{} {
	if s.node == nil {
		return nil
	}
	return s.node.Value()
}

// Export returns the subtree in export format, with priorities embedded
// under the reserved ".priority" and ".value" keys.
func (s Snapshot) Export() interface{} {
	return tree.Export(s.node)
}

// Priority returns the ordering metadata at the snapshot's path, or nil.
func (s Snapshot) Priority() interface{} {
	if s.node == nil {
		return nil
	}
	return s.node.Priority()
}

// Child returns a snapshot of a direct child. The child view shares the
// already-copied subtree, which is fine because snapshots are read-only.
func (s Snapshot) Child(segment string) Snapshot {
	childPath := s.path.Child(segment)
	obj, ok := s.node.(*tree.ObjectNode)
	if !ok {
		return Snapshot{path: childPath}
	}
	return Snapshot{path: childPath, node: obj.Get(segment)}
}
