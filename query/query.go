// Package query provides ordered, read-only views over snapshots. Ordering
// follows the sibling priority comparator; filters that are not implemented
// fail loudly instead of silently returning wrong results.
package query

import (
	"treesync/common"
	"treesync/engine"
	"treesync/tree"
)

// Child is one element of an ordered view: a child key and its snapshot.
type Child struct {
	Key      string
	Snapshot engine.Snapshot
}

// Query describes an ordered view over the children of a snapshot.
type Query struct {
	snap        engine.Snapshot
	limitToLast int
	err         error
}

// New creates a query over the children of the given snapshot. The default
// view returns all children in priority order.
func New(snap engine.Snapshot) *Query {
	return &Query{snap: snap}
}

// OrderByPriority orders children by their priority metadata: children
// without priority first, then numeric priorities ascending, then string
// priorities ascending, ties broken by key. This is the only ordering and is
// always applied; the method exists so call sites read naturally.
func (q *Query) OrderByPriority() *Query {
	return q
}

// LimitToLast keeps only the trailing n children after ordering.
func (q *Query) LimitToLast(n int) *Query {
	if n < 0 {
		q.err = common.ErrUnsupportedQuery{Filter: "limitToLast with negative count"}
		return q
	}
	q.limitToLast = n
	return q
}

// StartAt is not implemented and makes the query fail loudly.
func (q *Query) StartAt(value interface{}) *Query {
	q.err = common.ErrUnsupportedQuery{Filter: "startAt"}
	return q
}

// EndAt is not implemented and makes the query fail loudly.
func (q *Query) EndAt(value interface{}) *Query {
	q.err = common.ErrUnsupportedQuery{Filter: "endAt"}
	return q
}

// EqualTo is not implemented and makes the query fail loudly.
func (q *Query) EqualTo(value interface{}) *Query {
	q.err = common.ErrUnsupportedQuery{Filter: "equalTo"}
	return q
}

// Run materializes the view. A snapshot without object children yields an
// empty view.
func (q *Query) Run() ([]Child, error) {
	if q.err != nil {
		return nil, q.err
	}

	obj, ok := q.snap.Node().(*tree.ObjectNode)
	if !ok {
		return nil, nil
	}

	keys := tree.OrderedKeys(obj)
	if q.limitToLast > 0 && q.limitToLast < len(keys) {
		keys = keys[len(keys)-q.limitToLast:]
	}

	children := make([]Child, 0, len(keys))
	for _, key := range keys {
		children = append(children, Child{
			Key:      key,
			Snapshot: q.snap.Child(key),
		})
	}
	return children, nil
}
