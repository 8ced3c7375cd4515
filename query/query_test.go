package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treesync/common"
	"treesync/engine"
	"treesync/tree"
)

func seededEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(nil)
	require.NoError(t, err)

	e.SetWithPriority(tree.FromString("/scores/carol"), float64(30), float64(3), nil)
	e.SetWithPriority(tree.FromString("/scores/alice"), float64(10), float64(1), nil)
	e.SetWithPriority(tree.FromString("/scores/bob"), float64(20), float64(2), nil)
	e.Set(tree.FromString("/scores/dave"), float64(0), nil)
	return e
}

func keys(children []Child) []string {
	result := make([]string, 0, len(children))
	for _, child := range children {
		result = append(result, child.Key)
	}
	return result
}

func TestOrderByPriority(t *testing.T) {
	e := seededEngine(t)

	children, err := New(e.SnapshotFor(tree.FromString("/scores"))).OrderByPriority().Run()
	require.NoError(t, err)

	// No priority first, then numeric ascending.
	assert.Equal(t, []string{"dave", "alice", "bob", "carol"}, keys(children))
	assert.Equal(t, float64(10), children[1].Snapshot.Value())
}

func TestLimitToLast(t *testing.T) {
	e := seededEngine(t)
	snap := e.SnapshotFor(tree.FromString("/scores"))

	children, err := New(snap).OrderByPriority().LimitToLast(2).Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, keys(children))

	// A limit larger than the child count returns everything.
	children, err = New(snap).LimitToLast(10).Run()
	require.NoError(t, err)
	assert.Len(t, children, 4)
}

func TestLimitToLastNegative(t *testing.T) {
	e := seededEngine(t)

	_, err := New(e.SnapshotFor(tree.FromString("/scores"))).LimitToLast(-1).Run()
	assert.Error(t, err)
	assert.IsType(t, common.ErrUnsupportedQuery{}, err)
}

func TestUnsupportedFiltersFailLoudly(t *testing.T) {
	e := seededEngine(t)
	snap := e.SnapshotFor(tree.FromString("/scores"))

	_, err := New(snap).StartAt("a").Run()
	assert.IsType(t, common.ErrUnsupportedQuery{}, err)

	_, err = New(snap).EndAt("z").Run()
	assert.IsType(t, common.ErrUnsupportedQuery{}, err)

	_, err = New(snap).EqualTo("x").Run()
	assert.IsType(t, common.ErrUnsupportedQuery{}, err)
}

func TestRunOnScalarSnapshot(t *testing.T) {
	e := seededEngine(t)

	children, err := New(e.SnapshotFor(tree.FromString("/scores/alice"))).Run()
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestRunOnAbsentSnapshot(t *testing.T) {
	e := seededEngine(t)

	children, err := New(e.SnapshotFor(tree.FromString("/missing"))).Run()
	require.NoError(t, err)
	assert.Empty(t, children)
}
