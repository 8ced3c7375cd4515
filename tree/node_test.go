package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarNode(t *testing.T) {
	node := NewScalarNode("hello")
	assert.Equal(t, NodeTypeScalar, node.Type())
	assert.Equal(t, "hello", node.Value())
	assert.False(t, node.IsNull())
	assert.Nil(t, node.Priority())

	// In-place value replacement preserves identity.
	node.SetValue(float64(42))
	assert.Equal(t, float64(42), node.Value())

	node.SetPriority("p")
	assert.Equal(t, "p", node.Priority())

	null := NewScalarNode(nil)
	assert.True(t, null.IsNull())
}

func TestObjectNode(t *testing.T) {
	node := NewObjectNode()
	assert.Equal(t, NodeTypeObject, node.Type())
	assert.Equal(t, 0, node.Len())
	assert.Nil(t, node.Get("missing"))

	node.Set("b", NewScalarNode(float64(2)))
	node.Set("a", NewScalarNode(float64(1)))
	assert.Equal(t, 2, node.Len())
	assert.Equal(t, []string{"a", "b"}, node.Keys())
	assert.Equal(t, map[string]interface{}{"a": float64(1), "b": float64(2)}, node.Value())

	assert.True(t, node.Delete("a"))
	assert.False(t, node.Delete("a"))
	assert.Equal(t, 1, node.Len())
}

func TestObjectNodeClone(t *testing.T) {
	node := NewObjectNode()
	node.Set("child", NewScalarNode("v"))
	node.SetPriority(float64(1))

	clone := node.Clone().(*ObjectNode)
	assert.Equal(t, node.Value(), clone.Value())
	assert.Equal(t, node.Priority(), clone.Priority())

	// The clone must be a deep copy.
	clone.Get("child").(*ScalarNode).SetValue("changed")
	assert.Equal(t, "v", node.Get("child").Value())
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(NewScalarNode(nil)))
	assert.False(t, IsNull(NewScalarNode("x")))
	assert.False(t, IsNull(NewObjectNode()))
}
