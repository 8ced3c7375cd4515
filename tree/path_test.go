package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	// Root forms
	assert.Equal(t, Path{}, FromString(""))
	assert.Equal(t, Path{}, FromString("/"))
	assert.Equal(t, Path{}, FromString("//"))

	// Regular paths
	assert.Equal(t, Path{"a"}, FromString("/a"))
	assert.Equal(t, Path{"a", "b"}, FromString("/a/b"))
	assert.Equal(t, Path{"a", "b"}, FromString("a/b/"))
	assert.Equal(t, Path{"a", "b"}, FromString("//a//b"))
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "/", Path{}.String())
	assert.Equal(t, "/a/b", Path{"a", "b"}.String())

	// Round trip
	assert.Equal(t, "/users/alice", FromString("/users/alice").String())
}

func TestPathChild(t *testing.T) {
	parent := FromString("/a")
	child := parent.Child("b")

	assert.Equal(t, Path{"a", "b"}, child)
	// The parent must not be modified.
	assert.Equal(t, Path{"a"}, parent)

	// Two children derived from the same parent must not alias.
	c1 := parent.Child("x")
	c2 := parent.Child("y")
	assert.Equal(t, Path{"a", "x"}, c1)
	assert.Equal(t, Path{"a", "y"}, c2)
}

func TestPathParent(t *testing.T) {
	parent, leaf := FromString("/a/b/c").Parent()
	assert.Equal(t, Path{"a", "b"}, parent)
	assert.Equal(t, "c", leaf)

	root, leaf := Path{}.Parent()
	assert.True(t, root.IsRoot())
	assert.Equal(t, "", leaf)
}

func TestPathSegments(t *testing.T) {
	p := FromString("/a/b")
	segments := p.Segments()
	assert.Equal(t, []string{"a", "b"}, segments)

	// Mutating the returned slice must not affect the path.
	segments[0] = "z"
	assert.Equal(t, Path{"a", "b"}, p)
}

func TestPathEqual(t *testing.T) {
	assert.True(t, FromString("/a/b").Equal(FromString("a/b")))
	assert.True(t, Path{}.Equal(FromString("/")))
	assert.False(t, FromString("/a").Equal(FromString("/a/b")))
	assert.False(t, FromString("/a").Equal(FromString("/b")))
}
