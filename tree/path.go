package tree

import (
	"strings"
)

// Path represents a location in the tree as an ordered sequence of segment
// names. The empty path addresses the root.
type Path []string

// FromString parses a slash-delimited path expression. Leading, trailing and
// repeated slashes are ignored, so "", "/" and "//" all address the root.
func FromString(s string) Path {
	if s == "" || s == "/" {
		return Path{}
	}

	var result Path
	for _, segment := range strings.Split(s, "/") {
		if segment != "" {
			result = append(result, segment)
		}
	}
	if result == nil {
		result = Path{}
	}
	return result
}

// String returns the canonical slash-delimited representation of the path.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}

// Segments returns a copy of the path's segments. The copy keeps callers from
// mutating the path through the returned slice.
func (p Path) Segments() []string {
	segments := make([]string, len(p))
	copy(segments, p)
	return segments
}

// Child returns a new path with one more segment appended. The receiver is
// not modified.
func (p Path) Child(segment string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, segment)
}

// Parent returns the path without its last segment and the removed segment.
// The root path returns itself and an empty segment.
func (p Path) Parent() (Path, string) {
	if len(p) == 0 {
		return Path{}, ""
	}
	parent := make(Path, len(p)-1)
	copy(parent, p[:len(p)-1])
	return parent, p[len(p)-1]
}

// IsRoot returns true if the path addresses the root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal returns true if both paths consist of the same segment sequence.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, segment := range p {
		if other[i] != segment {
			return false
		}
	}
	return true
}
