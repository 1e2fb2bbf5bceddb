// Package plan implements the hierarchical action container: a tree of
// nodes keyed by relative path, each carrying at most one action, with
// the propagation operations that keep ancestor actions consistent with
// their descendants as the user edits the tree.
package plan

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/action"
)

// ErrInvariantViolation indicates an attempt to add an action whose path
// does not lie under the tree's root.
var ErrInvariantViolation = errors.New("invariant violation")

// Node is one path's slot in the tree. A node with no action is an
// implicit ancestor: it exists because a descendant was inserted, but
// nothing has been assigned to it directly.
type Node struct {
	Path     string
	Action   action.Action
	Parent   string
	Children []string
}

// Tree is a map-indexed arena: nodes reference each other by relative
// path rather than by pointer, giving O(1) ancestor/descendant lookup
// without Go's awkward parent-back-reference-via-pointer-cycle
// ergonomics.
type Tree struct {
	nodes map[string]*Node
	root  string
}

// New constructs an empty Tree rooted at the empty path.
func New() *Tree {
	return &Tree{
		nodes: map[string]*Node{"": {Path: ""}},
		root:  "",
	}
}

func parentPath(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// ensureNode returns the node at path, creating it (and any missing
// ancestors) as an implicit, action-less node if necessary.
func (t *Tree) ensureNode(path string) *Node {
	if n, ok := t.nodes[path]; ok {
		return n
	}
	n := &Node{Path: path, Parent: parentPath(path)}
	t.nodes[path] = n
	parent := t.ensureNode(n.Parent)
	parent.Children = append(parent.Children, path)
	sort.Strings(parent.Children)
	return n
}

// Add inserts act at path, creating any missing ancestor nodes. path
// must lie under the tree's root (the empty string); a path that does
// not is an InvariantViolation, a programming error the tree refuses
// rather than silently accepting.
func (t *Tree) Add(path string, act action.Action) error {
	if path != "" && strings.HasPrefix(path, "/") {
		return errors.Wrapf(ErrInvariantViolation, "path %q must be relative", path)
	}
	n := t.ensureNode(path)
	n.Action = act
	return nil
}

// Get returns the node at path, or nil if nothing has been inserted
// there (not even implicitly).
func (t *Tree) Get(path string) *Node {
	return t.nodes[path]
}

// Walk returns every node with a directly assigned action, in pre-order
// of path (shorter prefixes, i.e. shallower paths, before longer ones,
// lexicographic within a depth — matching the comparer's emission
// order).
func (t *Tree) Walk() []*Node {
	var result []*Node
	for _, n := range t.nodes {
		if n.Action != nil {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return pathLess(result[i].Path, result[j].Path)
	})
	return result
}

// AllPaths returns every node path in the tree, including implicit
// ancestors, in pre-order.
func (t *Tree) AllPaths() []string {
	paths := make([]string, 0, len(t.nodes))
	for p := range t.nodes {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return pathLess(paths[i], paths[j])
	})
	return paths
}

func pathLess(a, b string) bool {
	da, db := pathDepth(a), pathDepth(b)
	if da != db {
		return da < db
	}
	return a < b
}

func pathDepth(p string) int {
	if p == "" {
		return 0
	}
	depth := 1
	for _, r := range p {
		if r == '/' {
			depth++
		}
	}
	return depth
}

// Summary reports how many actions of each textual glyph are present,
// for a dry-run report.
type Summary struct {
	ByGlyph map[string]int
	Total   int
}

// Summary counts every directly-assigned, non-excluded action by its
// glyph.
func (t *Tree) Summary() Summary {
	s := Summary{ByGlyph: make(map[string]int)}
	for _, n := range t.Walk() {
		if n.Action.Common().Excluded {
			continue
		}
		s.ByGlyph[n.Action.Glyph()]++
		s.Total++
	}
	return s
}
