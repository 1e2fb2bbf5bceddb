package plan

import (
	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// variant identifies an action's type for the purposes of ancestor
// reconciliation, deliberately coarser than the full Action interface
// (Copy's fresh/update distinction does not affect consistency).
type variant int

const (
	variantNoOp variant = iota
	variantCopy
	variantDelete
)

func variantOf(a action.Action) variant {
	switch a.(type) {
	case *action.Copy:
		return variantCopy
	case *action.Delete:
		return variantDelete
	default:
		return variantNoOp
	}
}

type actionKey struct {
	v         variant
	direction action.Direction
}

func keyOf(a action.Action) actionKey {
	return actionKey{v: variantOf(a), direction: a.Common().Direction}
}

// MakeChildrenAsParent propagates an ancestor's (type, direction) to
// every non-excluded descendant. Excluded descendants keep their own
// variant but remain excluded.
func (t *Tree) MakeChildrenAsParent(path string) error {
	n := t.nodes[path]
	if n == nil || n.Action == nil {
		return nil
	}
	key := keyOf(n.Action)
	return t.forEachDescendant(path, func(child *Node) error {
		if child.Action == nil || child.Action.Common().Excluded {
			return nil
		}
		replacement, err := rebuild(child.Action, key)
		if err != nil {
			return err
		}
		child.Action = replacement
		return nil
	})
}

func (t *Tree) forEachDescendant(path string, fn func(*Node) error) error {
	n := t.nodes[path]
	if n == nil {
		return nil
	}
	for _, childPath := range n.Children {
		child := t.nodes[childPath]
		if err := fn(child); err != nil {
			return err
		}
		if err := t.forEachDescendant(childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// rebuild constructs a new action at the same pair as original but with
// key's variant/direction, preserving original's Excluded flag.
func rebuild(original action.Action, key actionKey) (action.Action, error) {
	c := original.Common()
	switch key.v {
	case variantCopy:
		a, err := action.NewCopy(c.A, c.B, key.direction, c.SrcRoot, c.DstRoot)
		if err != nil {
			return nil, err
		}
		a.Common().Excluded = c.Excluded
		return a, nil
	case variantDelete:
		a, err := action.NewDelete(c.A, c.B, key.direction, c.SrcRoot, c.DstRoot)
		if err != nil {
			return nil, err
		}
		a.Common().Excluded = c.Excluded
		return a, nil
	default:
		n := action.NewNoOp(c.A, c.B)
		n.Common().Excluded = c.Excluded
		return n, nil
	}
}

// MakeActionConsistent recomputes path's action from its children. If
// every non-excluded child shares the same (type, direction), path
// adopts it. If they diverge: forceNoAction=true collapses path to an
// excluded-aware NoOp; forceNoAction=false leaves path unchanged. If
// every child is excluded, path becomes an excluded NoOp. A node with no
// action of its own (an implicit ancestor) is left untouched.
func (t *Tree) MakeActionConsistent(path string, forceNoAction bool) error {
	n := t.nodes[path]
	if n == nil || n.Action == nil {
		return nil
	}

	var common *actionKey
	allExcluded := true
	anyChild := false
	for _, childPath := range n.Children {
		child := t.nodes[childPath]
		if child.Action == nil {
			continue
		}
		anyChild = true
		if child.Action.Common().Excluded {
			continue
		}
		allExcluded = false
		k := keyOf(child.Action)
		if common == nil {
			common = &k
		} else if *common != k {
			common = nil
			if !forceNoAction {
				return nil
			}
			break
		}
	}

	if !anyChild {
		return nil
	}

	if allExcluded {
		noop := action.NewNoOp(placeholderA(n), placeholderB(n))
		noop.Common().Excluded = true
		n.Action = noop
		return nil
	}

	if common != nil {
		replacement, err := rebuild(currentOrPlaceholder(n), *common)
		if err != nil {
			return err
		}
		n.Action = replacement
		return nil
	}

	if forceNoAction {
		n.Action = action.NewNoOp(placeholderA(n), placeholderB(n))
	}
	return nil
}

func currentOrPlaceholder(n *Node) action.Action {
	if n.Action != nil {
		return n.Action
	}
	return action.NewNoOp(placeholderA(n), placeholderB(n))
}

func placeholderA(n *Node) *entry.Entry {
	if n.Action != nil {
		return n.Action.Common().A
	}
	return entry.Missing(n.Path)
}

func placeholderB(n *Node) *entry.Entry {
	if n.Action != nil {
		return n.Action.Common().B
	}
	return entry.Missing(n.Path)
}

// MakeSubtreeConsistent walks from path up to the root, applying
// MakeActionConsistent at every level.
func (t *Tree) MakeSubtreeConsistent(path string, forceNoAction bool) error {
	for p := path; ; p = parentPath(p) {
		if err := t.MakeActionConsistent(p, forceNoAction); err != nil {
			return err
		}
		if p == "" {
			break
		}
	}
	return nil
}

// MakeAllActionsConsistent runs a post-order walk applying ancestor
// reconciliation at every node; intended to run once at the end of
// comparison.
func (t *Tree) MakeAllActionsConsistent(forceNoAction bool) error {
	return t.postOrder("", func(path string) error {
		return t.MakeActionConsistent(path, forceNoAction)
	})
}

func (t *Tree) postOrder(path string, fn func(string) error) error {
	n := t.nodes[path]
	if n == nil {
		return nil
	}
	for _, childPath := range n.Children {
		if err := t.postOrder(childPath, fn); err != nil {
			return err
		}
	}
	return fn(path)
}

// Replace atomically swaps the action at path, then runs descendant
// propagation from path, then subtree reconciliation back to the root.
func (t *Tree) Replace(path string, next action.Action) error {
	n := t.ensureNode(path)
	n.Action = next
	if err := t.MakeChildrenAsParent(path); err != nil {
		return err
	}
	return t.MakeSubtreeConsistent(path, true)
}

// CancelAction replaces path's action with a NoOp.
func (t *Tree) CancelAction(path string) error {
	n := t.nodes[path]
	if n == nil || n.Action == nil {
		return nil
	}
	c := n.Action.Common()
	noop := action.NewNoOp(c.A, c.B)
	return t.Replace(path, noop)
}

// ConvertToDelete replaces path's action with a Delete, preferring the
// natural direction (toward the side requiring removal) and falling
// back to the opposite direction if the natural one is impossible.
func (t *Tree) ConvertToDelete(path string, direction action.Direction) error {
	n := t.nodes[path]
	if n == nil || n.Action == nil {
		return ErrInvariantViolation
	}
	c := n.Action.Common()

	del, err := action.NewDelete(c.A, c.B, direction, c.SrcRoot, c.DstRoot)
	if err != nil {
		opposite := action.DirectionDstToSrc
		if direction == action.DirectionDstToSrc {
			opposite = action.DirectionSrcToDst
		}
		del, err = action.NewDelete(c.A, c.B, opposite, c.SrcRoot, c.DstRoot)
		if err != nil {
			return err
		}
	}
	return t.Replace(path, del)
}
