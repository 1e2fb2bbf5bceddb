package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// nodeShape is a comparable projection of a Node used to diff a
// subtree's structure without reaching into Action's unexported
// fields (go-cmp panics on those by default).
type nodeShape struct {
	Path      string
	Kind      string
	Direction action.Direction
}

func shapeOf(tree *Tree) []nodeShape {
	var out []nodeShape
	for _, n := range tree.Walk() {
		s := nodeShape{Path: n.Path}
		switch a := n.Action.(type) {
		case *action.Copy:
			s.Kind, s.Direction = "copy", a.Common().Direction
		case *action.Delete:
			s.Kind, s.Direction = "delete", a.Common().Direction
		default:
			s.Kind = "noop"
		}
		out = append(out, s)
	}
	return out
}

func fileEntry(path string) *entry.Entry {
	size := uint64(1)
	e, err := entry.New(path, entry.KindRegular, true, &size, nil, nil, false)
	if err != nil {
		panic(err)
	}
	return e
}

func noopAt(path string) action.Action {
	return action.NewNoOp(fileEntry(path), fileEntry(path))
}

func copyAt(t *testing.T, path string, direction action.Direction) action.Action {
	t.Helper()
	a := fileEntry(path)
	b := fileEntry(path)
	act, err := action.NewCopy(a, b, direction, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	return act
}

func TestAddRejectsAbsolutePath(t *testing.T) {
	tree := New()
	if err := tree.Add("/abs", noopAt("abs")); err == nil {
		t.Fatal("expected Add to reject an absolute path")
	}
}

func TestAddCreatesImplicitAncestors(t *testing.T) {
	tree := New()
	if err := tree.Add("dir/a", noopAt("dir/a")); err != nil {
		t.Fatal(err)
	}
	if tree.Get("dir") == nil {
		t.Fatal("expected an implicit ancestor node at 'dir'")
	}
	if tree.Get("dir").Action != nil {
		t.Error("expected the implicit ancestor to have no directly assigned action")
	}
}

func TestReplacePropagatesToChildrenThenReconciles(t *testing.T) {
	tree := New()
	for _, p := range []string{"dir/a", "dir/b", "dir/c"} {
		if err := tree.Add(p, noopAt(p)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Add("dir", noopAt("dir")); err != nil {
		t.Fatal(err)
	}

	replacement := copyAt(t, "dir", action.DirectionSrcToDst)
	if err := tree.Replace("dir", replacement); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{"dir/a", "dir/b", "dir/c"} {
		n := tree.Get(p)
		if _, ok := n.Action.(*action.Copy); !ok {
			t.Errorf("expected %q to have become a Copy, got %T", p, n.Action)
		}
		if n.Action.Common().Direction != action.DirectionSrcToDst {
			t.Errorf("expected %q direction src->dst", p)
		}
	}

	dirAction := tree.Get("dir").Action
	if _, ok := dirAction.(*action.Copy); !ok {
		t.Errorf("expected ancestor reconciliation to leave 'dir' as Copy, got %T", dirAction)
	}
}

func TestReplacePropagationProducesExpectedSubtreeShape(t *testing.T) {
	tree := New()
	for _, p := range []string{"dir/a", "dir/b"} {
		if err := tree.Add(p, noopAt(p)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Add("dir", noopAt("dir")); err != nil {
		t.Fatal(err)
	}

	replacement := copyAt(t, "dir", action.DirectionSrcToDst)
	if err := tree.Replace("dir", replacement); err != nil {
		t.Fatal(err)
	}

	want := []nodeShape{
		{Path: "dir", Kind: "copy", Direction: action.DirectionSrcToDst},
		{Path: "dir/a", Kind: "copy", Direction: action.DirectionSrcToDst},
		{Path: "dir/b", Kind: "copy", Direction: action.DirectionSrcToDst},
	}
	if diff := cmp.Diff(want, shapeOf(tree)); diff != "" {
		t.Errorf("unexpected subtree shape after Replace (-want +got):\n%s", diff)
	}
}

func TestChangingOneChildBackCollapsesAncestorToNoOp(t *testing.T) {
	tree := New()
	for _, p := range []string{"dir/a", "dir/b", "dir/c"} {
		if err := tree.Add(p, copyAt(t, p, action.DirectionSrcToDst)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Add("dir", copyAt(t, "dir", action.DirectionSrcToDst)); err != nil {
		t.Fatal(err)
	}

	if err := tree.CancelAction("dir/a"); err != nil {
		t.Fatal(err)
	}

	dirAction := tree.Get("dir").Action
	if _, ok := dirAction.(*action.NoOp); !ok {
		t.Errorf("expected 'dir' to collapse to NoOp after a divergent child, got %T", dirAction)
	}
}

func TestMakeAllActionsConsistentIsIdempotent(t *testing.T) {
	tree := New()
	for _, p := range []string{"dir/a", "dir/b"} {
		if err := tree.Add(p, copyAt(t, p, action.DirectionSrcToDst)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Add("dir", noopAt("dir")); err != nil {
		t.Fatal(err)
	}

	if err := tree.MakeAllActionsConsistent(true); err != nil {
		t.Fatal(err)
	}
	first := tree.Get("dir").Action.Glyph()

	if err := tree.MakeAllActionsConsistent(true); err != nil {
		t.Fatal(err)
	}
	second := tree.Get("dir").Action.Glyph()

	if first != second {
		t.Errorf("expected reconciliation to be idempotent, got %q then %q", first, second)
	}
}

func TestConvertToDeleteFallsBackToOppositeDirection(t *testing.T) {
	tree := New()
	a := entry.Missing("f")
	b := fileEntry("f")
	act, err := action.NewCopy(a, b, action.DirectionDstToSrc, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Add("f", act); err != nil {
		t.Fatal(err)
	}

	if err := tree.ConvertToDelete("f", action.DirectionDstToSrc); err != nil {
		t.Fatal("expected fallback to the opposite direction to succeed:", err)
	}
	del, ok := tree.Get("f").Action.(*action.Delete)
	if !ok {
		t.Fatalf("expected a Delete action, got %T", tree.Get("f").Action)
	}
	if del.Common().Direction != action.DirectionSrcToDst {
		t.Errorf("expected fallback direction src->dst, got %v", del.Common().Direction)
	}
}
