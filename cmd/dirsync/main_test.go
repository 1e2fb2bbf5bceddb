package main

import (
	"testing"

	"github.com/fatih/color"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

func TestFilterFlagsAccumulates(t *testing.T) {
	var f filterFlags
	if err := f.Set("*.tmp"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("*.log"); err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 || f[0] != "*.tmp" || f[1] != "*.log" {
		t.Errorf("unexpected accumulated filters: %v", []string(f))
	}
}

func mustEntry(t *testing.T, path string, kind entry.Kind) *entry.Entry {
	t.Helper()
	e, err := entry.New(path, kind, true, nil, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestGlyphColorPicksByActionKind(t *testing.T) {
	previous := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = previous })

	a := mustEntry(t, "f", entry.KindRegular)
	missing, err := entry.New("f", entry.KindRegular, false, nil, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}

	cp, err := action.NewCopy(a, missing, action.DirectionSrcToDst, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	if glyphColor(cp)("x") == "x" {
		t.Error("expected Copy's glyph color to wrap the string")
	}

	del, err := action.NewDelete(a, missing, action.DirectionDstToSrc, "/src", "/dst")
	if err != nil {
		t.Fatal(err)
	}
	if glyphColor(del)("x") == "x" {
		t.Error("expected Delete's glyph color to wrap the string")
	}

	noop := action.NewNoOp(a, a)
	if got := glyphColor(noop)("x"); got != "x" {
		t.Errorf("expected NoOp's glyph color to be a no-op, got %q", got)
	}
}
