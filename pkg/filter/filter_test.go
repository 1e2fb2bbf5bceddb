package filter

import (
	"testing"

	"github.com/dirmirror/dirmirror/pkg/entry"
)

func TestHiddenMatchesDotPrefix(t *testing.T) {
	e, _ := entry.New(".bashrc", entry.KindRegular, true, nil, nil, nil, false)
	if !Hidden(e) {
		t.Fatal("expected a dot-prefixed file name to be treated as hidden")
	}

	nested, _ := entry.New("configs/.secrets", entry.KindRegular, true, nil, nil, nil, false)
	if !Hidden(nested) {
		t.Fatal("expected a dot-prefixed final path component to be treated as hidden")
	}

	visible, _ := entry.New("README.md", entry.KindRegular, true, nil, nil, nil, false)
	if Hidden(visible) {
		t.Fatal("did not expect a non-dot-prefixed, non-attribute-hidden entry to match Hidden")
	}

	flagged, _ := entry.New("data.bin", entry.KindRegular, true, nil, nil, nil, true)
	if !Hidden(flagged) {
		t.Fatal("expected an entry with Hidden attribute set to match Hidden")
	}
}

func TestHiddenNilEntry(t *testing.T) {
	if Hidden(nil) {
		t.Fatal("Hidden(nil) must report false")
	}
}

func TestPatternRejectsInvalid(t *testing.T) {
	if _, err := Pattern("/root", "["); err == nil {
		t.Fatal("expected an error for an invalid glob pattern")
	}
}

func TestPatternMatchesAbsolutePath(t *testing.T) {
	p, err := Pattern("/root", "/root/**/*.log")
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
	match, _ := entry.New("logs/a.log", entry.KindRegular, true, nil, nil, nil, false)
	if !p(match) {
		t.Fatal("expected the pattern to match a nested .log file")
	}
	noMatch, _ := entry.New("logs/a.txt", entry.KindRegular, true, nil, nil, nil, false)
	if p(noMatch) {
		t.Fatal("did not expect the pattern to match a .txt file")
	}
}

func TestSetExcludesEitherSide(t *testing.T) {
	s := NewSet(Hidden)
	hiddenEntry, _ := entry.New(".env", entry.KindRegular, true, nil, nil, nil, false)
	visible, _ := entry.New("main.go", entry.KindRegular, true, nil, nil, nil, false)

	if !s.Excludes(hiddenEntry, visible) {
		t.Fatal("expected exclusion when either side matches a predicate")
	}
	if s.Excludes(visible, visible) {
		t.Fatal("did not expect exclusion when neither side matches")
	}
}
