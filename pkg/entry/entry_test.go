package entry

import (
	"testing"
	"time"
)

func uptr(v uint64) *uint64 { return &v }

func TestNewRejectsSizeOnDirectory(t *testing.T) {
	if _, err := New("a", KindDirectory, true, uptr(10), nil, nil, false); err == nil {
		t.Fatal("expected an error for a directory entry carrying a size")
	}
}

func TestNewRejectsSizeWhenMissing(t *testing.T) {
	if _, err := New("a", KindRegular, false, uptr(10), nil, nil, false); err == nil {
		t.Fatal("expected an error for a missing entry carrying a size")
	}
}

func TestNewRejectsChecksumOnDirectory(t *testing.T) {
	checksum := "deadbeef"
	if _, err := New("a", KindDirectory, true, nil, nil, &checksum, false); err == nil {
		t.Fatal("expected an error for a directory entry carrying a checksum")
	}
}

func TestMissingIsNotExists(t *testing.T) {
	e := Missing("a/b")
	if e.Exists {
		t.Fatal("Missing() entry must report Exists == false")
	}
	if e.Size != nil || e.Checksum != nil {
		t.Fatal("Missing() entry must not carry size or checksum")
	}
}

func TestCopyIsIndependent(t *testing.T) {
	checksum := "abc"
	mtime := time.Now().UTC()
	e, err := New("a", KindRegular, true, uptr(5), &mtime, &checksum, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c := e.Copy()
	*c.Size = 99
	if *e.Size == 99 {
		t.Fatal("Copy() must not alias the original's Size pointer")
	}
}

func TestEqualAndSameMetadata(t *testing.T) {
	mtime := time.Now().UTC()
	a, _ := New("a", KindRegular, true, uptr(5), &mtime, nil, false)
	b, _ := New("a", KindRegular, true, uptr(5), &mtime, nil, false)
	if !a.Equal(b) {
		t.Fatal("expected equal entries to compare equal")
	}
	if !a.SameMetadata(b) {
		t.Fatal("expected equal size/mtime to report SameMetadata")
	}

	other := uptr(6)
	c, _ := New("a", KindRegular, true, other, &mtime, nil, false)
	if a.Equal(c) {
		t.Fatal("expected differing size to break equality")
	}
}

func TestNilEntryEquality(t *testing.T) {
	var a, b *Entry
	if !a.Equal(b) {
		t.Fatal("two nil entries should compare equal")
	}
	e := Missing("a")
	if a.Equal(e) || e.Equal(a) {
		t.Fatal("a nil entry should never equal a non-nil entry")
	}
}
