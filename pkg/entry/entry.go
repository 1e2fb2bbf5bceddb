// Package entry implements the per-path metadata record compared across two
// filesystem roots. An Entry is a flat record; the hierarchical shape of a
// tree of paths is the plan tree's concern (package plan), not this one.
package entry

import (
	"time"

	"github.com/pkg/errors"
)

// Kind identifies the type of filesystem object an Entry describes.
type Kind uint8

const (
	// KindRegular indicates a regular file.
	KindRegular Kind = iota
	// KindDirectory indicates a directory.
	KindDirectory
	// KindOther indicates an object that is neither a regular file nor a
	// directory (e.g. a device, a socket). Symbolic links are resolved or
	// reported as KindOther by the engine; the core does not model a
	// distinct symlink kind.
	KindOther
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Entry is a per-path metadata record. Relative path equality and hashing
// both operate over Path alone; it is callers' responsibility to compare
// entries belonging to the same filesystem root.
//
// Invariants:
//   - Size is nil when !Exists or Kind == KindDirectory.
//   - Checksum is nil when Kind == KindDirectory.
//   - MTime, once set, always carries a time zone (UTC unless constructed
//     from a naive value tagged with a local zone).
type Entry struct {
	// Path is the entry's path relative to its filesystem root, using
	// forward-slash separated components.
	Path string
	// Kind is the type of filesystem object.
	Kind Kind
	// Exists indicates whether the entry is actually present. A
	// placeholder Entry for a missing side of a comparison has
	// Exists == false.
	Exists bool
	// Size is the size in bytes, or nil if undefined (see invariants).
	Size *uint64
	// MTime is the modification time, or nil if undefined.
	MTime *time.Time
	// Checksum is an opaque digest string, or nil if not yet computed (see
	// invariants).
	Checksum *string
	// Hidden indicates whether the entry is considered hidden (dot-prefixed
	// name, or a filesystem hidden attribute).
	Hidden bool
}

// New constructs a validated Entry, enforcing the optional-field
// invariants.
func New(path string, kind Kind, exists bool, size *uint64, mtime *time.Time, checksum *string, hidden bool) (*Entry, error) {
	e := &Entry{
		Path:     path,
		Kind:     kind,
		Exists:   exists,
		Size:     size,
		MTime:    mtime,
		Checksum: checksum,
		Hidden:   hidden,
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Missing constructs a non-existing placeholder Entry at the specified
// path, used when the comparer needs to represent an absent side of a
// pair.
func Missing(path string) *Entry {
	return &Entry{Path: path, Exists: false}
}

func (e *Entry) validate() error {
	if e.Size != nil && (!e.Exists || e.Kind == KindDirectory) {
		return errors.New("size must be unset when the entry does not exist or is a directory")
	}
	if e.Checksum != nil && e.Kind == KindDirectory {
		return errors.New("checksum must be unset for directories")
	}
	return nil
}

// Copy returns a deep copy of the entry.
func (e *Entry) Copy() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Size != nil {
		size := *e.Size
		c.Size = &size
	}
	if e.MTime != nil {
		mtime := *e.MTime
		c.MTime = &mtime
	}
	if e.Checksum != nil {
		checksum := *e.Checksum
		c.Checksum = &checksum
	}
	return &c
}

// Equal reports whether two entries have identical metadata. A nil entry
// is only equal to another nil entry.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Path != other.Path || e.Kind != other.Kind || e.Exists != other.Exists || e.Hidden != other.Hidden {
		return false
	}
	if !equalUint64Ptr(e.Size, other.Size) {
		return false
	}
	if !equalTimePtr(e.MTime, other.MTime) {
		return false
	}
	if !equalStringPtr(e.Checksum, other.Checksum) {
		return false
	}
	return true
}

// SameMetadata reports whether two entries have the same size and
// modification time, the signal the comparer and the same-run checksum
// memo use to decide whether a checksum can be reused without
// recomputation.
func (e *Entry) SameMetadata(other *Entry) bool {
	if e == nil || other == nil {
		return false
	}
	return equalUint64Ptr(e.Size, other.Size) && equalTimePtr(e.MTime, other.MTime)
}

func equalUint64Ptr(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
