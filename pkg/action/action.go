// Package action implements the per-path action taxonomy: the sum type
// of NoOp, Copy, and Delete that the comparer assigns and the plan tree
// and executor carry to completion.
package action

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// ErrDirectionNotPermitted indicates that a construction or mutation of
// an action violated an existence precondition for its direction.
var ErrDirectionNotPermitted = errors.New("direction not permitted")

// Direction identifies which side of a pair an action modifies.
type Direction uint8

const (
	DirectionSrcToDst Direction = iota
	DirectionDstToSrc
	DirectionBoth
)

func (d Direction) String() string {
	switch d {
	case DirectionSrcToDst:
		return "src->dst"
	case DirectionDstToSrc:
		return "dst->src"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Status is an action's execution state.
type Status uint8

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time snapshot of a Copy action's transfer
// progress. It is optional and purely informational.
type Progress struct {
	BytesTransferred uint64
	TotalBytes       uint64
}

// String renders a human-readable "transferred/total" byte count, for
// callers printing a progress line rather than consuming the raw
// counters.
func (p *Progress) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s", humanize.Bytes(p.BytesTransferred), humanize.Bytes(p.TotalBytes))
}

// Common holds the fields shared by every action variant.
type Common struct {
	// A is the source-side entry of the pair; B is the destination-side
	// entry. Either may be a non-existing placeholder (entry.Missing).
	A, B *entry.Entry

	// SrcRoot and DstRoot are the roots of the two sides being
	// compared. They are fixed at construction time (by the comparer)
	// so that Apply needs only an engine, not the filesystem views
	// that produced the pair.
	SrcRoot, DstRoot string

	Direction Direction
	Excluded  bool
	Status    Status
	Progress  *Progress

	JobHandle engine.JobHandle

	// Err records the reason the last apply/update_status transition
	// to StatusFailed, if any.
	Err error
}

// Action is the common contract every variant satisfies.
type Action interface {
	// Common returns the shared state embedded in the concrete variant,
	// for read/write access by the plan tree and executor.
	Common() *Common

	// SwapDirection flips between src->dst and dst->src, failing if the
	// new direction's required side does not exist.
	SwapDirection() error

	// ApplyBothSides sets direction=both; permitted only on Delete, and
	// only when both sides exist.
	ApplyBothSides() error

	// Apply initiates execution against eng.
	Apply(ctx context.Context, eng engine.Engine) error

	// UpdateStatus reconciles local state with eng's view of any
	// in-flight job.
	UpdateStatus(ctx context.Context, eng engine.Engine) error

	// Retry resets a failed action back to not_started, clearing any
	// job handle. It is only legal when Status == StatusFailed.
	Retry() error

	// Glyph is the textual status indicator used for line-oriented
	// rendering: direction arrow prefix plus a variant marker.
	Glyph() string
}

func requireSide(exists bool, which string) error {
	if !exists {
		return errors.Wrapf(ErrDirectionNotPermitted, "%s side does not exist", which)
	}
	return nil
}

// validateDirection checks a Copy's direction against the side it
// reads from: src->dst reads the source, dst->src reads the
// destination. direction=both is never valid for Copy.
func validateDirection(a, b *entry.Entry, direction Direction) error {
	switch direction {
	case DirectionSrcToDst:
		return requireSide(a.Exists, "source")
	case DirectionDstToSrc:
		return requireSide(b.Exists, "destination")
	case DirectionBoth:
		return errors.Wrap(ErrDirectionNotPermitted, "direction=both is only valid for Delete")
	default:
		return fmt.Errorf("unrecognised direction %v", direction)
	}
}

// validateDeleteDirection checks that a Delete's direction names a side
// that actually exists to be removed. This is the inverse of Copy's
// validateDirection, which requires the side read *from*: a Delete
// reads nothing, so what must exist is whichever side sidesToDelete
// will act on (src->dst removes the destination, dst->src the source,
// both requires both).
func validateDeleteDirection(a, b *entry.Entry, direction Direction) error {
	switch direction {
	case DirectionSrcToDst:
		return requireSide(b.Exists, "destination")
	case DirectionDstToSrc:
		return requireSide(a.Exists, "source")
	case DirectionBoth:
		if !a.Exists || !b.Exists {
			return errors.Wrap(ErrDirectionNotPermitted, "both sides must exist for direction=both")
		}
		return nil
	default:
		return fmt.Errorf("unrecognised direction %v", direction)
	}
}

func glyph(direction Direction, marker string) string {
	arrow := "->"
	if direction == DirectionDstToSrc {
		arrow = "<-"
	} else if direction == DirectionBoth {
		arrow = "<->"
	}
	return arrow + marker
}
