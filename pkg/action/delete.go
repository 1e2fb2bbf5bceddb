package action

import (
	"context"
	"fmt"

	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// Delete removes one or both sides of a pair, either a file delete or
// (when both sides are directories) a directory remove.
type Delete struct {
	common Common
}

var _ Action = (*Delete)(nil)

// NewDelete constructs a validated Delete.
func NewDelete(a, b *entry.Entry, direction Direction, srcRoot, dstRoot string) (*Delete, error) {
	if err := validateDeleteDirection(a, b, direction); err != nil {
		return nil, err
	}
	return &Delete{common: Common{A: a, B: b, Direction: direction, SrcRoot: srcRoot, DstRoot: dstRoot}}, nil
}

func (d *Delete) Common() *Common { return &d.common }

// SwapDirection flips src->dst and dst->src. A direction=both Delete
// cannot be swapped (there is no "other" side left); it must first be
// collapsed to a single direction.
func (d *Delete) SwapDirection() error {
	if d.common.Direction == DirectionBoth {
		return ErrDirectionNotPermitted
	}
	next := DirectionDstToSrc
	if d.common.Direction == DirectionDstToSrc {
		next = DirectionSrcToDst
	}
	if err := validateDeleteDirection(d.common.A, d.common.B, next); err != nil {
		return err
	}
	d.common.Direction = next
	return nil
}

// ApplyBothSides sets direction=both, requiring both sides to exist.
func (d *Delete) ApplyBothSides() error {
	if err := validateDeleteDirection(d.common.A, d.common.B, DirectionBoth); err != nil {
		return err
	}
	d.common.Direction = DirectionBoth
	return nil
}

// sidesToDelete reports which side(s) of the pair Apply must remove.
// Direction points at the side that gets deleted: src->dst deletes
// the destination side (mirroring Copy's "src->dst writes dst"
// convention), dst->src deletes the source side, both deletes both.
func (d *Delete) sidesToDelete() []deleteSide {
	switch d.common.Direction {
	case DirectionSrcToDst:
		return []deleteSide{{d.common.DstRoot, d.common.B}}
	case DirectionDstToSrc:
		return []deleteSide{{d.common.SrcRoot, d.common.A}}
	case DirectionBoth:
		return []deleteSide{{d.common.SrcRoot, d.common.A}, {d.common.DstRoot, d.common.B}}
	default:
		return nil
	}
}

type deleteSide struct {
	root string
	e    *entry.Entry
}

// Apply issues a file delete, or a directory remove when both sides are
// directories, on each side the direction requires.
func (d *Delete) Apply(ctx context.Context, eng engine.Engine) error {
	if d.common.Excluded {
		return nil
	}
	bothDirectories := d.common.A.Kind == entry.KindDirectory && d.common.B.Kind == entry.KindDirectory

	for _, side := range d.sidesToDelete() {
		if !side.e.Exists {
			continue
		}
		var err error
		if bothDirectories {
			err = eng.Rmdir(ctx, side.root, side.e.Path)
		} else {
			err = eng.DeleteFile(ctx, side.root, side.e.Path)
		}
		if err != nil {
			d.common.Status = StatusFailed
			d.common.Err = err
			return err
		}
	}
	d.common.Status = StatusSuccess
	return nil
}

// UpdateStatus verifies, for each side required to be gone, that it is
// no longer present. Delete has no asynchronous job handle: Apply
// performs the removal synchronously, so UpdateStatus is a
// confirmation check rather than a job-state reconciliation.
func (d *Delete) UpdateStatus(ctx context.Context, eng engine.Engine) error {
	if d.common.Excluded || d.common.Status != StatusSuccess {
		return nil
	}
	for _, side := range d.sidesToDelete() {
		exists, err := eng.Exists(ctx, side.root, side.e.Path)
		if err != nil {
			return fmt.Errorf("unable to verify deletion of %q: %w", side.e.Path, err)
		}
		if exists {
			d.common.Status = StatusFailed
			d.common.Err = fmt.Errorf("%q still present after delete", side.e.Path)
			return nil
		}
	}
	return nil
}

// Retry resets a failed Delete back to not_started.
func (d *Delete) Retry() error {
	return retryCommon(&d.common)
}

func (d *Delete) Glyph() string {
	return glyph(d.common.Direction, "x")
}
