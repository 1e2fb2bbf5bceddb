package action

import (
	"context"
	"fmt"

	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// Copy transfers the source side's content to the destination side.
// IsUpdate is true when both sides already existed at construction
// time (the destination has a prior version being overwritten), false
// for a fresh copy to a side that did not exist.
type Copy struct {
	common   Common
	IsUpdate bool
}

var _ Action = (*Copy)(nil)

// NewCopy constructs a validated Copy. direction=both is never valid
// for Copy. srcRoot and dstRoot are the two filesystem roots being
// compared, fixed at construction so Apply needs only an engine.
func NewCopy(a, b *entry.Entry, direction Direction, srcRoot, dstRoot string) (*Copy, error) {
	if err := validateDirection(a, b, direction); err != nil {
		return nil, err
	}
	return &Copy{
		common:   Common{A: a, B: b, Direction: direction, SrcRoot: srcRoot, DstRoot: dstRoot},
		IsUpdate: a.Exists && b.Exists,
	}, nil
}

func (c *Copy) Common() *Common { return &c.common }

// SwapDirection flips src->dst and dst->src, failing if the new
// direction's required side does not exist.
func (c *Copy) SwapDirection() error {
	next := DirectionDstToSrc
	if c.common.Direction == DirectionDstToSrc {
		next = DirectionSrcToDst
	}
	if err := validateDirection(c.common.A, c.common.B, next); err != nil {
		return err
	}
	c.common.Direction = next
	return nil
}

// ApplyBothSides always fails for Copy: direction=both is Delete-only.
func (c *Copy) ApplyBothSides() error {
	return ErrDirectionNotPermitted
}

// Apply issues an asynchronous copy of the source side to the
// destination side's containing directory.
func (c *Copy) Apply(ctx context.Context, eng engine.Engine) error {
	if c.common.Excluded {
		return nil
	}
	var srcRoot, srcRel, dstRoot, dstRel string
	switch c.common.Direction {
	case DirectionSrcToDst:
		srcRoot, dstRoot = c.common.SrcRoot, c.common.DstRoot
		srcRel, dstRel = c.common.A.Path, c.common.A.Path
	case DirectionDstToSrc:
		srcRoot, dstRoot = c.common.DstRoot, c.common.SrcRoot
		srcRel, dstRel = c.common.B.Path, c.common.B.Path
	default:
		return fmt.Errorf("copy has an invalid direction %v", c.common.Direction)
	}

	handle, err := eng.CopyFile(ctx, srcRoot, srcRel, dstRoot, dstRel)
	if err != nil {
		c.common.Status = StatusFailed
		c.common.Err = err
		return err
	}
	c.common.JobHandle = handle
	c.common.Status = StatusInProgress
	return nil
}

// UpdateStatus reconciles local state with the engine's view of the job.
func (c *Copy) UpdateStatus(ctx context.Context, eng engine.Engine) error {
	return updateStatusFromJob(&c.common, ctx, eng)
}

// Retry resets a failed Copy back to not_started.
func (c *Copy) Retry() error {
	return retryCommon(&c.common)
}

func (c *Copy) Glyph() string {
	marker := "*"
	if c.IsUpdate {
		marker = "+"
	}
	return glyph(c.common.Direction, marker)
}
