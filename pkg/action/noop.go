package action

import (
	"context"

	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// NoOp is the action variant for a pair that requires nothing. It
// ignores all direction/exclusion rules; direction is unused.
type NoOp struct {
	common Common
}

var _ Action = (*NoOp)(nil)

// NewNoOp constructs a NoOp over the given pair. Unlike Copy and
// Delete, construction never fails: a NoOp has no existence
// preconditions to validate.
func NewNoOp(a, b *entry.Entry) *NoOp {
	return &NoOp{common: Common{A: a, B: b}}
}

func (n *NoOp) Common() *Common { return &n.common }

// SwapDirection is a no-op for NoOp: direction is not meaningful here.
func (n *NoOp) SwapDirection() error { return nil }

// ApplyBothSides always fails: NoOp has no direction to apply both-sided.
func (n *NoOp) ApplyBothSides() error {
	return ErrDirectionNotPermitted
}

// Apply does nothing.
func (n *NoOp) Apply(ctx context.Context, eng engine.Engine) error {
	n.common.Status = StatusSuccess
	return nil
}

// UpdateStatus does nothing: there is never a job handle to reconcile.
func (n *NoOp) UpdateStatus(ctx context.Context, eng engine.Engine) error {
	return nil
}

// Retry is only meaningful if a NoOp somehow reached a failed state,
// which Apply/UpdateStatus never produce; included for interface
// conformance.
func (n *NoOp) Retry() error {
	return retryCommon(&n.common)
}

func (n *NoOp) Glyph() string {
	return "-"
}
