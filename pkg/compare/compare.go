// Package compare implements the comparer: it pairs entries from two
// filesystem views, assigns each pair an initial action under a chosen
// synchronisation mode, and produces the resulting plan tree.
package compare

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/entry"
	"github.com/dirmirror/dirmirror/pkg/filter"
	"github.com/dirmirror/dirmirror/pkg/fsview"
	"github.com/dirmirror/dirmirror/pkg/plan"
)

// Mode is the user-chosen synchronisation policy.
type Mode int

const (
	ModeUpdate Mode = iota
	ModeMirror
	ModeSync
	ModeDedupe
)

func (m Mode) String() string {
	switch m {
	case ModeUpdate:
		return "update"
	case ModeMirror:
		return "mirror"
	case ModeSync:
		return "sync"
	case ModeDedupe:
		return "dedupe"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name (as accepted on the demo CLI's -mode
// flag) to a Mode, reporting false for anything unrecognised.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "update":
		return ModeUpdate, true
	case "mirror":
		return ModeMirror, true
	case "sync":
		return ModeSync, true
	case "dedupe":
		return ModeDedupe, true
	default:
		return 0, false
	}
}

// ErrDedupeNotSupported indicates that Compare was asked to run in
// dedupe mode. The comparer deliberately does not implement dedupe:
// the deduplication-only command reuses the action model but is a
// peripheral, out-of-core collaborator.
var ErrDedupeNotSupported = errors.New("dedupe is not handled by the comparer")

// Compare pairs entries from src and dst via fsview.SynchedWalk, assigns
// each pair an action under mode, applies the filter set, and returns
// the resulting plan tree reconciled by a final whole-tree pass.
func Compare(ctx context.Context, src, dst *fsview.View, mode Mode, filters *filter.Set, deep bool) (*plan.Tree, error) {
	if mode == ModeDedupe {
		return nil, ErrDedupeNotSupported
	}

	tree := plan.New()

	for pair := range fsview.SynchedWalk(src, dst) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		a, b := pair.A, pair.B
		if a == nil {
			a = entry.Missing(pair.Path)
		}
		if b == nil {
			b = entry.Missing(pair.Path)
		}

		act, err := assignAction(ctx, src, dst, pair.Path, a, b, deep)
		if err != nil {
			return nil, fmt.Errorf("unable to assign action for %q: %w", pair.Path, err)
		}

		act, err = rewriteForMode(act, mode, src.Root().RootString(), dst.Root().RootString())
		if err != nil {
			return nil, fmt.Errorf("unable to apply mode rewrite for %q: %w", pair.Path, err)
		}

		if filters != nil {
			act.Common().Excluded = filters.Excludes(a, b)
		}

		if err := tree.Add(pair.Path, act); err != nil {
			return nil, err
		}
	}

	if err := tree.MakeAllActionsConsistent(true); err != nil {
		return nil, err
	}

	return tree, nil
}

func directionByMTime(a, b *entry.Entry) action.Direction {
	if a.MTime != nil && b.MTime != nil && a.MTime.After(*b.MTime) {
		return action.DirectionSrcToDst
	}
	if a.MTime != nil && b.MTime != nil && b.MTime.After(*a.MTime) {
		return action.DirectionDstToSrc
	}
	// Equal (or unknown) mtimes resolve to src->dst.
	return action.DirectionSrcToDst
}

func assignAction(ctx context.Context, src, dst *fsview.View, path string, a, b *entry.Entry, deep bool) (action.Action, error) {
	srcRoot, dstRoot := src.Root().RootString(), dst.Root().RootString()

	switch {
	case a.Exists && b.Exists:
		sameSize := a.Size != nil && b.Size != nil && *a.Size == *b.Size
		if sameSize && !deep {
			return action.NewNoOp(a, b), nil
		}
		if sameSize && deep {
			sumA, err := src.GetChecksum(ctx, a)
			if err != nil {
				return nil, err
			}
			sumB, err := dst.GetChecksum(ctx, b)
			if err != nil {
				return nil, err
			}
			if sumA != "" && sumB != "" && sumA == sumB {
				return action.NewNoOp(a, b), nil
			}
		}
		return action.NewCopy(a, b, directionByMTime(a, b), srcRoot, dstRoot)

	case a.Exists && !b.Exists:
		if prior, ok := dst.GetPreviousEntry(path, true); ok && prior != nil && prior.Exists {
			// b used to exist and is gone now: the missing side (b,
			// dst) drives the refinement, so direction names dst as
			// the side to delete from, forcing a's removal too.
			return action.NewDelete(a, b, action.DirectionDstToSrc, srcRoot, dstRoot)
		}
		return action.NewCopy(a, b, action.DirectionSrcToDst, srcRoot, dstRoot)

	case !a.Exists && b.Exists:
		if prior, ok := src.GetPreviousEntry(path, true); ok && prior != nil && prior.Exists {
			// a used to exist and is gone now: the missing side (a,
			// src) drives the refinement, so direction names src as
			// the side to delete from, forcing b's removal too.
			return action.NewDelete(a, b, action.DirectionSrcToDst, srcRoot, dstRoot)
		}
		return action.NewCopy(a, b, action.DirectionDstToSrc, srcRoot, dstRoot)

	default:
		return action.NewNoOp(a, b), nil
	}
}

func rewriteForMode(act action.Action, mode Mode, srcRoot, dstRoot string) (action.Action, error) {
	switch mode {
	case ModeSync:
		return act, nil
	case ModeUpdate:
		return rewriteUpdate(act)
	case ModeMirror:
		return rewriteMirror(act, srcRoot, dstRoot)
	default:
		return act, nil
	}
}

// rewriteUpdate neutralises any action that would modify the source:
// destination may change, source must not.
func rewriteUpdate(act action.Action) (action.Action, error) {
	c := act.Common()
	switch c.Direction {
	case action.DirectionDstToSrc:
		noop := action.NewNoOp(c.A, c.B)
		noop.Common().Excluded = c.Excluded
		return noop, nil
	case action.DirectionBoth:
		return collapseToSrcToDst(act)
	default:
		return act, nil
	}
}

// rewriteMirror forces the destination to match the source: an action
// that would copy dst->src is redirected to src->dst, or to a src->dst
// Delete that removes the destination's copy if the source no longer has
// the file at all.
func rewriteMirror(act action.Action, srcRoot, dstRoot string) (action.Action, error) {
	c := act.Common()
	switch c.Direction {
	case action.DirectionDstToSrc:
		if !c.A.Exists {
			del, err := action.NewDelete(c.A, c.B, action.DirectionSrcToDst, srcRoot, dstRoot)
			if err != nil {
				return nil, err
			}
			del.Common().Excluded = c.Excluded
			return del, nil
		}
		copyAct, err := action.NewCopy(c.A, c.B, action.DirectionSrcToDst, srcRoot, dstRoot)
		if err != nil {
			return nil, err
		}
		copyAct.Common().Excluded = c.Excluded
		return copyAct, nil
	case action.DirectionBoth:
		return collapseToSrcToDst(act)
	default:
		return act, nil
	}
}

func collapseToSrcToDst(act action.Action) (action.Action, error) {
	c := act.Common()
	switch act.(type) {
	case *action.Delete:
		del, err := action.NewDelete(c.A, c.B, action.DirectionSrcToDst, c.SrcRoot, c.DstRoot)
		if err != nil {
			return nil, err
		}
		del.Common().Excluded = c.Excluded
		return del, nil
	default:
		return act, nil
	}
}
