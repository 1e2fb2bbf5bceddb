// Package executor drives a plan tree's actions to completion against
// a transfer engine, bounding the number of actions being applied
// concurrently and flushing both filesystem views once every action
// has reached a terminal status.
package executor

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/action"
	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
	"github.com/dirmirror/dirmirror/pkg/events"
	"github.com/dirmirror/dirmirror/pkg/fsview"
	"github.com/dirmirror/dirmirror/pkg/parallelism"
	"github.com/dirmirror/dirmirror/pkg/plan"
	"github.com/dirmirror/dirmirror/pkg/state"
)

// DefaultConcurrency is the K used when the caller does not specify one.
const DefaultConcurrency = 4

// pollInterval is how often an in-flight asynchronous action's status
// is re-checked with the engine.
const pollInterval = 20 * time.Millisecond

// ErrAborted marks an action that was still outstanding when Abort was
// called, and so was forced to a failed status without ever being
// confirmed complete by the engine.
var ErrAborted = errors.New("synching aborted")

// Executor drives every action.Action in a plan.Tree to completion.
type Executor struct {
	tree        *plan.Tree
	engine      engine.Engine
	src, dst    *fsview.View
	k           int
	broadcaster *events.Broadcaster

	// mu guards active and notifies tracker of every change made while
	// holding it, so watch wakes promptly on real progress rather than
	// on a fixed timer.
	mu     *state.TrackingLock
	active map[action.Action]struct{}

	tracker *state.Tracker
}

// New constructs an Executor. A k less than 1 is replaced with
// DefaultConcurrency. broadcaster may be nil, in which case events are
// silently discarded (mirroring the nil-safe logging pattern used
// elsewhere in this module).
func New(tree *plan.Tree, eng engine.Engine, src, dst *fsview.View, k int, broadcaster *events.Broadcaster) *Executor {
	if k < 1 {
		k = DefaultConcurrency
	}
	tracker := state.NewTracker()
	return &Executor{
		tree:        tree,
		engine:      eng,
		src:         src,
		dst:         dst,
		k:           k,
		broadcaster: broadcaster,
		active:      make(map[action.Action]struct{}),
		mu:          state.NewTrackingLock(tracker),
		tracker:     tracker,
	}
}

// Run executes the three-phase lifecycle: an initial sweep that
// retries every previously-failed action and builds the ordered
// dispatch queue, a bounded dispatch loop that drives each queued
// action to a terminal status, and a final sweep that updates both
// views' per-run caches and flushes them to disk.
func (e *Executor) Run(ctx context.Context) error {
	e.publish(events.Event{Kind: events.BeforeSynching})

	for _, n := range e.tree.Walk() {
		if err := n.Action.Retry(); err != nil && !errors.Is(err, action.ErrRetryNotPermitted) {
			return err
		}
	}

	queue := e.orderedQueue()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		e.watch(ctx)
	}()

	pool := parallelism.NewPool(e.k)
	for _, act := range queue {
		if isCancelled(ctx) {
			break
		}
		act := act
		e.markActive(act)
		pool.Submit(func() error {
			defer e.markDone(act)
			return e.drive(ctx, act)
		})
	}
	errs := pool.Close()
	e.tracker.Terminate()
	<-watchDone

	for _, n := range e.tree.Walk() {
		if err := e.flushAction(ctx, n.Action); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	if err := e.src.Flush(now); err != nil {
		return err
	}
	if err := e.dst.Flush(now); err != nil {
		return err
	}

	e.publish(events.Event{Kind: events.AfterSynching})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Abort instructs the engine to stop every pending job, then polls
// every action that is not yet terminal so that the tree's status
// accurately reflects what actually transferred before the caller's
// context was cancelled. An action that the engine never reports on
// (e.g. one that was never dispatched) is forced to failed.
func (e *Executor) Abort(ctx context.Context) error {
	if err := e.engine.StopPendingJobs(ctx); err != nil {
		return err
	}
	for _, n := range e.tree.Walk() {
		c := n.Action.Common()
		if c.Excluded || c.Status == action.StatusSuccess || c.Status == action.StatusFailed {
			continue
		}
		if err := n.Action.UpdateStatus(ctx, e.engine); err != nil {
			return err
		}
		if c.Status != action.StatusSuccess && c.Status != action.StatusFailed {
			c.Status = action.StatusFailed
			if c.Err == nil {
				c.Err = ErrAborted
			}
		}
	}
	return nil
}

// drive applies act and, for actions left in_progress by Apply (an
// asynchronous Copy), polls UpdateStatus until it reaches a terminal
// status or ctx is cancelled. Apply's own failures are already
// recorded on the action's status; drive does not re-report them.
func (e *Executor) drive(ctx context.Context, act action.Action) error {
	_ = act.Apply(ctx, e.engine)

	timer := time.NewTimer(pollInterval)
	defer stopAndDrainTimer(timer)

	c := act.Common()
	for c.Status != action.StatusSuccess && c.Status != action.StatusFailed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(pollInterval)
		}
		if err := act.UpdateStatus(ctx, e.engine); err != nil {
			return err
		}
	}
	return nil
}

// stopAndDrainTimer stops a timer and performs a non-blocking drain on
// its channel, so a timer can be stopped and reused (or abandoned)
// without caring whether it had already fired.
func stopAndDrainTimer(timer *time.Timer) {
	timer.Stop()
	select {
	case <-timer.C:
	default:
	}
}

// isCancelled reports whether ctx's Done channel is already closed,
// without blocking.
func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (e *Executor) markActive(act action.Action) {
	e.mu.Lock()
	e.active[act] = struct{}{}
	e.mu.Unlock()
}

func (e *Executor) markDone(act action.Action) {
	e.mu.Lock()
	delete(e.active, act)
	e.mu.Unlock()
}

func (e *Executor) snapshotActive() []action.Action {
	e.mu.Lock()
	defer e.mu.UnlockWithoutNotify()
	out := make([]action.Action, 0, len(e.active))
	for a := range e.active {
		out = append(out, a)
	}
	return out
}

// watch waits on the tracker for changes to the active set, emitting
// on_synching for each one, until the tracker is terminated (normal
// end of Run) or ctx is cancelled.
func (e *Executor) watch(ctx context.Context) {
	var index uint64
	for {
		next, err := e.tracker.WaitForChange(ctx, index)
		if err != nil {
			return
		}
		index = next
		e.publish(events.Event{Kind: events.OnSynching, Active: e.snapshotActive()})
	}
}

func (e *Executor) publish(ev events.Event) {
	if e.broadcaster != nil {
		e.broadcaster.Publish(ev)
	}
}

// orderedQueue partitions non-excluded, non-NoOp, non-success actions
// into directory deletions and everything else, running everything
// else first and directory deletions last (deepest path first within
// that partition), maximising the chance a directory is empty before
// its removal is attempted.
func (e *Executor) orderedQueue() []action.Action {
	var rest, dirDeletes []action.Action
	for _, n := range e.tree.Walk() {
		act := n.Action
		c := act.Common()
		if c.Excluded || c.Status == action.StatusSuccess {
			continue
		}
		if _, ok := act.(*action.NoOp); ok {
			continue
		}
		if isDirectoryDeletion(act) {
			dirDeletes = append(dirDeletes, act)
		} else {
			rest = append(rest, act)
		}
	}
	sort.Slice(dirDeletes, func(i, j int) bool {
		return pairPath(dirDeletes[i]) > pairPath(dirDeletes[j])
	})
	return append(rest, dirDeletes...)
}

func pairPath(act action.Action) string {
	c := act.Common()
	if c.A.Exists {
		return c.A.Path
	}
	return c.B.Path
}

func isDirectoryDeletion(act action.Action) bool {
	del, ok := act.(*action.Delete)
	if !ok {
		return false
	}
	c := del.Common()
	if !c.A.Exists && !c.B.Exists {
		return false
	}
	return (!c.A.Exists || c.A.Kind == entry.KindDirectory) && (!c.B.Exists || c.B.Kind == entry.KindDirectory)
}

// flushAction updates the view cache on whichever side(s) an action
// that reached success just changed, so that the next comparison (and
// the final Flush to the prior-run snapshot) sees the post-state.
func (e *Executor) flushAction(ctx context.Context, act action.Action) error {
	c := act.Common()
	if c.Excluded || c.Status != action.StatusSuccess {
		return nil
	}
	switch v := act.(type) {
	case *action.Copy:
		return e.flushCopy(ctx, v)
	case *action.Delete:
		return e.flushDelete(v)
	default:
		return nil
	}
}

func (e *Executor) flushCopy(ctx context.Context, c *action.Copy) error {
	common := c.Common()
	var destView *fsview.View
	var root, relative string
	switch common.Direction {
	case action.DirectionSrcToDst:
		destView, root, relative = e.dst, common.DstRoot, common.A.Path
	case action.DirectionDstToSrc:
		destView, root, relative = e.src, common.SrcRoot, common.B.Path
	default:
		return fmt.Errorf("copy has an invalid direction %v", common.Direction)
	}

	record, err := e.engine.Stat(ctx, root, relative)
	if err != nil {
		return fmt.Errorf("unable to stat %q after copy: %w", relative, err)
	}
	if record == nil {
		return destView.SetEntry(relative, nil)
	}

	kind := entry.KindRegular
	if record.IsDir {
		kind = entry.KindDirectory
	}
	var size *uint64
	if !record.IsDir {
		s := record.Size
		size = &s
	}
	mtime := record.MTime
	e2, err := entry.New(relative, kind, true, size, &mtime, nil, isHiddenName(relative))
	if err != nil {
		return err
	}
	return destView.SetEntry(relative, e2)
}

// flushDelete removes the cache entry on whichever side(s)
// sidesToDelete targeted: direction src->dst deletes the destination
// side, dst->src the source side, both both sides.
func (e *Executor) flushDelete(d *action.Delete) error {
	common := d.Common()
	switch common.Direction {
	case action.DirectionSrcToDst:
		return e.dst.SetEntry(common.B.Path, nil)
	case action.DirectionDstToSrc:
		return e.src.SetEntry(common.A.Path, nil)
	case action.DirectionBoth:
		if err := e.src.SetEntry(common.A.Path, nil); err != nil {
			return err
		}
		return e.dst.SetEntry(common.B.Path, nil)
	default:
		return fmt.Errorf("delete has an invalid direction %v", common.Direction)
	}
}

func isHiddenName(relative string) bool {
	return strings.HasPrefix(path.Base(relative), ".")
}
