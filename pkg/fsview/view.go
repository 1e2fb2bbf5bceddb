// Package fsview implements the filesystem view: a cached, engine-backed
// picture of one synchronisation root, together with the previous run's
// snapshot used to distinguish additions from deletions.
package fsview

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/engine"
	"github.com/dirmirror/dirmirror/pkg/entry"
	"github.com/dirmirror/dirmirror/pkg/logging"
	"github.com/dirmirror/dirmirror/pkg/snapshot"
	"github.com/dirmirror/dirmirror/pkg/syncpath"
)

// ErrNotFound indicates that a path required to exist does not.
var ErrNotFound = errors.New("not found")

// maximumDigestMemoEntries bounds the same-run checksum memo so that a
// view over a very large tree can't grow the memo without bound; an
// evicted entry just means its checksum is recomputed on next use, not
// a correctness loss.
const maximumDigestMemoEntries = 8192

// digestMemoKey identifies a digest memo entry by the same (size,
// mtime) tuple the previous-run snapshot itself keys on, scoped to a
// path so two different files of the same size and mtime don't alias.
type digestMemoKey struct {
	path  string
	size  uint64
	mtime int64
}

// View owns a root, the engine that serves it, an in-memory listing
// built by a single recursive load, a per-path entry cache, the
// snapshot loaded from the previous run, and an LRU-bounded memo of
// checksums computed so far this run.
type View struct {
	engine engine.Engine
	root   syncpath.Path
	logger *logging.Logger

	loaded     bool
	listing    []string // relative paths, in (depth, path) order
	entries    map[string]*entry.Entry
	previous   *snapshot.Snapshot
	digestMemo *lru.Cache
}

// New constructs a View for root, served by eng. It does not touch the
// filesystem until Load is called.
func New(eng engine.Engine, root syncpath.Path, logger *logging.Logger) *View {
	return &View{
		engine:     eng,
		root:       root,
		logger:     logger,
		entries:    make(map[string]*entry.Entry),
		digestMemo: lru.New(maximumDigestMemoEntries),
	}
}

// Root returns the view's root path.
func (v *View) Root() syncpath.Path {
	return v.root
}

// Load snapshots the root recursively via the engine's listing call and
// populates the listing and entry caches. It also loads (non-fatally,
// per the snapshot's load-failure policy) the previous run's snapshot.
func (v *View) Load(ctx context.Context) error {
	exists, err := v.engine.Exists(ctx, v.root.RootString(), "")
	if err != nil {
		return fmt.Errorf("unable to check root existence: %w", err)
	}
	if !exists {
		return errors.Wrapf(ErrNotFound, "root %q does not exist", v.root.RootString())
	}

	records, err := v.engine.List(ctx, v.root.RootString(), "", true)
	if err != nil {
		return fmt.Errorf("unable to list root: %w", err)
	}

	v.entries = make(map[string]*entry.Entry, len(records)+1)

	rootEntry, err := entry.New("", entry.KindDirectory, true, nil, nil, nil, false)
	if err != nil {
		return err
	}
	v.entries[""] = rootEntry

	for _, record := range records {
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
		hidden := isHiddenPath(record.Path)
		e, err := entry.New(record.Path, kind, true, size, &mtime, nil, hidden)
		if err != nil {
			return fmt.Errorf("invalid entry for %q: %w", record.Path, err)
		}
		v.entries[record.Path] = e
	}

	v.listing = make([]string, 0, len(v.entries))
	for p := range v.entries {
		v.listing = append(v.listing, p)
	}
	sortPaths(v.listing)
	v.loaded = true

	prior, err := snapshot.Load(v.root.RootString())
	if err != nil {
		v.logger.Warnf("unable to load previous snapshot for %q: %s", v.root.RootString(), err.Error())
		prior = nil
	}
	v.previous = prior

	return nil
}

// isHiddenPath reports whether the final path component is dot-prefixed.
// fsview does not import pkg/filesystem (an OS-facing package) directly
// for this; the hidden bit recorded on an Entry is a property of the
// name, independent of which engine produced it.
func isHiddenPath(relative string) bool {
	name := path.Base(relative)
	return strings.HasPrefix(name, ".")
}

// List returns the immediate children of relative, consulting the
// listing cache when loaded.
func (v *View) List(relative string) ([]*entry.Entry, error) {
	if !v.loaded {
		return nil, errors.New("view has not been loaded")
	}
	var children []*entry.Entry
	for _, p := range v.listing {
		if p == relative || p == "" {
			continue
		}
		if parentOf(p) == relative {
			children = append(children, v.entries[p])
		}
	}
	return children, nil
}

func parentOf(relative string) string {
	idx := strings.LastIndexByte(relative, '/')
	if idx < 0 {
		return ""
	}
	return relative[:idx]
}

// Walk returns every entry in the listing cache, in (depth, path) order.
func (v *View) Walk() []*entry.Entry {
	result := make([]*entry.Entry, len(v.listing))
	for i, p := range v.listing {
		result[i] = v.entries[p]
	}
	return result
}

// GetEntry produces the fully populated entry at path, failing with
// ErrNotFound if it is missing from the cache.
func (v *View) GetEntry(relative string) (*entry.Entry, error) {
	e, ok := v.entries[relative]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no entry cached at %q", relative)
	}
	return e, nil
}

// GetPreviousEntry returns the matching record from the prior-run
// snapshot, if any. With matchFullPath false it matches by final path
// component instead, returning the first hit.
func (v *View) GetPreviousEntry(relative string, matchFullPath bool) (*entry.Entry, bool) {
	if v.previous == nil {
		return nil, false
	}
	if matchFullPath {
		rec, ok := v.previous.Lookup(relative)
		if !ok {
			return nil, false
		}
		return recordToEntry(rec), true
	}
	name := path.Base(relative)
	for _, rec := range v.previous.Entries {
		if path.Base(rec.Path) == name {
			return recordToEntry(rec), true
		}
	}
	return nil, false
}

func recordToEntry(r snapshot.Record) *entry.Entry {
	return &entry.Entry{
		Path:     r.Path,
		Kind:     entry.Kind(r.Kind),
		Exists:   r.Exists,
		Size:     r.Size,
		MTime:    r.MTime,
		Checksum: r.Checksum,
		Hidden:   r.Hidden,
	}
}

// SetEntry mutates the per-run cache, inserting or removing the entry at
// relative. Passing a nil entry removes it. It fails if relative does
// not lie under the view's root.
func (v *View) SetEntry(relative string, e *entry.Entry) error {
	if _, err := v.root.Visit(relative); err != nil {
		return errors.Wrapf(err, "path %q does not lie under root", relative)
	}
	if e == nil {
		delete(v.entries, relative)
		v.removeFromListing(relative)
		return nil
	}
	if _, exists := v.entries[relative]; !exists {
		v.listing = append(v.listing, relative)
		sortPaths(v.listing)
	}
	v.entries[relative] = e
	return nil
}

func (v *View) removeFromListing(relative string) {
	for i, p := range v.listing {
		if p == relative {
			v.listing = append(v.listing[:i], v.listing[i+1:]...)
			return
		}
	}
}

// Flush writes the current per-run cache as the next run's previous
// snapshot, with entries ordered by (depth, path). It is idempotent if
// the cache is empty.
func (v *View) Flush(now time.Time) error {
	entries := make([]*entry.Entry, 0, len(v.entries))
	for _, e := range v.entries {
		entries = append(entries, e)
	}
	snap := snapshot.FromEntries(v.root.RootString(), entries, now)
	return snapshot.Save(snap, v.logger)
}

// IsRemote reports whether the view's root matches any engine-declared
// remote.
func (v *View) IsRemote(ctx context.Context) (bool, error) {
	remotes, err := v.engine.ListRemotes(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to list remotes: %w", err)
	}
	for _, r := range remotes {
		if r.Root == v.root.RootString() {
			return true, nil
		}
	}
	return false, nil
}

// GetChecksum returns e's cached checksum, computing and caching it via
// the engine if absent. It first consults the same-run digest memo
// keyed on (path, size, mtime), so a file re-examined later in the same
// run without having changed never triggers a second hash pass, and then
// the prior-run snapshot, whose checksum is reused when its size and mtime
// match e's. The engine may decline to hash (empty string, nil error);
// GetChecksum then returns an empty string without caching anything.
func (v *View) GetChecksum(ctx context.Context, e *entry.Entry) (string, error) {
	if e.Checksum != nil {
		return *e.Checksum, nil
	}

	key, memoable := digestKeyFor(e)
	if memoable {
		if cached, ok := v.digestMemo.Get(key); ok {
			sum := cached.(string)
			e.Checksum = &sum
			return sum, nil
		}
	}

	if prior, ok := v.GetPreviousEntry(e.Path, true); ok && prior.Checksum != nil && prior.SameMetadata(e) {
		sum := *prior.Checksum
		e.Checksum = &sum
		return sum, nil
	}

	isRemote, err := v.IsRemote(ctx)
	if err != nil {
		return "", err
	}
	sum, err := v.engine.Checksum(ctx, v.root.RootString(), e.Path, isRemote)
	if err != nil {
		return "", fmt.Errorf("unable to compute checksum for %q: %w", e.Path, err)
	}
	if sum == "" {
		return "", nil
	}
	e.Checksum = &sum
	if memoable {
		v.digestMemo.Add(key, sum)
	}
	return sum, nil
}

// digestKeyFor builds a memo key from e's size and mtime, reporting
// false if e lacks either (directories and entries stat'd without an
// mtime never get memoized).
func digestKeyFor(e *entry.Entry) (digestMemoKey, bool) {
	if e.Size == nil || e.MTime == nil {
		return digestMemoKey{}, false
	}
	return digestMemoKey{path: e.Path, size: *e.Size, mtime: e.MTime.UnixNano()}, true
}

func sortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return pathLess(paths[i], paths[j])
	})
}

// pathLess orders relative paths by (depth, lexicographic), matching
// the order the comparer's entry pair stream and the snapshot file both
// use.
func pathLess(a, b string) bool {
	da, db := pathDepth(a), pathDepth(b)
	if da != db {
		return da < db
	}
	return a < b
}

func pathDepth(relative string) int {
	if relative == "" {
		return 0
	}
	depth := 1
	for _, r := range relative {
		if r == '/' {
			depth++
		}
	}
	return depth
}
