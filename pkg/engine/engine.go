// Package engine defines the narrow asynchronous contract a transfer
// backend must satisfy to be driven by the filesystem view and the
// executor, and ships one concrete implementation (Local) operating on
// the local filesystem.
package engine

import (
	"context"
	"time"
)

// RemoteDescriptor identifies one remote the engine knows how to reach.
type RemoteDescriptor struct {
	Kind string
	Root string
}

// EntryRecord is the engine's wire-level description of one filesystem
// object, as returned by List and Stat.
type EntryRecord struct {
	Path  string
	Name  string
	Size  uint64
	MTime time.Time
	IsDir bool
}

// JobHandle is an opaque reference to an asynchronous operation the
// engine is carrying out (currently only CopyFile produces one).
type JobHandle string

// JobState is the lifecycle state of an engine job.
type JobState int

const (
	JobNotStarted JobState = iota
	JobInProgress
	JobFinished
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobNotStarted:
		return "not_started"
	case JobInProgress:
		return "in_progress"
	case JobFinished:
		return "finished"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobUpdate reports the current state of one job, and an error detail
// when State == JobFailed.
type JobUpdate struct {
	Handle JobHandle
	State  JobState
	Err    error
}

// Engine is the contract consumed by pkg/fsview and pkg/executor. All
// methods accept a context so that implementations backed by a network
// round trip can honour cancellation; Local, the in-process
// implementation, mostly ignores it beyond checking ctx.Err() at entry.
type Engine interface {
	// ListRemotes reports the remotes the engine can reach. Local
	// reports none: every root it serves is, by definition, not remote.
	ListRemotes(ctx context.Context) ([]RemoteDescriptor, error)

	// List returns the children of root/relative. If recursive is
	// true, it returns every descendant, not just immediate children.
	List(ctx context.Context, root, relative string, recursive bool) ([]EntryRecord, error)

	// Stat returns the record for root/relative, or nil if it does not
	// exist.
	Stat(ctx context.Context, root, relative string) (*EntryRecord, error)

	// Exists reports whether root/relative is present.
	Exists(ctx context.Context, root, relative string) (bool, error)

	// Checksum computes (or retrieves) a checksum for root/relative. It
	// may return ("", nil) when the engine declines to hash (e.g. a
	// remote that forbids server-side hashing).
	Checksum(ctx context.Context, root, relative string, remote bool) (string, error)

	// CopyFile begins an asynchronous copy of srcRoot/srcRel to
	// dstRoot/dstRel, returning a handle to track its progress through
	// Jobs.
	CopyFile(ctx context.Context, srcRoot, srcRel, dstRoot, dstRel string) (JobHandle, error)

	// DeleteFile removes a single file.
	DeleteFile(ctx context.Context, root, relative string) error

	// Rmdir removes an empty directory, failing loudly if it is not
	// empty.
	Rmdir(ctx context.Context, root, relative string) error

	// Jobs returns a stream of state transitions for every job the
	// engine is tracking. The channel is closed when ctx is cancelled.
	Jobs(ctx context.Context) (<-chan JobUpdate, error)

	// StopPendingJobs cancels every job that has not yet finished.
	StopPendingJobs(ctx context.Context) error
}
