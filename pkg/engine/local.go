package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dirmirror/dirmirror/pkg/filesystem"
	"github.com/dirmirror/dirmirror/pkg/hashing"
	"github.com/dirmirror/dirmirror/pkg/logging"
	"github.com/dirmirror/dirmirror/pkg/must"
)

// Local is a Transfer Engine implementation operating directly on the
// local filesystem. It exists so that the core is runnable end-to-end
// without a real remote backend: every root it serves is local, so
// ListRemotes always reports none.
type Local struct {
	algorithm hashing.Algorithm
	logger    *logging.Logger

	mu          sync.Mutex
	jobs        map[JobHandle]JobState
	jobErrs     map[JobHandle]error
	subscribers map[chan JobUpdate]struct{}
}

// NewLocal constructs a Local engine that hashes with algorithm when
// Checksum is asked to compute one.
func NewLocal(algorithm hashing.Algorithm, logger *logging.Logger) *Local {
	return &Local{
		algorithm:   algorithm,
		logger:      logger,
		jobs:        make(map[JobHandle]JobState),
		jobErrs:     make(map[JobHandle]error),
		subscribers: make(map[chan JobUpdate]struct{}),
	}
}

var _ Engine = (*Local)(nil)

// ListRemotes always returns an empty list: Local serves only local
// roots, none of which are remote by definition.
func (l *Local) ListRemotes(ctx context.Context) ([]RemoteDescriptor, error) {
	return nil, nil
}

func absolute(root, relative string) string {
	if relative == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(relative))
}

// List returns the children of root/relative. With recursive set it
// returns every descendant beneath it, using pkg/filesystem.Walk.
func (l *Local) List(ctx context.Context, root, relative string, recursive bool) ([]EntryRecord, error) {
	base := absolute(root, relative)

	if !recursive {
		contents, err := filesystem.DirectoryContentsByPath(base)
		if err != nil {
			return nil, fmt.Errorf("unable to list directory: %w", err)
		}
		records := make([]EntryRecord, 0, len(contents))
		for _, info := range contents {
			childRelative := info.Name()
			if relative != "" {
				childRelative = relative + "/" + info.Name()
			}
			records = append(records, EntryRecord{
				Path:  childRelative,
				Name:  info.Name(),
				Size:  uint64(info.Size()),
				MTime: info.ModTime(),
				IsDir: info.IsDir(),
			})
		}
		return records, nil
	}

	var records []EntryRecord
	err := filesystem.Walk(base, func(childRelative string, info os.FileInfo) error {
		if childRelative == "" {
			return nil
		}
		full := childRelative
		if relative != "" {
			full = relative + "/" + childRelative
		}
		records = append(records, EntryRecord{
			Path:  full,
			Name:  filepath.Base(childRelative),
			Size:  uint64(info.Size()),
			MTime: info.ModTime(),
			IsDir: info.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to walk directory: %w", err)
	}
	return records, nil
}

// Stat returns the record for root/relative, or nil if it does not
// exist.
func (l *Local) Stat(ctx context.Context, root, relative string) (*EntryRecord, error) {
	info, err := os.Lstat(absolute(root, relative))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to stat: %w", err)
	}
	return &EntryRecord{
		Path:  relative,
		Name:  filepath.Base(info.Name()),
		Size:  uint64(info.Size()),
		MTime: info.ModTime(),
		IsDir: info.IsDir(),
	}, nil
}

// Exists reports whether root/relative is present.
func (l *Local) Exists(ctx context.Context, root, relative string) (bool, error) {
	record, err := l.Stat(ctx, root, relative)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Checksum computes a checksum of root/relative using the engine's
// configured algorithm. The remote parameter is accepted for interface
// conformance but ignored: Local never declines to hash.
func (l *Local) Checksum(ctx context.Context, root, relative string, remote bool) (string, error) {
	file, err := os.Open(absolute(root, relative))
	if err != nil {
		return "", fmt.Errorf("unable to open file for hashing: %w", err)
	}
	defer must.Close(file, l.logger)

	return hashing.Digest(l.algorithm, file)
}

// CopyFile begins an asynchronous copy of srcRoot/srcRel to
// dstRoot/dstRel, running the transfer on its own goroutine and
// publishing state transitions through Jobs.
func (l *Local) CopyFile(ctx context.Context, srcRoot, srcRel, dstRoot, dstRel string) (JobHandle, error) {
	handle := JobHandle(uuid.New().String())

	l.mu.Lock()
	l.jobs[handle] = JobNotStarted
	l.mu.Unlock()

	go l.runCopy(ctx, handle, absolute(srcRoot, srcRel), absolute(dstRoot, dstRel))

	return handle, nil
}

func (l *Local) runCopy(ctx context.Context, handle JobHandle, src, dst string) {
	l.setJobState(handle, JobInProgress, nil)

	err := copyFile(src, dst)
	if err != nil {
		l.setJobState(handle, JobFailed, err)
		return
	}
	l.setJobState(handle, JobFinished, nil)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("unable to create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("unable to copy contents: %w", err)
	}

	return out.Close()
}

// DeleteFile removes a single file.
func (l *Local) DeleteFile(ctx context.Context, root, relative string) error {
	if err := os.Remove(absolute(root, relative)); err != nil {
		return fmt.Errorf("unable to delete file: %w", err)
	}
	return nil
}

// Rmdir removes an empty directory, failing loudly if it is not empty
// (os.Remove already refuses to remove a non-empty directory).
func (l *Local) Rmdir(ctx context.Context, root, relative string) error {
	if err := os.Remove(absolute(root, relative)); err != nil {
		return fmt.Errorf("unable to remove directory: %w", err)
	}
	return nil
}

// Jobs returns a per-caller stream of job state transitions. Each
// subscriber receives every update published after it subscribes; the
// channel is closed once ctx is cancelled.
func (l *Local) Jobs(ctx context.Context) (<-chan JobUpdate, error) {
	ch := make(chan JobUpdate, 64)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subscribers, ch)
		l.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// StopPendingJobs marks every job that has not reached a terminal state
// as failed. Local does not support cancelling an in-flight os-level
// copy mid-stream; it only prevents not-yet-observed jobs from being
// reported as anything but failed going forward.
func (l *Local) StopPendingJobs(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for handle, state := range l.jobs {
		if state == JobNotStarted || state == JobInProgress {
			l.jobs[handle] = JobFailed
			l.jobErrs[handle] = fmt.Errorf("job stopped before completion")
			l.publishLocked(JobUpdate{Handle: handle, State: JobFailed, Err: l.jobErrs[handle]})
		}
	}
	return nil
}

func (l *Local) setJobState(handle JobHandle, state JobState, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.jobs[handle]; ok && (current == JobFinished || current == JobFailed) {
		return
	}
	l.jobs[handle] = state
	if err != nil {
		l.jobErrs[handle] = err
	}
	l.publishLocked(JobUpdate{Handle: handle, State: state, Err: err})
}

// publishLocked must be called with l.mu held.
func (l *Local) publishLocked(update JobUpdate) {
	for ch := range l.subscribers {
		select {
		case ch <- update:
		default:
			// Subscriber is too far behind; drop the update rather than
			// block the job that produced it. update_status polls the
			// authoritative map below, so a dropped notification never
			// loses state, only timeliness.
		}
	}
}

// JobState returns the last-known state of handle, used by
// Action.UpdateStatus as the authoritative source instead of relying
// solely on the notification stream.
func (l *Local) JobState(handle JobHandle) (JobState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.jobs[handle]
	if !ok {
		return JobNotStarted, fmt.Errorf("unknown job handle")
	}
	return state, l.jobErrs[handle]
}
