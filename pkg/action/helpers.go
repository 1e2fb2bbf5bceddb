package action

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/engine"
)

// jobStater is satisfied by engines that expose a synchronous,
// authoritative job-state lookup in addition to the Jobs() stream
// (Local does; a remote engine would typically rely on Jobs() alone and
// updateStatusFromJob would need to consult a cache fed by that
// stream instead — out of scope here since Local is the only shipped
// implementation).
type jobStater interface {
	JobState(handle engine.JobHandle) (engine.JobState, error)
}

// updateStatusFromJob reconciles c's status with eng's view of c's job,
// following the mapping: not_started -> not_started, in_progress ->
// in_progress, finished -> success, failed -> failed.
func updateStatusFromJob(c *Common, ctx context.Context, eng engine.Engine) error {
	if c.Excluded || c.JobHandle == "" {
		return nil
	}
	stater, ok := eng.(jobStater)
	if !ok {
		return nil
	}
	// jobErr carries the job's recorded failure reason when state is
	// JobFailed; it is unrelated to "was this call itself an error".
	state, jobErr := stater.JobState(c.JobHandle)
	switch state {
	case engine.JobNotStarted:
		c.Status = StatusNotStarted
	case engine.JobInProgress:
		c.Status = StatusInProgress
	case engine.JobFinished:
		c.Status = StatusSuccess
	case engine.JobFailed:
		c.Status = StatusFailed
		c.Err = jobErr
	}
	return nil
}

// ErrRetryNotPermitted indicates Retry was called on an action that is
// not in the failed state.
var ErrRetryNotPermitted = errors.New("retry is only permitted when status is failed")

func retryCommon(c *Common) error {
	if c.Status != StatusFailed {
		return ErrRetryNotPermitted
	}
	c.Status = StatusNotStarted
	c.JobHandle = ""
	c.Err = nil
	return nil
}
