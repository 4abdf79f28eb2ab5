package fiberjobs

import "github.com/forgekit/fiberjobs/internal/ferrors"

// ContractViolation signals a misuse of the scheduler's API contract —
// e.g. resuming a fiber that is not RESUMABLE, or releasing a pooled
// fiber twice. It is never recovered internally; once one occurs, the
// scheduler is in a state that cannot be reasoned about further.
type ContractViolation = ferrors.ContractViolation

// ResourceFailure wraps an error from allocating a resource the
// scheduler depends on — a stack reservation, most commonly — raised
// from the call that attempted the allocation.
type ResourceFailure = ferrors.ResourceFailure

// JobError wraps the first error captured from a failing child job,
// surfaced at the matching WaitForJobs call. Unwrap returns the
// original error so callers can errors.Is/As against it.
type JobError struct {
	Err error
}

func (e *JobError) Error() string {
	return e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}
