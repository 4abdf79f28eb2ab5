// Package ferrors holds the error types shared across the job system's
// internal packages, kept separate from the root package to avoid an
// import cycle (root imports internal/*, internal/* must not import root).
package ferrors

import "fmt"

// ContractViolation signals a misuse of a primitive's API contract — e.g.
// adopting a thread as a fiber twice, or resuming a fiber that is not
// RESUMABLE. Per spec it is never recovered by the library itself; callers
// that choose to recover it are on their own.
type ContractViolation struct {
	Msg string
}

func (e *ContractViolation) Error() string {
	return "fiberjobs: contract violation: " + e.Msg
}

// ResourceFailure wraps an error that occurred while allocating a resource
// the scheduler depends on to function (a stack reservation, a semaphore,
// an OS thread). It is returned from the constructor that attempted the
// allocation; partial state is cleaned up before it is returned.
type ResourceFailure struct {
	Op  string
	Err error
}

func (e *ResourceFailure) Error() string {
	return fmt.Sprintf("fiberjobs: resource failure during %s: %v", e.Op, e.Err)
}

func (e *ResourceFailure) Unwrap() error {
	return e.Err
}
