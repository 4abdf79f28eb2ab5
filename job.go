// Package fiberjobs implements a fiber-based job system for scheduling
// user-supplied work units across a fixed pool of worker threads, with
// cooperative suspension so a job may await the completion of sub-jobs
// without blocking its worker.
//
// Two backends implement the same JobSystem contract: a fiber-backed
// scheduler (the interesting one — see internal/fiberprim and
// fiber_backend.go) and a trivial thread-backed one used as a baseline
// comparison (thread_backend.go). Pick one with New/NewWithConfig; both
// honor the same AddJobs/WaitForJobs semantics.
package fiberjobs

import "context"

// Job is a unit of work: a callable that may fail by returning an error.
// It is invoked with a context carrying its own fiber identity (on the
// fiber-backed system) so it can call WaitForJobs on itself from inside
// its own body, without needing any other handle back to the fiber
// running it.
//
// A Job value is cheap to copy (it is a closure) and is invoked exactly
// once regardless of which backend runs it.
type Job func(ctx context.Context) error
