package fiberjobs

import "context"

// JobSystem is the public scheduling contract. Both backends (fiber-backed
// and thread-backed) implement it identically from a caller's perspective.
type JobSystem interface {
	// AddJobs submits a batch fire-and-forget: it does not wait, and a
	// job's error has no observer — it is dropped.
	AddJobs(jobs []Job)

	// WaitForJobs blocks the caller until every job in the batch has
	// completed, then returns. If any job failed, the first such error
	// is returned wrapped in a *JobError. ctx carries the calling
	// fiber's identity when called from inside a fiber-backed job; a
	// plain context.Background() (or any context with no fiber
	// attached) takes the non-fiber bootstrap path instead.
	WaitForJobs(ctx context.Context, jobs []Job) error

	// Shutdown stops consuming the queue and joins all workers.
	// Enqueued-but-not-yet-executed fibers are abandoned; shutdown is a
	// terminal event.
	Shutdown()
}

// New constructs a fiber-backed JobSystem sized for the host.
func New() JobSystem {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig constructs the backend cfg.Backend selects.
func NewWithConfig(cfg Config) JobSystem {
	cfg = cfg.normalized()
	switch cfg.Backend {
	case ThreadBacked:
		return newThreadBackedSystem(cfg)
	default:
		return newFiberBackedSystem(cfg)
	}
}
