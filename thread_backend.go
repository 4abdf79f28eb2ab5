package fiberjobs

import (
	"context"
	"sync"
)

// threadJobSystem is the trivial baseline backend: no fiber, no shared
// queue, no stack reservations — one goroutine per job, joined with a
// sync.WaitGroup. It exists for comparison against the fiber-backed
// scheduler, and because it is the straightforward Go reading of "launch
// and wait on work" absent any cooperative-suspension requirement.
//
// It cannot cooperate with WaitForJobs called from inside one of its own
// jobs the way the fiber-backed system does: a job here runs on a plain
// goroutine with no fiber attached to its context, so a nested
// WaitForJobs call blocks that goroutine while it launches and joins the
// inner batch, rather than suspending in place.
type threadJobSystem struct {
	cfg Config
}

func newThreadBackedSystem(cfg Config) *threadJobSystem {
	return &threadJobSystem{cfg: cfg}
}

// AddJobs launches one goroutine per job and returns without waiting on
// any of them; a job's error has no observer.
func (s *threadJobSystem) AddJobs(jobs []Job) {
	for _, j := range jobs {
		go func(job Job) {
			_ = job(context.Background())
		}(j)
	}
}

// WaitForJobs launches one goroutine per job, joins all of them, and
// returns the first error encountered, if any.
func (s *threadJobSystem) WaitForJobs(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	wg.Add(len(jobs))
	for i, j := range jobs {
		go func(i int, job Job) {
			defer wg.Done()
			errs[i] = job(ctx)
		}(i, j)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return &JobError{Err: err}
		}
	}
	return nil
}

// Shutdown is a no-op: threadJobSystem holds no worker pool and no queue
// to drain or join.
func (s *threadJobSystem) Shutdown() {}
