package fiberjobs

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"github.com/forgekit/fiberjobs/internal/fiberprim"
	"github.com/forgekit/fiberjobs/internal/jobqueue"
)

// fiberTuple is the unit the shared queue moves between workers: a fiber to
// run, and — only for the self-tuple a waiting fiber enqueues just before
// suspending — the WaitCounter a worker must see reach zero before it may
// resume it. A zero-value tuple (fiber == nil) is the shutdown sentinel.
type fiberTuple struct {
	fiber  *fiberprim.Fiber
	waitOn *fiberprim.WaitCounter
}

// fiberJobSystem is the fiber-backed scheduler: a fixed pool of worker
// goroutines pulling fiberTuples off one shared queue.
type fiberJobSystem struct {
	queue      *jobqueue.Queue[fiberTuple]
	pool       *fiberprim.Pool
	numWorkers int
	running    atomix.Bool
	wg         sync.WaitGroup
}

func newFiberBackedSystem(cfg Config) *fiberJobSystem {
	s := &fiberJobSystem{
		queue:      jobqueue.New[fiberTuple](cfg.QueueCapacity),
		pool:       fiberprim.NewPool(cfg.StackPages, cfg.PoolBlockSize),
		numWorkers: cfg.NumWorkers,
	}
	s.running.StoreRelease(true)
	s.wg.Add(cfg.NumWorkers)
	for i := 0; i < cfg.NumWorkers; i++ {
		go s.workerLoop()
	}
	return s
}

// workerLoop dequeues one fiber tuple at a time, spins until the fiber is
// safe to touch, then either starts a fresh one or resumes a suspended
// one — re-enqueueing instead of resuming when the fiber is waiting on a
// batch that has not finished yet.
func (s *fiberJobSystem) workerLoop() {
	defer s.wg.Done()
	for {
		t := s.queue.Dequeue()
		if t.fiber == nil || !s.running.LoadAcquire() {
			return
		}
		if t.waitOn != nil && !t.waitOn.IsZero() {
			sw := spin.Wait{}
			sw.Once()
			s.queue.Enqueue(t)
			continue
		}

		fiberprim.SpinUntilSafe(t.fiber)
		if t.fiber.State() == fiberprim.Ready {
			t.fiber.Start(context.Background())
		} else {
			t.fiber.Resume()
		}
		s.afterRun(t.fiber)
	}
}

// afterRun reclaims a fiber's stack once it has finished, but only for
// fire-and-forget fibers. A fiber being waited on is released by the
// WaitForJobs call that is waiting for it, after inspecting its error.
func (s *fiberJobSystem) afterRun(f *fiberprim.Fiber) {
	if f.State() == fiberprim.Done && !f.IsBeingWaitedOn() {
		s.pool.Release(f)
	}
}

func (s *fiberJobSystem) AddJobs(jobs []Job) {
	if !s.running.LoadAcquire() {
		panic(&ContractViolation{Msg: "AddJobs called after Shutdown"})
	}
	for _, j := range jobs {
		f, err := s.pool.Next(fiberprim.Job(j), nil)
		if err != nil {
			panic(&ResourceFailure{Op: "AddJobs: allocate fiber", Err: err})
		}
		s.queue.Enqueue(fiberTuple{fiber: f})
	}
}

func (s *fiberJobSystem) WaitForJobs(ctx context.Context, jobs []Job) error {
	if !s.running.LoadAcquire() {
		panic(&ContractViolation{Msg: "WaitForJobs called after Shutdown"})
	}
	if parent, ok := fiberprim.FromContext(ctx); ok {
		return s.waitForJobsOnFiber(parent, jobs)
	}
	return s.bootstrapWait(jobs)
}

// waitForJobsOnFiber allocates a counter sized to the batch, spawns and
// enqueues every child against it, marks the caller unsafe and enqueues
// its own resumable tuple, then suspends. Once resumed — which only
// happens once every child has decremented the counter to zero — it
// collects the first child error and releases every child's stack.
func (s *fiberJobSystem) waitForJobsOnFiber(parent *fiberprim.Fiber, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}

	counter := fiberprim.NewWaitCounter(len(jobs))
	children := make([]*fiberprim.Fiber, len(jobs))
	for i, j := range jobs {
		child, err := s.pool.Next(fiberprim.Job(j), counter)
		if err != nil {
			panic(&ResourceFailure{Op: "WaitForJobs: allocate child fiber", Err: err})
		}
		children[i] = child
		s.queue.Enqueue(fiberTuple{fiber: child})
	}

	parent.SetUnsafe()
	s.queue.Enqueue(fiberTuple{fiber: parent, waitOn: counter})
	parent.Suspend()

	var firstErr error
	for _, c := range children {
		if err := c.Err(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.pool.Release(c)
	}
	if firstErr != nil {
		return &JobError{Err: firstErr}
	}
	return nil
}

// bootstrapWait lets a caller with no fiber of its own — the game loop
// driver's main goroutine, a test, anything outside the worker pool — wait
// on a batch. It wraps the wait in a fire-and-forget wrapper job submitted
// to the system like any other job, and blocks on a channel for its result.
//
// The wrapper fiber is deliberately never released here: it carries no
// wait counter, so the worker loop's afterRun path reclaims it the instant
// its job function returns, exactly like any other fire-and-forget fiber.
// Releasing it again from this side would double-release the same region.
func (s *fiberJobSystem) bootstrapWait(jobs []Job) error {
	done := make(chan error, 1)
	wrapper, err := s.pool.Next(func(ctx context.Context) error {
		self, ok := fiberprim.FromContext(ctx)
		if !ok {
			panic(&ContractViolation{Msg: "bootstrapWait: wrapper job lost its fiber context"})
		}
		done <- s.waitForJobsOnFiber(self, jobs)
		return nil
	}, nil)
	if err != nil {
		panic(&ResourceFailure{Op: "bootstrapWait: allocate wrapper fiber", Err: err})
	}

	s.queue.Enqueue(fiberTuple{fiber: wrapper})
	return <-done
}

// Shutdown stops accepting work, wakes every worker with a sentinel
// tuple, and joins them. Items still sitting in the queue are abandoned.
func (s *fiberJobSystem) Shutdown() {
	s.running.StoreRelease(false)
	for i := 0; i < s.numWorkers; i++ {
		s.queue.Enqueue(fiberTuple{})
	}
	s.wg.Wait()
}
