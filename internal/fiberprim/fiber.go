// Package fiberprim implements the fiber primitive and its wait counter:
// the scheduling unit a worker starts, suspends mid-flight, and resumes —
// possibly from a different worker than the one that suspended it.
//
// A Fiber is backed by one goroutine for its entire lifetime. Starting a
// fiber spawns that goroutine and blocks the caller until the job returns
// or calls Suspend; suspending parks the job goroutine on a channel
// receive; resuming unparks it. The goroutine's own Go stack persists
// across the suspend, so there is no register/stack-pointer save-restore
// to hand-roll: the suspend point is a channel receive, not a saved
// instruction pointer.
package fiberprim

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"github.com/forgekit/fiberjobs/internal/ferrors"
	"github.com/forgekit/fiberjobs/internal/fiberstack"
)

// Job is a unit of work: a callable that may fail by returning an error.
// It receives a context carrying its own Fiber identity (see context.go)
// so it can call WaitForJobs on itself without any thread-local lookup.
type Job func(ctx context.Context) error

// Fiber is a scheduling unit: a Job plus the bookkeeping needed to start
// it, suspend it mid-flight, and resume it — possibly from a different
// worker goroutine than the one that suspended it.
type Fiber struct {
	job     Job
	counter *WaitCounter // weak ref to the parent wait batch; nil = fire-and-forget
	stack   *fiberstack.Region

	mu    sync.Mutex // guards state transitions below
	state State

	safe atomix.Bool

	errOnce     sync.Once
	capturedErr error

	resumeCh chan struct{} // Resume sends, Suspend receives
	yieldCh  chan struct{} // the job goroutine sends, Start/Resume receive
}

// New constructs a Fiber for job, allocating its stack reservation. If
// counter is non-nil, the fiber is "being waited on" and will decrement
// it exactly once on completion.
func New(job Job, counter *WaitCounter) (*Fiber, error) {
	return newFiber(job, counter, fiberstack.DefaultPages)
}

// NewWithStackPages is New with an explicit stack page budget, used by
// the fiber pool to size reservations for known job shapes.
func NewWithStackPages(job Job, counter *WaitCounter, pages int) (*Fiber, error) {
	return newFiber(job, counter, pages)
}

// NewFromRegion builds a Fiber reusing an already-allocated stack region
// (handed out by a Pool) instead of mapping a fresh one.
func NewFromRegion(job Job, counter *WaitCounter, region *fiberstack.Region) *Fiber {
	return newFiberWithRegion(job, counter, region)
}

func newFiber(job Job, counter *WaitCounter, pages int) (*Fiber, error) {
	region, err := fiberstack.New(pages)
	if err != nil {
		return nil, err
	}
	return newFiberWithRegion(job, counter, region), nil
}

func newFiberWithRegion(job Job, counter *WaitCounter, region *fiberstack.Region) *Fiber {
	f := &Fiber{
		job:      job,
		counter:  counter,
		stack:    region,
		state:    Ready,
		resumeCh: make(chan struct{}, 1),
		yieldCh:  make(chan struct{}, 1),
	}
	f.safe.StoreRelease(true)
	return f
}

// newLandingFiber builds the null-job fiber ThreadToFiber hands out; it
// never runs a job and holds no stack.
func newLandingFiber() *Fiber {
	f := &Fiber{
		state:    Running,
		resumeCh: make(chan struct{}, 1),
		yieldCh:  make(chan struct{}, 1),
	}
	f.safe.StoreRelease(true)
	return f
}

// Start invokes job on a fresh goroutine and blocks until it suspends or
// returns. Calling Start more than once on the same Fiber is a
// ContractViolation.
func (f *Fiber) Start(ctx context.Context) {
	f.mu.Lock()
	if f.state != Ready {
		f.mu.Unlock()
		panic(&ferrors.ContractViolation{Msg: "fiber.Start called on a fiber that is not READY"})
	}
	f.state = Running
	f.mu.Unlock()

	go f.run(ctx)
	<-f.yieldCh
}

func (f *Fiber) run(ctx context.Context) {
	err := f.job(WithFiber(ctx, f))
	f.complete(err)
}

func (f *Fiber) complete(err error) {
	if err != nil {
		f.errOnce.Do(func() { f.capturedErr = err })
	}
	if f.counter != nil {
		f.counter.Decrement()
	}
	f.mu.Lock()
	f.state = Done
	f.mu.Unlock()
	f.safe.StoreRelease(true)
	f.yieldCh <- struct{}{}
}

// Resume wakes a suspended fiber and blocks until it next suspends or
// returns. Precondition: the fiber is RESUMABLE and IsSafe(); violating
// either is a ContractViolation.
func (f *Fiber) Resume() {
	f.mu.Lock()
	if f.state != Resumable {
		f.mu.Unlock()
		panic(&ferrors.ContractViolation{Msg: "fiber.Resume called on a fiber that is not RESUMABLE"})
	}
	if !f.IsSafe() {
		f.mu.Unlock()
		panic(&ferrors.ContractViolation{Msg: "fiber.Resume called on a fiber that is not safe"})
	}
	f.state = Running
	f.mu.Unlock()

	f.resumeCh <- struct{}{}
	<-f.yieldCh
}

// Suspend parks the calling goroutine until the fiber is resumed.
// Precondition: called from within this fiber's own job. The caller
// (the waiting side of WaitForJobs) is responsible for calling SetUnsafe
// and enqueueing the resumable tuple before calling Suspend: marking
// unsafe happens before the suspend point is durably recorded, not
// inside it.
func (f *Fiber) Suspend() {
	f.mu.Lock()
	f.state = Pausing
	f.state = Resumable
	f.mu.Unlock()

	// The suspend point is durably recorded the instant this goroutine is
	// about to block on resumeCh; only then is it truthful to advertise
	// the fiber as safe to resume on any worker.
	f.safe.StoreRelease(true)
	f.yieldCh <- struct{}{}
	<-f.resumeCh
}

// IsSafe reports whether the fiber's suspend point is durably recorded
// and it may be resumed, possibly on a different worker.
func (f *Fiber) IsSafe() bool {
	return f.safe.LoadAcquire()
}

// SetUnsafe marks the fiber ineligible for resumption until it next
// reaches a durable suspend point (or completes).
func (f *Fiber) SetUnsafe() {
	f.safe.StoreRelease(false)
}

// IsBeingWaitedOn reports whether a wait counter is attached.
func (f *Fiber) IsBeingWaitedOn() bool {
	return f.counter != nil
}

// Err returns the error captured from job, if any. Only meaningful once
// the fiber has reached DONE.
func (f *Fiber) Err() error {
	return f.capturedErr
}

// State returns the fiber's current position in the state machine.
func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Release frees the fiber's stack reservation. Callers must not call
// Start or Resume after Release.
func (f *Fiber) Release() error {
	if f.stack == nil {
		return nil
	}
	return f.stack.Release()
}

// DetachStack removes and returns the fiber's stack region without
// unmapping it, for a Pool reclaiming it for reuse. Callers must not call
// Start or Resume on the fiber afterwards.
func (f *Fiber) DetachStack() *fiberstack.Region {
	r := f.stack
	f.stack = nil
	return r
}

// SpinUntilSafe busy-waits (with ecosystem backoff) until the fiber
// reports safe. A brief backoff is preferred over an unbounded hot spin;
// spin.Wait is the ecosystem helper for exactly that.
func SpinUntilSafe(f *Fiber) {
	sw := spin.Wait{}
	for !f.IsSafe() {
		sw.Once()
	}
}

// ThreadToFiber adopts tok as a fiber identity, idempotent-safe exactly
// once. A second adoption on the same token is a ContractViolation. This
// gives a plain OS thread a fiber identity via an explicit token, since Go
// goroutines expose no stable OS-thread-like identity to adopt implicitly.
// The worker loop in this module never calls it — no goroutine here needs
// to present itself as a fiber — so today it is reached only by tests
// exercising the primitive directly.
func ThreadToFiber(tok *ThreadToken) *Fiber {
	tok.mu.Lock()
	defer tok.mu.Unlock()
	if tok.fiber != nil {
		panic(&ferrors.ContractViolation{Msg: "thread already adopted as a fiber"})
	}
	tok.fiber = newLandingFiber()
	return tok.fiber
}

// ThreadToken represents one OS-thread-like identity (in practice, one
// worker goroutine's lifetime) that may be adopted as a fiber at most
// once via ThreadToFiber.
type ThreadToken struct {
	mu    sync.Mutex
	fiber *Fiber
}
