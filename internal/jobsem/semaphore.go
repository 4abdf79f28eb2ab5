// Package jobsem implements a counting semaphore: the only blocking
// point on the worker-consumer side of the job system.
package jobsem

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// Semaphore is a classic counting semaphore. Release increments the count
// and wakes at most one waiter; Acquire blocks while the count is zero,
// then decrements it. Strict FIFO ordering across waiters is not
// guaranteed, only that no waiter starves under a steady stream of
// releases, which sync.Cond's wakeup order satisfies in practice.
type Semaphore struct {
	mu    sync.Mutex
	cond  sync.Cond
	count atomix.Int64
}

// New creates a semaphore initialised with a non-negative count.
func New(initial int) *Semaphore {
	if initial < 0 {
		initial = 0
	}
	s := &Semaphore{}
	s.cond.L = &s.mu
	s.count.StoreRelease(int64(initial))
	return s
}

// Acquire blocks until the count is greater than zero, then decrements it.
func (s *Semaphore) Acquire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count.LoadAcquire() <= 0 {
		s.cond.Wait()
	}
	s.count.AddAcqRel(-1)
}

// Release increments the count and wakes at most one blocked Acquire.
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.count.AddAcqRel(1)
	s.mu.Unlock()
	s.cond.Signal()
}

// TryAcquire decrements the count without blocking if it is currently
// greater than zero, reporting whether it did.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count.LoadAcquire() <= 0 {
		return false
	}
	s.count.AddAcqRel(-1)
	return true
}

// ReleaseN releases the semaphore n times, waking up to n waiters.
func (s *Semaphore) ReleaseN(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.count.AddAcqRel(int64(n))
	s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.cond.Signal()
	}
}

// Count returns the current count. It is a snapshot; the count may change
// immediately after the read returns.
func (s *Semaphore) Count() int64 {
	return s.count.LoadAcquire()
}
