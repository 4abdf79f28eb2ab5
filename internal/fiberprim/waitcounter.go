package fiberprim

import "code.hybscloud.com/atomix"

// WaitCounter is the atomic batch counter a waiting fiber blocks on:
// initialised to a wait batch's size, decremented once per completed
// child, and probed by the scheduler for zero. It lives on the waiting
// fiber's stack frame (conceptually — in this package, on the
// WaitForJobs call's Go stack) and is destroyed when the wait returns.
//
// Decrement uses an acquire-release add so a child's completion
// happens-before the scheduler's zero-check.
type WaitCounter struct {
	n atomix.Int64
}

// NewWaitCounter creates a counter set to the batch size.
func NewWaitCounter(size int) *WaitCounter {
	c := &WaitCounter{}
	c.n.StoreRelease(int64(size))
	return c
}

// Decrement reduces the counter by one; called exactly once per child
// fiber on completion, normal or exceptional.
func (c *WaitCounter) Decrement() {
	c.n.AddAcqRel(-1)
}

// IsZero reports whether every child in the batch has completed.
func (c *WaitCounter) IsZero() bool {
	return c.n.LoadAcquire() <= 0
}

// Load returns the current value, for diagnostics and tests.
func (c *WaitCounter) Load() int64 {
	return c.n.LoadAcquire()
}
