// Package jobqueue implements the concurrent FIFO queue shared by all
// worker threads in the fiber-backed job system.
//
// It is built on top of code.hybscloud.com/lfq's FAA-based MPMC ring
// buffer, adding the blocking Dequeue and Empty operations callers need
// that lfq's non-blocking primitive does not provide on its own. lfq
// returns ErrWouldBlock on a full or empty queue; this package treats
// "full" as a transient condition and retries with the ecosystem's
// spin-backoff helper rather than surfacing it — callers should not have
// to handle backpressure errors from a simple enqueue.
package jobqueue

import (
	"code.hybscloud.com/lfq"
	"code.hybscloud.com/spin"

	"github.com/forgekit/fiberjobs/internal/jobsem"
)

// DefaultCapacity is used when a caller does not request a specific
// bound. It is generous relative to typical in-flight job counts so
// Enqueue's retry loop resolves quickly under normal load.
const DefaultCapacity = 4096

// Queue is a thread-safe FIFO of values of type T. Enqueue and Dequeue are
// linearisable; FIFO order is preserved per producer and interleaved
// across producers, exactly as the underlying lfq.MPMC guarantees.
type Queue[T any] struct {
	ring  *lfq.MPMC[T]
	avail *jobsem.Semaphore // counts items enqueued but not yet removed
}

// New creates a queue with the given capacity (rounded up to a power of
// two by lfq). A capacity below 2 selects DefaultCapacity.
func New[T any](capacity int) *Queue[T] {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		ring:  lfq.NewMPMC[T](capacity),
		avail: jobsem.New(0),
	}
}

// Enqueue pushes a value at the tail. It retries with backoff on a
// transient "full" signal from the ring buffer rather than returning an
// error, since an enqueue should never surface backpressure as a failure.
func (q *Queue[T]) Enqueue(v T) {
	sw := spin.Wait{}
	for {
		if err := q.ring.Enqueue(&v); err == nil {
			q.avail.Release()
			return
		}
		sw.Once()
	}
}

// TryDequeue pops from the head if a value is available without waiting,
// reporting whether it did.
func (q *Queue[T]) TryDequeue() (T, bool) {
	if !q.avail.TryAcquire() {
		var zero T
		return zero, false
	}
	return q.drainOne(), true
}

// Dequeue blocks the caller until a value is available, then pops it.
func (q *Queue[T]) Dequeue() T {
	q.avail.Acquire()
	return q.drainOne()
}

// drainOne removes the item the avail semaphore has already accounted
// for. The underlying ring buffer's Dequeue can transiently report empty
// under contention even though accounting guarantees an item is present,
// so it is retried with backoff rather than treated as a real failure.
func (q *Queue[T]) drainOne() T {
	sw := spin.Wait{}
	for {
		v, err := q.ring.Dequeue()
		if err == nil {
			return v
		}
		sw.Once()
	}
}

// Empty reports whether the queue held no items at the moment of the
// call. It is a snapshot; producers and consumers may race past it
// immediately after it returns.
func (q *Queue[T]) Empty() bool {
	return q.avail.Count() == 0
}

// Len returns the number of items enqueued but not yet removed.
func (q *Queue[T]) Len() int {
	return int(q.avail.Count())
}
