package fiberjobs

import (
	"runtime"

	"github.com/forgekit/fiberjobs/internal/fiberprim"
	"github.com/forgekit/fiberjobs/internal/fiberstack"
	"github.com/forgekit/fiberjobs/internal/jobqueue"
)

// Backend selects which JobSystem implementation a Config builds. The
// choice is a construction-time switch only — it does not change the
// semantics visible to callers.
type Backend int

const (
	// FiberBacked is the fiber/wait-counter scheduler: the one worth the
	// complexity, and the default.
	FiberBacked Backend = iota
	// ThreadBacked launches one OS-backed goroutine per job, a trivial
	// baseline comparison implementing the same contract.
	ThreadBacked
)

// Config configures a JobSystem's construction. Worker count is fixed
// for the system's lifetime — the pool is never resized after
// construction.
type Config struct {
	Backend Backend

	// NumWorkers is the fixed worker pool size for the fiber-backed
	// system (ignored by the thread-backed one, which sizes itself to
	// the job batch). Zero selects runtime.NumCPU()-1, floored at 1.
	NumWorkers int

	// QueueCapacity bounds the shared MPMC queue backing the fiber
	// scheduler. Zero selects jobqueue.DefaultCapacity.
	QueueCapacity int

	// StackPages is the usable page count reserved per fiber stack.
	// Zero selects fiberstack.DefaultPages.
	StackPages int

	// PoolBlockSize is how many stack reservations the fiber pool maps
	// at a time when it runs out of free ones. Zero selects
	// fiberprim.DefaultPoolBlockSize.
	PoolBlockSize int
}

// DefaultConfig returns a fiber-backed configuration sized for the host.
func DefaultConfig() Config {
	return Config{
		Backend:       FiberBacked,
		NumWorkers:    defaultWorkerCount(),
		QueueCapacity: jobqueue.DefaultCapacity,
		StackPages:    fiberstack.DefaultPages,
		PoolBlockSize: fiberprim.DefaultPoolBlockSize,
	}
}

func defaultWorkerCount() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) normalized() Config {
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultWorkerCount()
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = jobqueue.DefaultCapacity
	}
	if c.StackPages <= 0 {
		c.StackPages = fiberstack.DefaultPages
	}
	if c.PoolBlockSize <= 0 {
		c.PoolBlockSize = fiberprim.DefaultPoolBlockSize
	}
	return c
}
