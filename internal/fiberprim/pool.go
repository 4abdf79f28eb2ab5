package fiberprim

import (
	"sync"

	"github.com/forgekit/fiberjobs/internal/ferrors"
	"github.com/forgekit/fiberjobs/internal/fiberstack"
)

// DefaultPoolBlockSize is how many stack regions a Pool maps in one
// growth step when it runs out of free regions.
const DefaultPoolBlockSize = 32

// Pool is the fiber-pooling layer: instead of mapping a fresh guard-paged
// stack region on every submission, Next hands out a previously-reserved
// one and Release returns it. The pool grows in fixed-size blocks and
// never shrinks, bounding the number of live stack reservations under
// load to however many blocks have been grown so far. Releasing a region
// that was never handed out by this pool is a ContractViolation.
type Pool struct {
	mu        sync.Mutex
	blockSize int
	pages     int
	free      []*fiberstack.Region
	live      map[*fiberstack.Region]bool
}

// NewPool creates a pool that reserves stack regions of the given page
// size, growing blockSize regions at a time.
func NewPool(pages, blockSize int) *Pool {
	if blockSize <= 0 {
		blockSize = DefaultPoolBlockSize
	}
	if pages <= 0 {
		pages = fiberstack.DefaultPages
	}
	return &Pool{
		blockSize: blockSize,
		pages:     pages,
		live:      make(map[*fiberstack.Region]bool),
	}
}

// Next hands out a fiber shell bound to job and counter, backed by a
// pooled stack region. It grows the pool by one block if none are free.
func (p *Pool) Next(job Job, counter *WaitCounter) (*Fiber, error) {
	region, err := p.acquireRegion()
	if err != nil {
		return nil, err
	}
	return NewFromRegion(job, counter, region), nil
}

// Release returns a fiber's stack region to the free list for reuse.
// Calling it on a fiber whose region was never handed out by this pool —
// including calling it twice on the same fiber — is a ContractViolation.
func (p *Pool) Release(f *Fiber) {
	region := f.DetachStack()
	if region == nil {
		panic(&ferrors.ContractViolation{Msg: "fiberprim.Pool.Release: fiber's stack was never handed out by this pool"})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live[region] {
		panic(&ferrors.ContractViolation{Msg: "fiberprim.Pool.Release: region not owned by this pool"})
	}
	delete(p.live, region)
	p.free = append(p.free, region)
}

func (p *Pool) acquireRegion() (*fiberstack.Region, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		for i := 0; i < p.blockSize; i++ {
			r, err := fiberstack.New(p.pages)
			if err != nil {
				return nil, err
			}
			p.free = append(p.free, r)
		}
	}

	r := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.live[r] = true
	return r, nil
}

// LiveCount reports how many regions are currently handed out.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// FreeCount reports how many reserved regions are sitting idle, ready to
// be handed out without a new mmap.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
