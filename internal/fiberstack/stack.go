// Package fiberstack implements a managed stack region: a page-aligned
// reservation bracketed by a head and tail guard page with no read/write
// access.
//
// A goroutine's real stack is grown and moved by the Go runtime and can
// never be the target of this kind of reservation — so a Region here is
// not the memory a Fiber's goroutine executes on. It exists to give the
// scheduler a genuine, testable resource with a fixed layout (guard |
// usable×N | guard): a per-fiber memory budget whose exhaustion or
// corruption is a deterministic page fault rather than a silent runtime
// stack-growth, used for accounting and tests that exercise the
// guard-page contract directly.
package fiberstack

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/forgekit/fiberjobs/internal/ferrors"
)

// DefaultPages is the usable page count for a fiber's stack reservation
// when no explicit size is requested. At a 4 KiB page size this lands
// close to the ~40 KiB typical of a game job's native stack footprint.
const DefaultPages = 10

// Region is one reservation: [guard page | usable pages | guard page].
type Region struct {
	reservation []byte // the whole mmap, including both guard pages
	usable      []byte // the inner slice callers may read/write
	pageSize    int
}

// New reserves pages+2 system pages in one mmap call and marks the first
// and last pages PROT_NONE. On any failure the partial reservation is
// unmapped before the error is returned.
func New(pages int) (*Region, error) {
	if pages <= 0 {
		pages = DefaultPages
	}
	pageSize := unix.Getpagesize()
	total := (pages + 2) * pageSize

	mem, err := unix.Mmap(-1, 0, total,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, &ferrors.ResourceFailure{Op: "fiberstack.New: mmap", Err: err}
	}

	if err := unix.Mprotect(mem[:pageSize], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mem)
		return nil, &ferrors.ResourceFailure{Op: "fiberstack.New: guard head mprotect", Err: err}
	}
	if err := unix.Mprotect(mem[total-pageSize:], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(mem)
		return nil, &ferrors.ResourceFailure{Op: "fiberstack.New: guard tail mprotect", Err: err}
	}

	return &Region{
		reservation: mem,
		usable:      mem[pageSize : total-pageSize],
		pageSize:    pageSize,
	}, nil
}

// Usable returns the inner, read/write region between the two guard pages.
func (r *Region) Usable() []byte {
	return r.usable
}

// Len reports the usable region's byte length.
func (r *Region) Len() int {
	return len(r.usable)
}

// BaseAddr returns the logical stack base: the high end of the usable
// region, less one page of slack so a notional prologue has room to write
// before the tail guard page. It is a diagnostic value only — nothing
// dereferences it.
func (r *Region) BaseAddr() uintptr {
	start := uintptr(unsafe.Pointer(&r.usable[0]))
	return start + uintptr(len(r.usable)) - uintptr(r.pageSize)
}

// Release unmaps the entire reservation, guard pages included.
func (r *Region) Release() error {
	if r.reservation == nil {
		return nil
	}
	err := unix.Munmap(r.reservation)
	r.reservation = nil
	r.usable = nil
	if err != nil {
		return &ferrors.ResourceFailure{Op: "fiberstack.Region.Release: munmap", Err: err}
	}
	return nil
}
