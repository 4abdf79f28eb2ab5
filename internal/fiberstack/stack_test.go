package fiberstack

import (
	"os"
	"os/exec"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/suite"
)

type StackTestSuite struct {
	suite.Suite
}

func TestStackTestSuite(t *testing.T) {
	suite.Run(t, new(StackTestSuite))
}

func (ts *StackTestSuite) TestNewDefaultPages() {
	r, err := New(0)
	ts.Require().NoError(err)
	defer r.Release()

	ts.Equal(DefaultPages*r.pageSize, r.Len())
	ts.Len(r.Usable(), DefaultPages*r.pageSize)
}

func (ts *StackTestSuite) TestNewCustomPages() {
	r, err := New(4)
	ts.Require().NoError(err)
	defer r.Release()

	ts.Equal(4*r.pageSize, r.Len())
}

func (ts *StackTestSuite) TestBaseAddrWithinUsableRegion() {
	r, err := New(4)
	ts.Require().NoError(err)
	defer r.Release()

	low := uintptr(unsafe.Pointer(&r.Usable()[0]))
	high := low + uintptr(len(r.Usable()))
	ts.Greater(r.BaseAddr(), low)
	ts.Less(r.BaseAddr(), high)
}

func (ts *StackTestSuite) TestReleaseIsIdempotent() {
	r, err := New(2)
	ts.Require().NoError(err)

	ts.Require().NoError(r.Release())
	ts.NoError(r.Release())
}

// TestGuardPageFaults proves the head guard page is genuinely
// inaccessible by touching it in a re-exec'd child process and
// asserting the child dies from a fault rather than exiting cleanly.
// This is the standard Go "crasher subprocess" pattern (as used by the
// stdlib's own os/exec tests) since a real SIGSEGV cannot be recovered
// from within the same test binary's process.
func TestGuardPageFaults(t *testing.T) {
	if os.Getenv("FIBERSTACK_BE_CRASHER") == "1" {
		r, err := New(2)
		if err != nil {
			os.Exit(2)
		}
		r.reservation[0] = 1 // touch the head guard page
		os.Exit(0)           // unreachable if the guard page is real
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestGuardPageFaults")
	cmd.Env = append(os.Environ(), "FIBERSTACK_BE_CRASHER=1")
	err := cmd.Run()

	if err == nil {
		t.Fatal("expected the guard page write to crash the subprocess")
	}
	if _, ok := err.(*exec.ExitError); !ok {
		t.Fatalf("expected an *exec.ExitError from the crasher, got %T: %v", err, err)
	}
}
