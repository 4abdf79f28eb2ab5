package fiberprim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type FiberTestSuite struct {
	suite.Suite
}

func TestFiberTestSuite(t *testing.T) {
	suite.Run(t, new(FiberTestSuite))
}

func (ts *FiberTestSuite) TestStartRunsJobExactlyOnce() {
	calls := 0
	f, err := New(func(ctx context.Context) error {
		calls++
		return nil
	}, nil)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.Equal(1, calls)
	ts.Equal(Done, f.State())
}

func (ts *FiberTestSuite) TestStartTwiceIsContractViolation() {
	f, err := New(func(ctx context.Context) error { return nil }, nil)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.Panics(func() { f.Start(context.Background()) })
}

func (ts *FiberTestSuite) TestWaitCounterDecrementsOnNormalCompletion() {
	wc := NewWaitCounter(1)
	f, err := New(func(ctx context.Context) error { return nil }, wc)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.True(wc.IsZero())
}

func (ts *FiberTestSuite) TestWaitCounterDecrementsOnError() {
	wc := NewWaitCounter(1)
	boom := errors.New("boom")
	f, err := New(func(ctx context.Context) error { return boom }, wc)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.True(wc.IsZero())
	ts.ErrorIs(f.Err(), boom)
}

func (ts *FiberTestSuite) TestSuspendThenResumeCompletesJob() {
	f, err := New(func(ctx context.Context) error {
		self, ok := FromContext(ctx)
		if !ok {
			return errors.New("no fiber in context")
		}
		self.SetUnsafe()
		self.Suspend()
		return nil
	}, nil)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.Equal(Resumable, f.State())
	ts.True(f.IsSafe())

	f.Resume()
	ts.Equal(Done, f.State())
}

func (ts *FiberTestSuite) TestResumeAfterDoneIsContractViolation() {
	f, err := New(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}, nil)
	ts.Require().NoError(err)
	defer f.Release()

	done := make(chan struct{})
	go func() {
		f.Start(context.Background())
		close(done)
	}()
	<-done

	// fiber already completed (DONE), not RESUMABLE
	ts.Panics(func() { f.Resume() })
}

func (ts *FiberTestSuite) TestIsBeingWaitedOn() {
	fireAndForget, err := New(func(ctx context.Context) error { return nil }, nil)
	ts.Require().NoError(err)
	defer fireAndForget.Release()
	ts.False(fireAndForget.IsBeingWaitedOn())

	waited, err := New(func(ctx context.Context) error { return nil }, NewWaitCounter(1))
	ts.Require().NoError(err)
	defer waited.Release()
	ts.True(waited.IsBeingWaitedOn())
}

func (ts *FiberTestSuite) TestThisFiberResolvesToSelf() {
	var observed *Fiber
	f, err := New(func(ctx context.Context) error {
		self, _ := FromContext(ctx)
		observed = self
		return nil
	}, nil)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	ts.Same(f, observed)
}

func (ts *FiberTestSuite) TestThreadToFiberAdoptionIsOncePerToken() {
	tok := &ThreadToken{}
	f1 := ThreadToFiber(tok)
	ts.NotNil(f1)
	ts.False(f1.IsBeingWaitedOn())

	ts.Panics(func() { ThreadToFiber(tok) })
}

func (ts *FiberTestSuite) TestStackPersistsAcrossSuspend() {
	var observedAfterResume int
	localValue := 0

	f, err := New(func(ctx context.Context) error {
		localValue = 42
		self, _ := FromContext(ctx)
		self.SetUnsafe()
		self.Suspend()
		observedAfterResume = localValue
		return nil
	}, nil)
	ts.Require().NoError(err)
	defer f.Release()

	f.Start(context.Background())
	f.Resume()

	ts.Equal(42, observedAfterResume)
}
