package fiberjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ThreadBackedSuite struct {
	suite.Suite
	sys JobSystem
}

func TestThreadBackedSuite(t *testing.T) {
	suite.Run(t, new(ThreadBackedSuite))
}

func (ts *ThreadBackedSuite) SetupTest() {
	ts.sys = NewWithConfig(Config{Backend: ThreadBacked})
}

func (ts *ThreadBackedSuite) TestWaitForJobsJoinsAllJobs() {
	var x int64
	incr := func(ctx context.Context) error {
		atomic.AddInt64(&x, 1)
		return nil
	}
	err := ts.sys.WaitForJobs(context.Background(), []Job{incr, incr, incr, incr})
	ts.Require().NoError(err)
	ts.EqualValues(4, atomic.LoadInt64(&x))
}

func (ts *ThreadBackedSuite) TestWaitForJobsPropagatesFirstError() {
	boom := errors.New("boom")
	err := ts.sys.WaitForJobs(context.Background(), []Job{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
	})
	ts.Require().Error(err)
	ts.ErrorIs(err, boom)
}

func (ts *ThreadBackedSuite) TestBatchSizeZeroReturnsImmediately() {
	ts.Require().NoError(ts.sys.WaitForJobs(context.Background(), nil))
}

func (ts *ThreadBackedSuite) TestAddJobsIsFireAndForget() {
	var x int64
	ts.sys.AddJobs([]Job{
		func(ctx context.Context) error {
			atomic.AddInt64(&x, 1)
			return nil
		},
	})
	ts.Eventually(func() bool {
		return atomic.LoadInt64(&x) == 1
	}, time.Second, time.Millisecond)
}

func (ts *ThreadBackedSuite) TestShutdownIsNoOp() {
	ts.NotPanics(func() { ts.sys.Shutdown() })
}

// TestNestedWaitDoesNotSuspendInPlace documents a known limitation: a
// nested WaitForJobs on the thread-backed system blocks the outer job's
// goroutine (no fiber identity to suspend), but it still must make
// progress and report errors correctly.
func (ts *ThreadBackedSuite) TestNestedWaitDoesNotSuspendInPlace() {
	boom := errors.New("boom")
	inner := func(ctx context.Context) error { return boom }
	outer := func(ctx context.Context) error {
		return ts.sys.WaitForJobs(ctx, []Job{inner})
	}
	err := ts.sys.WaitForJobs(context.Background(), []Job{outer})
	ts.Require().Error(err)
	ts.ErrorIs(err, boom)
}
