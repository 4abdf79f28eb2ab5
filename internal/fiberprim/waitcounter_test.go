package fiberprim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
)

type WaitCounterTestSuite struct {
	suite.Suite
}

func TestWaitCounterTestSuite(t *testing.T) {
	suite.Run(t, new(WaitCounterTestSuite))
}

func (ts *WaitCounterTestSuite) TestZeroBatchStartsZero() {
	c := NewWaitCounter(0)
	ts.True(c.IsZero())
}

func (ts *WaitCounterTestSuite) TestReachesZeroAfterAllDecrements() {
	c := NewWaitCounter(4)
	ts.False(c.IsZero())

	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer wg.Done()
			c.Decrement()
		}()
	}
	wg.Wait()

	ts.True(c.IsZero())
	ts.Equal(int64(0), c.Load())
}
