// internal/jobs/scheduler_test.go
package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsRegisteredJobs(t *testing.T) {
	var runs int32

	s := NewScheduler()
	s.Register(JobFunc{
		JobName: "counter",
		Fn: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	}, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var running int32
	var overlapped int32

	block := make(chan struct{})

	s := NewScheduler()
	s.Register(JobFunc{
		JobName: "slow",
		Fn: func(ctx context.Context) error {
			if !atomic.CompareAndSwapInt32(&running, 0, 1) {
				atomic.AddInt32(&overlapped, 1)
			}
			defer atomic.StoreInt32(&running, 0)

			select {
			case <-block:
			case <-ctx.Done():
			}
			return nil
		},
	}, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	close(block)
	s.Stop()

	assert.Zero(t, atomic.LoadInt32(&overlapped))
}

func TestSchedulerSurvivesFailuresAndPanics(t *testing.T) {
	var runs int32

	s := NewScheduler()
	s.Register(JobFunc{
		JobName: "flaky",
		Fn: func(ctx context.Context) error {
			n := atomic.AddInt32(&runs, 1)
			if n == 1 {
				panic("boom")
			}
			if n == 2 {
				return errors.New("transient failure")
			}
			return nil
		},
	}, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	// Later ticks keep firing after a panic and after an error.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}

func TestSchedulerStopWaitsForInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var finished int32

	s := NewScheduler()
	s.Register(JobFunc{
		JobName: "in-flight",
		Fn: func(ctx context.Context) error {
			close(started)
			time.Sleep(50 * time.Millisecond)
			atomic.StoreInt32(&finished, 1)
			return nil
		},
	}, 10*time.Millisecond)

	s.Start(context.Background())
	<-started
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}
