// internal/jobs/scheduler.go
package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one unit of periodic background work. Run must be safe to call
// repeatedly; the scheduler guarantees runs of the same job never overlap.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	interval time.Duration
	running  int32
}

// Scheduler drives registered jobs on fixed intervals within a single
// process. A tick fired while the previous run of the same job is still
// executing is skipped rather than stacked.
type Scheduler struct {
	entries []*entry
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{job: job, interval: interval})
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
		logrus.WithFields(logrus.Fields{
			"job":      e.job.Name(),
			"interval": e.interval.String(),
		}).Info("Scheduled background job")
	}
}

// Stop cancels all job loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e *entry) {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		logrus.WithField("job", e.job.Name()).Warn("Previous run still in progress, skipping tick")
		return
	}
	defer atomic.StoreInt32(&e.running, 0)

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"job":   e.job.Name(),
				"panic": r,
			}).Error("Job panicked")
		}
	}()

	start := time.Now()
	err := e.job.Run(ctx)
	fields := logrus.Fields{
		"job":      e.job.Name(),
		"duration": time.Since(start).String(),
	}

	if err != nil {
		// The run is abandoned; the next tick proceeds normally.
		logrus.WithFields(fields).WithError(err).Error("Job run failed")
		return
	}

	logrus.WithFields(fields).Debug("Job run completed")
}

// JobFunc adapts a bare function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }
