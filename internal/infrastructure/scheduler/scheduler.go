package scheduler

import (
	"context"
	"sync"
	"time"

	"flightsync-service/pkg/logger"
)

// Job is one periodic unit of work
type Job struct {
	Name     string
	Interval time.Duration
	// Immediate runs the job once at start instead of waiting a full interval
	Immediate bool
	Run       func(ctx context.Context)
}

// Scheduler drives every job from its own ticker loop. A loop runs its job
// synchronously, so a job never overlaps itself.
type Scheduler struct {
	jobs   []Job
	logger logger.Logger
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(logger logger.Logger) *Scheduler {
	return &Scheduler{logger: logger.With("component", "scheduler")}
}

// Add registers a job. Jobs without a positive interval are skipped.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 || job.Run == nil {
		s.logger.Warn("Skipping job without interval", "job", job.Name)
		return
	}
	s.jobs = append(s.jobs, job)
}

// Jobs returns the registered jobs
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Start launches one loop per job; loops stop when ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
}

// Wait blocks until every loop has returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if job.Immediate {
		s.run(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Job stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.run(ctx, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job panicked", "job", job.Name, "panic", r)
		}
	}()
	start := time.Now()
	s.logger.Debug("Running job", "job", job.Name)
	job.Run(ctx)
	s.logger.Debug("Job finished", "job", job.Name, "duration", time.Since(start))
}
