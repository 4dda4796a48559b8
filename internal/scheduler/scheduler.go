package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "eventcal/internal/log"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	Spec string // standard 5-field cron expression
	Run  func(ctx context.Context) error
}

// Scheduler runs Jobs on their cron schedules until its context ends.
type Scheduler struct {
	cron *cron.Cron
}

// New validates and registers jobs. Jobs with an empty Spec are skipped.
// ctx is passed to every run; the caller cancels it to stop in-flight work.
func New(ctx context.Context, jobs ...Job) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	for _, job := range jobs {
		if job.Spec == "" {
			continue
		}
		job := job
		if _, err := c.AddFunc(job.Spec, func() { runJob(ctx, job) }); err != nil {
			return nil, fmt.Errorf("scheduler: job %q: %w", job.Name, err)
		}
		appLog.Info("scheduler: job registered", "job", job.Name, "spec", job.Spec)
	}

	return &Scheduler{cron: c}, nil
}

func runJob(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := job.Run(ctx); err != nil {
		appLog.Error("scheduler: job failed", err, "job", job.Name)
		return
	}
	appLog.Debug("scheduler: job done", "job", job.Name)
}

// Len reports how many jobs are scheduled.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
