package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(context.Background(), Job{Name: "export", Spec: "every tuesday", Run: func(context.Context) error { return nil }})
	if err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestNewSkipsEmptySpec(t *testing.T) {
	s, err := New(context.Background(),
		Job{Name: "disabled", Run: func(context.Context) error { return nil }},
		Job{Name: "hourly", Spec: "0 * * * *", Run: func(context.Context) error { return nil }},
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 scheduled job, got %d", s.Len())
	}
}

func TestRunJobHonorsContext(t *testing.T) {
	var runs atomic.Int32
	job := Job{Name: "count", Run: func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not returned")
	}}

	runJob(context.Background(), job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runJob(ctx, job)

	if runs.Load() != 1 {
		t.Fatalf("expected exactly one run, got %d", runs.Load())
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(context.Background(), Job{Name: "noop", Spec: "@every 1h", Run: func(context.Context) error { return nil }})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not return")
	}
}
