package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(10*time.Millisecond, true)
	var runs atomic.Int32
	fired := make(chan struct{}, 16)

	if err := s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("job did not fire (runs=%d)", runs.Load())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after Stop")
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestIntervalSchedulerStartIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, true)
	var runs atomic.Int32
	started := make(chan struct{}, 2)
	job := func(time.Time) {
		runs.Add(1)
		started <- struct{}{}
	}

	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("second start: %v", err)
	}
	<-started

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, false)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop after cancel: %v", err)
	}
}
