package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_TicksOnInterval(t *testing.T) {
	var ticks atomic.Int32
	r := NewRunner(RunnerConfig{
		Name:     "test",
		Interval: 10 * time.Millisecond,
		Job: JobFunc(func(ctx context.Context) {
			ticks.Add(1)
		}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Immediate tick plus several interval ticks.
	if n := ticks.Load(); n < 3 {
		t.Errorf("got %d ticks, expected at least 3", n)
	}
}

func TestRunner_SkipsOverlappingTicks(t *testing.T) {
	var running atomic.Int32
	var overlapped atomic.Bool
	release := make(chan struct{})

	r := NewRunner(RunnerConfig{
		Name:     "test",
		Interval: time.Hour,
		Job: JobFunc(func(ctx context.Context) {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			<-release
			running.Add(-1)
		}),
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); r.Tick(context.Background()) }()
	go func() { defer wg.Done(); r.Tick(context.Background()) }()

	// Give the first tick time to take the lock, then let it finish. The
	// second call must have returned without running the job.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if overlapped.Load() {
		t.Error("ticks overlapped")
	}
}

func TestRunner_AppliesTickTimeout(t *testing.T) {
	var sawDeadline atomic.Bool
	r := NewRunner(RunnerConfig{
		Name:        "test",
		Interval:    time.Hour,
		TickTimeout: 5 * time.Millisecond,
		Job: JobFunc(func(ctx context.Context) {
			if _, ok := ctx.Deadline(); ok {
				sawDeadline.Store(true)
			}
		}),
	})

	r.Tick(context.Background())
	if !sawDeadline.Load() {
		t.Error("tick context had no deadline")
	}
}

func TestRunner_ContainsPanics(t *testing.T) {
	var ticks atomic.Int32
	r := NewRunner(RunnerConfig{
		Name:     "test",
		Interval: time.Hour,
		Job: JobFunc(func(ctx context.Context) {
			ticks.Add(1)
			panic("evaluator bug")
		}),
	})

	r.Tick(context.Background())
	r.Tick(context.Background())

	if ticks.Load() != 2 {
		t.Errorf("panic stopped the runner after %d ticks", ticks.Load())
	}
}

func TestGate(t *testing.T) {
	g := NewGate(true)
	if !g.Enabled() {
		t.Error("gate should start enabled")
	}
	g.Disable()
	if g.Enabled() {
		t.Error("Disable did not take effect")
	}
	g.Enable()
	if !g.Enabled() {
		t.Error("Enable did not take effect")
	}
}
