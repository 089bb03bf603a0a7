// Package scheduler drives the trigger pipelines on a fixed polling cadence.
// Each Runner owns one pipeline: ticks never overlap, a slow tick is skipped
// rather than queued, and a panic inside a tick is contained so the loop
// keeps running.
package scheduler

import (
	"context"
	"sync"
	"time"

	"commutewatch/internal/types"
)

// Job is one unit of scheduled work, satisfied by the trigger orchestrator's
// RunTick.
type Job interface {
	RunTick(ctx context.Context)
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context)

// RunTick calls the wrapped function.
func (f JobFunc) RunTick(ctx context.Context) { f(ctx) }

// Runner executes a Job at a fixed interval until its context is canceled.
type Runner struct {
	name        string
	job         Job
	interval    time.Duration
	tickTimeout time.Duration
	logger      types.Logger

	mu sync.Mutex // held for the duration of a tick
}

// RunnerConfig holds the configuration for creating a Runner.
type RunnerConfig struct {
	Name        string
	Job         Job
	Interval    time.Duration
	TickTimeout time.Duration
	Logger      types.Logger
}

// NewRunner creates a Runner with the given configuration.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Runner{
		name:        cfg.Name,
		job:         cfg.Job,
		interval:    cfg.Interval,
		tickTimeout: cfg.TickTimeout,
		logger:      logger.With("runner", cfg.Name),
	}
}

// Run ticks the job immediately and then on every interval until ctx is
// canceled. It always returns nil so it can sit directly in an errgroup
// without tearing down its siblings.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// Tick runs a single tick immediately, subject to the same serialization as
// the scheduled loop. Exposed for manual invocation.
func (r *Runner) Tick(ctx context.Context) {
	r.tick(ctx)
}

func (r *Runner) tick(ctx context.Context) {
	if !r.mu.TryLock() {
		r.logger.Warn("previous tick still running, skipping")
		return
	}
	defer r.mu.Unlock()

	tickCtx := ctx
	if r.tickTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, r.tickTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tick panicked", "panic", rec)
		}
	}()

	r.job.RunTick(tickCtx)
}
