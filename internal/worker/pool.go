// Package worker runs the consuming side of the system: a pool of goroutines
// pulling tasks off the queue into the orchestrator, plus the workspace
// reaper that reclaims directories abandoned past the hard deadline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"git.home.luguber.info/inful/repodoc/internal/jobs"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
	"git.home.luguber.info/inful/repodoc/internal/metrics"
	"git.home.luguber.info/inful/repodoc/internal/orchestrator"
)

// Pool consumes the task queue with a fixed number of workers.
type Pool struct {
	queue    jobs.Queue
	orch     *orchestrator.Orchestrator
	recorder metrics.Recorder
	workers  int
	group    Group
	active   atomic.Int64
}

// NewPool creates a pool of the given size. Recorder defaults to no-op.
func NewPool(queue jobs.Queue, orch *orchestrator.Orchestrator, workers int, recorder metrics.Recorder) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Pool{queue: queue, orch: orch, recorder: recorder, workers: workers}
}

// Start launches the workers. Each worker blocks inside Consume until the
// context is cancelled.
func (p *Pool) Start(ctx context.Context) error {
	for i := 0; i < p.workers; i++ {
		id := i
		ok := p.group.Go(func() {
			log := slog.With(logfields.Worker(fmt.Sprintf("worker-%d", id)))
			log.Info("Worker started")
			err := p.queue.Consume(ctx, p.handle)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Worker consume loop ended", logfields.Error(err))
			}
			log.Info("Worker stopped")
		})
		if !ok {
			return fmt.Errorf("pool is stopping, worker %d not started", id)
		}
	}
	return nil
}

func (p *Pool) handle(ctx context.Context, task jobs.Task) {
	p.recorder.SetActiveJobs(int(p.active.Add(1)))
	defer func() {
		p.recorder.SetActiveJobs(int(p.active.Add(-1)))
		p.recorder.SetQueueDepth(p.queue.Depth())
	}()

	p.orch.Run(ctx, task)
}

// Stop waits for in-flight jobs, bounded by the context deadline.
func (p *Pool) Stop(ctx context.Context) error {
	return p.group.StopAndWait(ctx)
}

// ActiveJobs returns the number of jobs currently executing.
func (p *Pool) ActiveJobs() int {
	return int(p.active.Load())
}
