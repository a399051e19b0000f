package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// A worker that stayed up this long is considered healthy again and its
// restart delay starts over from the base interval.
const stableRun = time.Minute

// Restart delays double on consecutive failures up to this many times the
// base interval.
const maxBackoffFactor = 32

// Supervisor runs workers in their own goroutines, recovers their panics
// and restarts the ones that fail until it is stopped.
type Supervisor struct {
	log             *slog.Logger
	metrics         *observability.Metrics
	restartInterval time.Duration
	workers         []contract.Worker
	wg              sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

func NewSupervisor(log *slog.Logger, metrics *observability.Metrics, restartInterval time.Duration) *Supervisor {
	return &Supervisor{log: log, metrics: metrics, restartInterval: restartInterval}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them returned.
// Canceling ctx or calling Stop ends them. Run after Stop returns at once.
func (s *Supervisor) Run(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

// Start supervises one worker until it returns nil or ctx ends.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(ctx, worker)
	}()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker) {
	name := contract.GetWorkerName(worker)
	var delay time.Duration

	for ctx.Err() == nil {
		started := time.Now()
		panicked, err := runOnce(ctx, worker)
		switch {
		case err == nil:
			s.log.Info("Worker finished", "name", name)
			return
		case ctx.Err() != nil:
			s.log.Info("Worker stopped", "name", name)
			return
		}

		cause := "error"
		if panicked {
			cause = "panic"
		}
		s.metrics.WorkerRestarts.WithLabelValues(name, cause).Inc()

		delay = nextDelay(delay, s.restartInterval, time.Since(started))
		s.log.Warn("Worker crashed, restarting", "name", name, "cause", cause, "in", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runOnce turns a panic of the worker into an errors.ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked, err = true, fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return false, worker.Run(ctx)
}

// nextDelay is the wait before the next restart, given the previous one
// and how long the failed run lasted.
func nextDelay(previous, base, ranFor time.Duration) time.Duration {
	if ranFor >= stableRun || previous < base {
		return base
	}
	next := previous * 2
	if limit := base * maxBackoffFactor; next > limit {
		return limit
	}
	return next
}

// Stop cancels every supervised worker. Run returns once they all did.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}
