// Package runtime holds the in-memory state of live connections: presence,
// room subscriptions, typing marks and the broadcaster built on top of them.
// It also owns the lifecycle of the supervised background workers.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Orchestrator registers the background workers on the supervisor and runs
// them until Stop is called or the parent context ends.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	db             *badger.DB
	metrics        *observability.Metrics
	gcInterval     time.Duration
	metricInterval time.Duration
	cancel         context.CancelFunc
	done           chan struct{}
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, db *badger.DB,
	metrics *observability.Metrics, gcInterval, metricInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		db:             db,
		metrics:        metrics,
		gcInterval:     gcInterval,
		metricInterval: metricInterval,
	}
}

// Start adds the workers and runs the supervisor in the background.
// Calling Start twice is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done != nil {
		return
	}

	o.supervisor.Add(
		workers.NewBadgerGCWorker(o.log, o.db, o.gcInterval),
		workers.NewProcessStatsWorker(o.log, o.metrics, os.Getpid(), o.metricInterval),
	)

	supervisedCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	o.log.Info("Starting orchestrator and all supervised workers")
	go func(done chan struct{}) {
		defer close(done)
		o.supervisor.Run(supervisedCtx)
	}(o.done)
}

// Stop cancels the workers and waits for the supervisor to return.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if done == nil {
		return
	}

	o.log.Info("Requesting orchestrator shutdown")
	cancel()
	o.supervisor.Stop()
	<-done
	o.log.Debug("All supervised workers stopped")
}
