package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// gcDiscardRatio is the share of stale data a value log file must hold
// before badger rewrites it.
const gcDiscardRatio = 0.5

// BadgerGCWorker reclaims value log space on a fixed interval.
type BadgerGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewBadgerGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{log: log, db: db, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.collect()
		}
	}
}

// collect rewrites value log files until badger reports nothing left to do.
func (w *BadgerGCWorker) collect() {
	rewritten := 0
	for {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewritten++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
			w.log.Warn("Value log GC failed", "error", err)
		}
		break
	}
	if rewritten > 0 {
		w.log.Debug("Value log GC done", "rewritten", rewritten)
	}
}
