package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// BadgerGCWorker reclaims value log space on a fixed interval.
// Badger never does this on its own.
type BadgerGCWorker struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGCWorker(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGCWorker {
	return &BadgerGCWorker{db: db, log: log, interval: interval}
}

func (w *BadgerGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.collect()
		}
	}
}

// collect rewrites value log files until badger reports nothing left to reclaim.
func (w *BadgerGCWorker) collect() int {
	rewritten := 0
	for {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewritten++
			continue
		}
		if err != badger.ErrNoRewrite && err != badger.ErrRejected {
			w.log.Warn("Value log GC failed", "error", err)
		}
		break
	}
	if rewritten > 0 {
		w.log.Debug("Value log GC done", "rewritten", rewritten)
	}
	return rewritten
}
