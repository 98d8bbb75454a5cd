package scheduler

import (
	"context"
	"time"

	"quote_assistant_backend/internal/metrics"
	"quote_assistant_backend/platform/logger"
)

const defaultJanitorInterval = time.Hour

// ExpiredPurger deletes ledger entries past retention.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// LedgerJanitor periodically removes expired delivery ledger entries.
type LedgerJanitor struct {
	ledger   ExpiredPurger
	log      *logger.Logger
	interval time.Duration
}

func NewLedgerJanitor(ledger ExpiredPurger, log *logger.Logger, interval time.Duration) *LedgerJanitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	return &LedgerJanitor{ledger: ledger, log: log, interval: interval}
}

func (j *LedgerJanitor) Run(ctx context.Context) {
	if j == nil || j.ledger == nil {
		return
	}

	j.purge(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *LedgerJanitor) purge(ctx context.Context) {
	purged, err := j.ledger.PurgeExpired(ctx)
	if err != nil {
		j.log.Warn("ledger purge failed", "error", err)
		return
	}

	if purged > 0 {
		metrics.PurgedLedgerEntriesTotal.Add(float64(purged))
		j.log.Info("expired ledger entries purged", "deleted", purged)
	}
}
