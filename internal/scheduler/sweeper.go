package scheduler

import (
	"context"
	"time"

	"quote_assistant_backend/internal/metrics"
	"quote_assistant_backend/platform/logger"
)

const (
	defaultSweepInterval = 15 * time.Minute
	defaultStaleAfter    = 24 * time.Hour
)

// StaleSweeper deactivates idle conversations.
type StaleSweeper interface {
	SweepStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConversationSweeper periodically deactivates conversations nobody wrote to
// for staleAfter.
type ConversationSweeper struct {
	sweeper    StaleSweeper
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewConversationSweeper(sweeper StaleSweeper, log *logger.Logger, interval, staleAfter time.Duration) *ConversationSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &ConversationSweeper{
		sweeper:    sweeper,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (s *ConversationSweeper) Run(ctx context.Context) {
	if s == nil || s.sweeper == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ConversationSweeper) sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.staleAfter)

	swept, err := s.sweeper.SweepStale(ctx, cutoff)
	if err != nil {
		s.log.Warn("stale conversation sweep failed", "error", err)
		return
	}

	if swept > 0 {
		metrics.SweptConversationsTotal.Add(float64(swept))
		s.log.Info("stale conversations deactivated", "count", swept, "cutoff", cutoff)
	}
}
