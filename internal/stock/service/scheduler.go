package service

import (
	"context"
	"time"

	"github.com/shopstock/stock-backend/pkg/logger"
)

// SweepScheduler runs the sweeper periodically.
type SweepScheduler struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(sweeper *Sweeper, interval time.Duration, log *logger.Logger) *SweepScheduler {
	return &SweepScheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine. A non-positive
// interval leaves it idle.
func (s *SweepScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info().Msg("sweep scheduler disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Dur("interval", s.interval).Msg("sweep scheduler started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("sweep scheduler stopped")
				return
			case <-ticker.C:
				s.runSweepCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine and waits for it to exit
func (s *SweepScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *SweepScheduler) runSweepCycle(ctx context.Context) {
	start := time.Now()

	res, err := s.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("scheduled sweep failed")
		}
		return
	}

	s.logger.Debug().
		Dur("duration", time.Since(start)).
		Int64("removed", res.Total()).
		Msg("sweep cycle completed")
}
