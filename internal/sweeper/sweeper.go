// Package sweeper periodically removes expired refresh tokens.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"kitchensink/internal/metrics"
	"kitchensink/internal/repository"
)

const sweepTimeout = 30 * time.Second

// Sweeper purges expired refresh tokens on a cron schedule.
type Sweeper struct {
	tokens   repository.TokenStore
	schedule string
	metrics  *metrics.AuthMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a sweeper. schedule accepts the standard five-field cron syntax
// and descriptors such as "@every 10m".
func New(tokens repository.TokenStore, schedule string, m *metrics.AuthMetrics, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{tokens: tokens, schedule: schedule, metrics: m, logger: logger, now: time.Now}
}

// Sweep deletes every token that expired before now and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	s.metrics.AddPurged(n)
	return n, nil
}

// Run schedules Sweep and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()

		n, err := s.Sweep(runCtx)
		if err != nil {
			s.logger.Error("refresh token sweep failed", zap.Error(err))
			return
		}
		s.logger.Info("refresh token sweep completed", zap.Int64("removed", n))
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.logger.Info("refresh token sweeper started", zap.String("schedule", s.schedule))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("refresh token sweeper stopped")
	return nil
}
