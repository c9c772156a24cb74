package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically removes conversations untouched for longer than maxAge.
type Sweeper struct {
	cron   *cron.Cron
	purger Purger
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewSweeper(p Purger, maxAge time.Duration, schedule string, logger *slog.Logger) (*Sweeper, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	s := &Sweeper{cron: c, purger: p, maxAge: maxAge, now: time.Now, logger: logger}
	if _, err := c.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("conversation sweeper started", "max_age", s.maxAge.String())
}

// Stop halts the schedule and returns a context done when a running sweep ends.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.purger.Purge(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		s.logger.Error("conversation sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Info("purged stale conversations", "count", n)
	}
	return n
}
