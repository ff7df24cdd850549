package core

// scheduler.go runs background maintenance for the import service.
//
// The only job today purges expired validation sessions. It is driven by
// robfig/cron so the schedule accepts both cron expressions and "@every"
// descriptors. Overlapping runs are skipped.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule purges expired sessions once a minute.
const DefaultSweepSchedule = "@every 1m"

// StartSessionSweeper schedules SessionStore.Sweep on schedule and stops the
// scheduler when ctx is cancelled. The returned channel closes once any
// running sweep has finished after shutdown.
func (s *Service) StartSessionSweeper(ctx context.Context, schedule string) (<-chan struct{}, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, s.runSweepJob); err != nil {
		return nil, fmt.Errorf("schedule session sweeper %q: %w", schedule, err)
	}

	slog.Info("session sweeper started", "schedule", schedule)
	c.Start()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		slog.Info("session sweeper stopped")
		close(done)
	}()
	return done, nil
}

// runSweepJob performs one purge of expired sessions.
func (s *Service) runSweepJob() {
	start := time.Now()
	removed := s.sessions.Sweep()
	if removed > 0 {
		slog.Info("expired validation sessions purged",
			"removed", removed,
			"remaining", s.sessions.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Debug("session sweep found nothing to purge")
}
