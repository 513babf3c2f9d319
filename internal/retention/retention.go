// Package retention prunes stored job history on a daily schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/kiranshivaraju/printwatch/internal/store"
)

const pruneTimeout = 5 * time.Minute

// Pruner deletes history older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (store.PruneResult, error)
}

// Janitor runs the daily prune job.
type Janitor struct {
	pruner    Pruner
	days      int
	now       func() time.Time
	scheduler *gocron.Scheduler
}

// New returns a Janitor keeping the given number of days of history.
// A zero days value disables pruning.
func New(p Pruner, days int) *Janitor {
	return &Janitor{pruner: p, days: days, now: time.Now}
}

// Start schedules the prune job, running once immediately and then daily.
// It is a no-op when retention is disabled.
func (j *Janitor) Start() error {
	if j.days <= 0 {
		slog.Info("retention disabled")
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(1).Day().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		if _, err := j.Prune(ctx); err != nil {
			slog.Error("retention prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule prune job: %w", err)
	}

	s.StartAsync()
	j.scheduler = s
	slog.Info("retention scheduled", "days", j.days)
	return nil
}

// Stop halts the scheduler if it was started.
func (j *Janitor) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}

// Prune deletes everything older than the retention window.
func (j *Janitor) Prune(ctx context.Context) (store.PruneResult, error) {
	cutoff := j.now().Add(-time.Duration(j.days) * 24 * time.Hour)
	res, err := j.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return store.PruneResult{}, fmt.Errorf("prune before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	slog.Info("retention prune complete",
		"cutoff", cutoff,
		"jobs", res.Jobs,
		"poll_metrics", res.PollMetrics,
		"notifications", res.Notifications,
	)
	return res, nil
}
