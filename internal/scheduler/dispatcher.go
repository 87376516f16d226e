package scheduler

import (
	"context"
	"time"

	"sales_command_center/platform/config"
	"sales_command_center/platform/logger"
)

// Dispatcher enqueues the recurring triggers on their schedules: a poll
// cycle every interval, and one daily summary at the configured hour.
type Dispatcher struct {
	client *Client
	cfg    config.SchedulerConfig
	log    *logger.Logger
}

// NewDispatcher creates the trigger dispatcher.
func NewDispatcher(client *Client, cfg config.SchedulerConfig, log *logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, cfg: cfg, log: log}
}

// Run blocks, enqueuing triggers until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.cfg.GetPollInterval()
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	poll := time.NewTicker(interval)
	defer poll.Stop()

	summaryTimer := time.NewTimer(untilNextSummary(time.Now(), d.cfg.GetDailySummaryHour()))
	defer summaryTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if err := d.client.EnqueuePollCycle(ctx, "interval"); err != nil {
				d.log.Error("failed to enqueue poll cycle", "error", err)
			}
		case now := <-summaryTimer.C:
			if err := d.client.EnqueueDailySummary(ctx, now); err != nil {
				d.log.Error("failed to enqueue daily summary", "error", err)
			}
			summaryTimer.Reset(untilNextSummary(now, d.cfg.GetDailySummaryHour()))
		}
	}
}

// untilNextSummary computes the wait until the next occurrence of the
// summary hour, local time.
func untilNextSummary(now time.Time, hour int) time.Duration {
	if hour < 0 || hour > 23 {
		hour = 18
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
