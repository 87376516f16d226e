package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"sales_command_center/internal/intake"
	"sales_command_center/platform/config"
	"sales_command_center/platform/logger"
)

// Worker consumes scheduler tasks and drives the intake engine.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *intake.Engine
	log    *logger.Logger
}

// NewWorker builds the asynq server and registers the task handlers.
func NewWorker(cfg config.SchedulerConfig, engine *intake.Engine, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskPollCycle, w.handlePollCycle)
	mux.HandleFunc(TaskDailySummary, w.handleDailySummary)

	return w, nil
}

func (w *Worker) handlePollCycle(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePollCyclePayload(task)
	if err != nil {
		return err
	}

	cycleCtx := logger.WithCycleID(ctx, uuid.NewString())
	report, err := w.engine.RunCycle(cycleCtx)
	if err != nil {
		// Cycle-fatal: let asynq retry, the idempotency gate makes the
		// repeat safe.
		w.log.Error("poll cycle failed", "triggered_by", payload.TriggeredBy, "error", err)
		return err
	}

	if len(report.Errors) > 0 {
		w.log.Warn("poll cycle completed with item errors",
			"triggered_by", payload.TriggeredBy,
			"errors", len(report.Errors),
			"truncated", report.ErrorsTruncated,
		)
	}
	return nil
}

func (w *Worker) handleDailySummary(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDailySummaryPayload(task)
	if err != nil {
		return err
	}

	delivery, err := w.engine.RunDailySummary(ctx)
	if err != nil {
		return err
	}
	if !delivery.Delivered {
		w.log.Warn("daily summary not delivered", "date", payload.Date)
	}
	return nil
}

// Run starts the worker and blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
