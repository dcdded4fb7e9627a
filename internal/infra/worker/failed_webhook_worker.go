package worker

import (
	"context"
	"time"

	"github.com/oktavaklaster/radario-amocrm/internal/entity"
	"github.com/oktavaklaster/radario-amocrm/internal/infra/queue"
	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

// FailedLogFinder is the read side of the audit log the sweeper needs.
type FailedLogFinder interface {
	ListFailed(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]*entity.WebhookLog, error)
}

// ReplayScheduler arranges for a failed record to be processed again.
type ReplayScheduler interface {
	ScheduleReplay(ctx context.Context, record *entity.WebhookLog) error
}

type FailedWebhookWorker struct {
	logs         FailedLogFinder
	scheduler    ReplayScheduler
	logger       *logging.Logger
	tickInterval time.Duration
	minAge       time.Duration
	maxAttempts  int
	batchSize    int
	onScheduled  func()
	now          func() time.Time
}

func NewFailedWebhookWorker(logs FailedLogFinder, scheduler ReplayScheduler, interval, minAge time.Duration, maxAttempts int, logger *logging.Logger) *FailedWebhookWorker {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FailedWebhookWorker{
		logs:         logs,
		scheduler:    scheduler,
		logger:       logger.With("component", "failed_webhook_worker"),
		tickInterval: interval,
		minAge:       minAge,
		maxAttempts:  maxAttempts,
		batchSize:    50,
		now:          time.Now,
	}
}

// OnScheduled registers a hook called once per scheduled replay.
func (w *FailedWebhookWorker) OnScheduled(fn func()) {
	w.onScheduled = fn
}

func (w *FailedWebhookWorker) Start(ctx context.Context) {
	w.logger.Info("failed webhook worker started",
		"interval", w.tickInterval.String(), "min_age", w.minAge.String(), "max_attempts", w.maxAttempts)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("failed webhook worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep schedules one batch and returns how many records were handed over.
func (w *FailedWebhookWorker) sweep(ctx context.Context) int {
	records, err := w.logs.ListFailed(ctx, w.now().Add(-w.minAge), w.maxAttempts, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list failed webhooks", "error", err)
		return 0
	}

	scheduled := 0
	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		if err := w.scheduler.ScheduleReplay(ctx, record); err != nil {
			w.logger.Warn("failed to schedule replay", "log_id", record.ID, "error", err)
			continue
		}
		scheduled++
		if w.onScheduled != nil {
			w.onScheduled()
		}
	}

	if scheduled > 0 {
		w.logger.Info("failed webhooks scheduled for replay", "count", scheduled)
	}
	return scheduled
}

// replayPublisher is satisfied by *queue.RabbitMQProducer.
type replayPublisher interface {
	PublishReplay(ctx context.Context, payload queue.ReplayPayload) error
}

// QueueScheduler hands replays to the replay queue.
type QueueScheduler struct {
	Producer replayPublisher
}

func (s QueueScheduler) ScheduleReplay(ctx context.Context, record *entity.WebhookLog) error {
	return s.Producer.PublishReplay(ctx, queue.ReplayPayload{
		LogID:       record.ID,
		Attempt:     record.Attempts + 1,
		RequestedAt: time.Now().UTC(),
	})
}

// DirectScheduler replays in-process when no broker is configured.
type DirectScheduler struct {
	Replayer queue.Replayer
}

func (s DirectScheduler) ScheduleReplay(ctx context.Context, record *entity.WebhookLog) error {
	_, err := s.Replayer.Replay(ctx, record.ID)
	if usecase.IsDomainError(err) {
		return nil
	}
	return err
}
