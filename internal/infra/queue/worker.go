package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
	"github.com/oktavaklaster/radario-amocrm/pkg/logging"
)

// Replayer re-runs a stored notification by audit log id.
type Replayer interface {
	Replay(ctx context.Context, logID string) (*usecase.SyncOrderOutput, error)
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel  consumer
	Replayer Replayer
	Logger   *logging.Logger
}

func NewWorker(ch consumer, replayer Replayer, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		Channel:  ch,
		Replayer: replayer,
		Logger:   logger.With("component", "replay_worker"),
	}
}

// Start consumes the replay queue until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context) error {
	msgs, err := w.Channel.Consume(
		ReplayQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.Logger.Info("replay worker started", "queue", ReplayQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("replay delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var payload ReplayPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil || payload.LogID == "" {
		w.Logger.Error("malformed replay message", "error", err)
		d.Nack(false, false)
		return
	}

	logger := w.Logger.With("log_id", payload.LogID)

	output, err := w.Replayer.Replay(ctx, payload.LogID)
	if err != nil {
		logger.Error("replay failed", "error", err)
		d.Nack(false, false)
		return
	}

	logger.Info("replay finished", "action", string(output.Action), "lead_id", output.LeadID)
	d.Ack(false)
}
