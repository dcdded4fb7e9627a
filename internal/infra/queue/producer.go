package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
)

// ReplayPayload asks the replay worker to run a stored notification again.
type ReplayPayload struct {
	LogID       string    `json:"log_id"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch publisher
}

func NewProducer(ch publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

// PublishOrderSynced announces the terminal state of one notification.
func (p *RabbitMQProducer) PublishOrderSynced(ctx context.Context, event usecase.OrderSyncedEvent) error {
	return p.publish(ctx, RoutingKeyOrderSynced, event.LogID, event)
}

func (p *RabbitMQProducer) PublishReplay(ctx context.Context, payload ReplayPayload) error {
	return p.publish(ctx, RoutingKeyReplay, payload.LogID, payload)
}

func (p *RabbitMQProducer) publish(ctx context.Context, key, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", key, err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}

	return nil
}
