package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQPlayEventPublisher publishes play lifecycle events to a durable topic exchange.
type RabbitMQPlayEventPublisher struct {
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

var _ interfaces.PlayEventPublisher = (*RabbitMQPlayEventPublisher)(nil)

// NewRabbitMQPlayEventPublisher opens a channel on conn and declares the exchange.
// The connection lifecycle is managed by the caller.
func NewRabbitMQPlayEventPublisher(conn *amqp.Connection, exchange string, logger *zap.Logger) (*RabbitMQPlayEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if exchange == "" {
		exchange = PlayEventsExchangeName
	}
	log := logger.Named("PlayEventPublisher")

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		log.Error("Failed to declare exchange", zap.String("exchange", exchange), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	log.Info("Play events exchange declared", zap.String("exchange", exchange))

	return &RabbitMQPlayEventPublisher{ch: ch, exchange: exchange, logger: log}, nil
}

// PublishPlayCompleted sends a persistent play.completed message.
func (p *RabbitMQPlayEventPublisher) PublishPlayCompleted(ctx context.Context, event models.PlayCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal play completed event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(publishCtx,
		p.exchange,              // exchange
		RoutingKeyPlayCompleted, // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish play completed event",
			zap.String("playID", event.PlayID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish play completed event: %w", err)
	}
	p.logger.Debug("Play completed event published", zap.String("playID", event.PlayID.String()))
	return nil
}

// Close closes the publisher channel.
func (p *RabbitMQPlayEventPublisher) Close() error {
	return p.ch.Close()
}

// NoopPlayEventPublisher is used when no broker is configured.
type NoopPlayEventPublisher struct{}

var _ interfaces.PlayEventPublisher = NoopPlayEventPublisher{}

func (NoopPlayEventPublisher) PublishPlayCompleted(context.Context, models.PlayCompletedEvent) error {
	return nil
}
