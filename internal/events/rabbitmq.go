package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/models"
)

const queueName = "trip_events"

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher sends trip lifecycle events to a fanout exchange
type RabbitMQPublisher struct {
	ch       publishChannel
	exchange string
}

// Dial connects to RabbitMQ
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}

// NewRabbitMQPublisher declares the exchange and a durable queue bound to it
func NewRabbitMQPublisher(conn *amqp.Connection, exchange string) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &RabbitMQPublisher{ch: ch, exchange: exchange}, nil
}

// PublishTripEvent sends one event
func (p *RabbitMQPublisher) PublishTripEvent(ctx context.Context, event models.TripEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal trip event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
}

// Close closes the channel
func (p *RabbitMQPublisher) Close() error {
	return p.ch.Close()
}

// LogPublisher writes trip events to the log when no broker is configured
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishTripEvent logs the event
func (p *LogPublisher) PublishTripEvent(_ context.Context, event models.TripEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event":   event.Type,
		"bus_id":  event.BusID,
		"trip_id": event.TripID,
		"reason":  event.Reason,
	}).Info("Trip event")
	return nil
}

// Close implements io.Closer
func (p *LogPublisher) Close() error { return nil }
