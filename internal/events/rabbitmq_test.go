package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnt/transport-portal/internal/models"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func sampleEvent() models.TripEvent {
	return models.TripEvent{
		ID:         "5c2d0e7a-1f43-4b7e-9b0e-0d7c1b2f3a10",
		Type:       models.TripEventStarted,
		BusID:      "ddcd5b3a-fd05-4bbc-96e6-eeac9b19141f",
		TripID:     "0b8f5f8e-7a55-4a8d-8a5e-3c1e2b4d6f70",
		Driver:     "CH Srinu",
		OccurredAt: time.Date(2025, 1, 6, 7, 10, 0, 0, time.UTC),
	}
}

func TestRabbitMQPublisher_PublishTripEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitMQPublisher{ch: ch, exchange: "transport.events"}

	require.NoError(t, p.PublishTripEvent(context.Background(), sampleEvent()))

	assert.Equal(t, "transport.events", ch.exchange)
	assert.Equal(t, "trip_started", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var decoded models.TripEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, sampleEvent(), decoded)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &RabbitMQPublisher{ch: ch, exchange: "transport.events"}

	assert.Error(t, p.PublishTripEvent(context.Background(), sampleEvent()))
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	p := NewLogPublisher(logger)
	require.NoError(t, p.PublishTripEvent(context.Background(), sampleEvent()))

	assert.Contains(t, buf.String(), `"event":"trip_started"`)
	assert.Contains(t, buf.String(), `"bus_id":"ddcd5b3a-fd05-4bbc-96e6-eeac9b19141f"`)
}
