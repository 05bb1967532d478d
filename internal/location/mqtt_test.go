package location

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	subscribeErr error
	unsubscribed []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return &fakeToken{} }
func (c *fakeClient) Disconnect(uint)        {}
func (c *fakeClient) Publish(string, byte, bool, interface{}) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return &fakeToken{err: c.subscribeErr}
	}
	c.handlers[topic] = cb
	return &fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.handlers, topic)
		c.unsubscribed = append(c.unsubscribed, topic)
	}
	return &fakeToken{}
}
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)     {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) publish(topic string, payload []byte) bool {
	c.mu.Lock()
	cb, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	cb(c, &fakeMQTTMessage{topic: topic, payload: payload})
	return true
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 1 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return f.topic }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const testTopic = "transport/bus/ddcd5b3a-fd05-4bbc-96e6-eeac9b19141f/gps"

func TestTopic(t *testing.T) {
	assert.Equal(t, testTopic, Topic("transport/bus", "ddcd5b3a-fd05-4bbc-96e6-eeac9b19141f"))
}

func TestMQTTSource_HandleMessage(t *testing.T) {
	now := time.UnixMilli(1736150400000)
	client := newFakeClient()
	src := NewMQTTSource(client, testTopic, quietLogger(), func() time.Time { return now })
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{MaxAge: 4 * time.Second}, rec.onFix, rec.onErr)
	require.NoError(t, err)

	payload, _ := json.Marshal(gpsMessage{Latitude: 17.39, Longitude: 78.496, Accuracy: 8, Timestamp: now.UnixMilli() - 1000})
	require.True(t, client.publish(testTopic, payload))

	fixes, _ := rec.counts()
	require.Equal(t, 1, fixes)
	assert.Equal(t, 17.39, rec.fixes[0].Coordinate.Latitude)
	assert.Equal(t, 8.0, rec.fixes[0].Accuracy)
	assert.True(t, rec.fixes[0].Timestamp.Equal(now.Add(-time.Second)))

	sub.Unsubscribe()
	assert.Equal(t, []string{testTopic}, client.unsubscribed)
	assert.False(t, client.publish(testTopic, payload))
}

func TestMQTTSource_DropsBadMessages(t *testing.T) {
	now := time.UnixMilli(1736150400000)
	client := newFakeClient()
	src := NewMQTTSource(client, testTopic, quietLogger(), func() time.Time { return now })
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{MaxAge: 4 * time.Second}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	stale, _ := json.Marshal(gpsMessage{Latitude: 17.39, Longitude: 78.496, Timestamp: now.UnixMilli() - 10000})
	outOfRange, _ := json.Marshal(gpsMessage{Latitude: 95, Longitude: 78.496})

	client.publish(testTopic, []byte("not json"))
	client.publish(testTopic, stale)
	client.publish(testTopic, outOfRange)

	fixes, errs := rec.counts()
	assert.Equal(t, 0, fixes)
	assert.Equal(t, 0, errs)
}

func TestMQTTSource_SharedSubscription(t *testing.T) {
	client := newFakeClient()
	src := NewMQTTSource(client, testTopic, quietLogger(), nil)

	first, err := src.Watch(WatchOptions{}, func(Fix) {}, func(error) {})
	require.NoError(t, err)
	second, err := src.Watch(WatchOptions{}, func(Fix) {}, func(error) {})
	require.NoError(t, err)

	first.Unsubscribe()
	assert.Empty(t, client.unsubscribed)

	second.Unsubscribe()
	assert.Equal(t, []string{testTopic}, client.unsubscribed)
}

func TestMQTTSource_SubscribeFailure(t *testing.T) {
	client := newFakeClient()
	client.subscribeErr = errors.New("not authorized")
	src := NewMQTTSource(client, testTopic, quietLogger(), nil)

	sub, err := src.Watch(WatchOptions{Timeout: 10 * time.Millisecond}, func(Fix) {}, func(error) {
		t.Error("error callback must not fire for a failed watch")
	})
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, src.watching())

	time.Sleep(30 * time.Millisecond)
}
