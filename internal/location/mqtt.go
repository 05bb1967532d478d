package location

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/pkg/geo"
)

const subscribeTimeout = 5 * time.Second

// NewMQTTClient connects to the broker GPS devices publish to
func NewMQTTClient(cfg config.MQTTConfig, logger *logrus.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.WithField("broker", cfg.BrokerURL).Info("MQTT connected")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

// Topic is the topic a bus's GPS device publishes fixes on
func Topic(prefix, busID string) string {
	return fmt.Sprintf("%s/%s/gps", prefix, busID)
}

type gpsMessage struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// MQTTSource subscribes to the device topic while at least one watch is open
type MQTTSource struct {
	hub
	client mqtt.Client
	topic  string
	logger *logrus.Logger

	subMu sync.Mutex
}

// NewMQTTSource creates an MQTTSource for topic; now may be nil
func NewMQTTSource(client mqtt.Client, topic string, logger *logrus.Logger, now func() time.Time) *MQTTSource {
	return &MQTTSource{
		hub:    newHub(now),
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// Watch implements Source
func (s *MQTTSource) Watch(opts WatchOptions, onFix func(Fix), onErr func(error)) (Subscription, error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	w, count := s.add(opts, onFix, onErr, s.release)
	if count > 1 {
		return w, nil
	}

	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	if !token.WaitTimeout(subscribeTimeout) || token.Error() != nil {
		s.remove(w)
		w.close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrUnavailable, s.topic, token.Error())
	}
	return w, nil
}

func (s *MQTTSource) release(w *watch) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.remove(w) > 0 {
		return
	}
	token := s.client.Unsubscribe(s.topic)
	if !token.WaitTimeout(subscribeTimeout) || token.Error() != nil {
		s.logger.WithFields(logrus.Fields{
			"topic": s.topic,
			"error": token.Error(),
		}).Warn("MQTT unsubscribe failed")
	}
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw gpsMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.WithError(err).WithField("topic", msg.Topic()).Warn("Invalid GPS message")
		return
	}

	fix := Fix{
		Coordinate: geo.Coordinate{Latitude: raw.Latitude, Longitude: raw.Longitude},
		Accuracy:   raw.Accuracy,
		Timestamp:  s.now(),
	}
	if raw.Timestamp > 0 {
		fix.Timestamp = time.UnixMilli(raw.Timestamp)
	}
	if err := fix.Coordinate.Validate(); err != nil {
		s.logger.WithError(err).WithField("topic", msg.Topic()).Warn("GPS message rejected")
		return
	}

	if err := s.broadcast(fix); err != nil {
		s.logger.WithError(err).Debug("GPS fix dropped")
	}
}
