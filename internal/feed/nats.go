package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSFeed fans bus updates out over NATS so several API instances share them
type NATSFeed struct {
	nc     *nats.Conn
	prefix string
	logger *logrus.Logger
}

// NewNATSConn connects to NATS with logging connection handlers
func NewNATSConn(url string, logger *logrus.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("vgnt-transport-portal"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	)
}

// NewNATSFeed creates a NATSFeed publishing under prefix
func NewNATSFeed(nc *nats.Conn, prefix string, logger *logrus.Logger) *NATSFeed {
	return &NATSFeed{nc: nc, prefix: prefix, logger: logger}
}

// Subject is the subject updates for busID are published on
func (f *NATSFeed) Subject(busID string) string {
	return fmt.Sprintf("%s.%s.location", f.prefix, subjectToken(busID))
}

// Publish implements Feed
func (f *NATSFeed) Publish(_ context.Context, update BusUpdate) error {
	if f.nc.IsClosed() {
		return ErrClosed
	}
	b, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode bus update: %w", err)
	}
	if err := f.nc.Publish(f.Subject(update.BusID), b); err != nil {
		return fmt.Errorf("failed to publish bus update: %w", err)
	}
	return nil
}

// Subscribe implements Feed
func (f *NATSFeed) Subscribe(busID string, h Handler) (Subscription, error) {
	sub, err := f.nc.Subscribe(f.Subject(busID), func(msg *nats.Msg) {
		var update BusUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			f.logger.WithError(err).WithField("subject", msg.Subject).Warn("Invalid bus update")
			return
		}
		h(update)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to bus updates: %w", err)
	}

	return FuncSubscription(func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrBadSubscription {
			f.logger.WithError(err).Debug("NATS unsubscribe failed")
		}
	}), nil
}

// Close implements Feed
func (f *NATSFeed) Close() error {
	if f.nc.IsClosed() {
		return nil
	}
	return f.nc.Drain()
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain spaces, '>', '*' or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
