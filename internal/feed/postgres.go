package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const listenerPingInterval = 90 * time.Second

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PGFeed carries updates through Postgres LISTEN/NOTIFY, so every API
// instance connected to the same database sees them
type PGFeed struct {
	db       execer
	channel  string
	logger   *logrus.Logger
	local    *MemoryFeed
	listener *pq.Listener

	done      chan struct{}
	closeOnce sync.Once
}

// NewPGFeed starts listening on channel using a dedicated lib/pq connection
func NewPGFeed(db execer, dsn, channel string, logger *logrus.Logger) (*PGFeed, error) {
	f := newPGFeed(db, channel, logger)

	f.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.WithError(err).WithField("event", ev).Warn("Postgres listener event")
		}
	})
	if err := f.listener.Listen(channel); err != nil {
		f.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	go f.run()
	return f, nil
}

func newPGFeed(db execer, channel string, logger *logrus.Logger) *PGFeed {
	return &PGFeed{
		db:      db,
		channel: channel,
		logger:  logger,
		local:   NewMemoryFeed(),
		done:    make(chan struct{}),
	}
}

func (f *PGFeed) run() {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect
			if n == nil {
				continue
			}
			f.dispatch(n.Extra)
		case <-ticker.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					f.logger.WithError(err).Warn("Postgres listener ping failed")
				}
			}()
		case <-f.done:
			return
		}
	}
}

func (f *PGFeed) dispatch(payload string) {
	var update BusUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		f.logger.WithError(err).WithField("channel", f.channel).Warn("Invalid bus update notification")
		return
	}
	_ = f.local.Publish(context.Background(), update)
}

// Publish implements Feed
func (f *PGFeed) Publish(ctx context.Context, update BusUpdate) error {
	b, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode bus update: %w", err)
	}
	if _, err := f.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, f.channel, string(b)); err != nil {
		return fmt.Errorf("failed to notify bus update: %w", err)
	}
	return nil
}

// Subscribe implements Feed
func (f *PGFeed) Subscribe(busID string, h Handler) (Subscription, error) {
	return f.local.Subscribe(busID, h)
}

// Close implements Feed
func (f *PGFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		if f.listener != nil {
			err = f.listener.Close()
		}
		f.local.Close()
	})
	return err
}
