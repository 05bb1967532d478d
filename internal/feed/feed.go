package feed

import (
	"context"
	"errors"
	"time"

	"github.com/vgnt/transport-portal/internal/models"
)

// ErrClosed is returned by a feed after Close
var ErrClosed = errors.New("feed: closed")

// BusUpdate is a change of a bus's live state
type BusUpdate struct {
	BusID    string                 `json:"bus_id"`
	Active   bool                   `json:"active"`
	Location *models.LocationReport `json:"location"`
	At       time.Time              `json:"at"`
}

// Handler receives updates for one bus. Handlers must not block.
type Handler func(BusUpdate)

// Subscription is released with Unsubscribe; calling it twice is harmless
type Subscription interface {
	Unsubscribe()
}

// Feed carries bus updates from the driver's tracker to watching dashboards
type Feed interface {
	Publish(ctx context.Context, update BusUpdate) error
	Subscribe(busID string, h Handler) (Subscription, error)
	Close() error
}

// FuncSubscription adapts a function to Subscription
type FuncSubscription func()

// Unsubscribe implements Subscription
func (f FuncSubscription) Unsubscribe() { f() }
