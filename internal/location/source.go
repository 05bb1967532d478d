package location

import (
	"errors"
	"time"

	"github.com/vgnt/transport-portal/pkg/geo"
)

var (
	// ErrTimeout is reported when no fix arrives within WatchOptions.Timeout
	ErrTimeout = errors.New("location: no fix within timeout")
	// ErrUnavailable is reported when the device cannot produce a position
	ErrUnavailable = errors.New("location: position unavailable")
	// ErrNotWatching is returned for fixes pushed while no watch is active
	ErrNotWatching = errors.New("location: no active watch")
	// ErrStaleFix is returned for fixes older than WatchOptions.MaxAge
	ErrStaleFix = errors.New("location: fix older than maximum age")
)

// Fix is one position reading from the driver's device
type Fix struct {
	Coordinate geo.Coordinate
	Accuracy   float64 // meters, 0 when unknown
	Timestamp  time.Time
}

// WatchOptions bounds a watch. A zero value disables the bound.
type WatchOptions struct {
	MaxAge  time.Duration
	Timeout time.Duration
}

// Subscription is the handle returned by Watch.
// Unsubscribe is idempotent and safe to call from the callbacks.
type Subscription interface {
	Unsubscribe()
}

// Source delivers position fixes until the subscription is released.
// Callbacks are invoked one at a time, never concurrently.
type Source interface {
	Watch(opts WatchOptions, onFix func(Fix), onErr func(error)) (Subscription, error)
}
