package location

import (
	"fmt"
	"time"
)

// PushSource receives fixes posted by the driver's device over HTTP
type PushSource struct {
	hub
}

// NewPushSource creates a PushSource; now may be nil
func NewPushSource(now func() time.Time) *PushSource {
	return &PushSource{hub: newHub(now)}
}

// Watch implements Source
func (s *PushSource) Watch(opts WatchOptions, onFix func(Fix), onErr func(error)) (Subscription, error) {
	w, _ := s.add(opts, onFix, onErr, func(w *watch) { s.remove(w) })
	return w, nil
}

// Push hands a fix to the active watches. A zero timestamp means "now".
func (s *PushSource) Push(fix Fix) error {
	if err := fix.Coordinate.Validate(); err != nil {
		return fmt.Errorf("invalid fix: %w", err)
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = s.now()
	}
	return s.broadcast(fix)
}

// Fail reports a device-side error such as a denied permission
func (s *PushSource) Fail(reason string) {
	s.failAll(fmt.Errorf("%w: %s", ErrUnavailable, reason))
}

// Watching reports whether any watch is open
func (s *PushSource) Watching() bool {
	return s.watching()
}
