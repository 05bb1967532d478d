package feed

import (
	"context"
	"sync"
)

// MemoryFeed delivers updates within the process
type MemoryFeed struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler
	closed bool
}

// NewMemoryFeed creates an empty MemoryFeed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[uint64]Handler)}
}

// Publish implements Feed
func (f *MemoryFeed) Publish(_ context.Context, update BusUpdate) error {
	f.mu.RLock()
	if f.closed {
		f.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(f.subs[update.BusID]))
	for _, h := range f.subs[update.BusID] {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(update)
	}
	return nil
}

// Subscribe implements Feed
func (f *MemoryFeed) Subscribe(busID string, h Handler) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	f.nextID++
	id := f.nextID
	if f.subs[busID] == nil {
		f.subs[busID] = make(map[uint64]Handler)
	}
	f.subs[busID][id] = h

	var once sync.Once
	return FuncSubscription(func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[busID], id)
			if len(f.subs[busID]) == 0 {
				delete(f.subs, busID)
			}
		})
	}), nil
}

// Subscribers returns how many handlers watch busID
func (f *MemoryFeed) Subscribers(busID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[busID])
}

// Close implements Feed
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[string]map[uint64]Handler)
	return nil
}
