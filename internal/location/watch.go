package location

import (
	"sync"
	"time"
)

// watch enforces WatchOptions for a single subscriber
type watch struct {
	opts  WatchOptions
	onFix func(Fix)
	onErr func(error)
	now   func() time.Time

	// deliverMu serializes callbacks, mu guards the fields below
	deliverMu sync.Mutex
	mu        sync.Mutex
	timer     *time.Timer
	deadline  time.Time
	closed    bool

	once    sync.Once
	release func(*watch)
}

func newWatch(opts WatchOptions, onFix func(Fix), onErr func(error), now func() time.Time, release func(*watch)) *watch {
	w := &watch{
		opts:    opts,
		onFix:   onFix,
		onErr:   onErr,
		now:     now,
		release: release,
	}
	if opts.Timeout > 0 {
		w.deadline = time.Now().Add(opts.Timeout)
		w.timer = time.AfterFunc(opts.Timeout, w.expire)
	}
	return w
}

func (w *watch) active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

func (w *watch) deliver(fix Fix) error {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrNotWatching
	}
	if w.opts.MaxAge > 0 && w.now().Sub(fix.Timestamp) > w.opts.MaxAge {
		w.mu.Unlock()
		return ErrStaleFix
	}
	w.rearmLocked()
	w.mu.Unlock()

	w.onFix(fix)
	return nil
}

// rearmLocked pushes the timeout back; the caller holds mu
func (w *watch) rearmLocked() {
	if w.timer == nil {
		return
	}
	w.deadline = time.Now().Add(w.opts.Timeout)
	w.timer.Reset(w.opts.Timeout)
}

func (w *watch) fail(err error) {
	w.notify(err, false)
}

func (w *watch) expire() {
	w.notify(ErrTimeout, true)
}

// notify reports err to the owner. A timeout is dropped when a fix re-armed
// the timer while the expiry was waiting for deliverMu.
func (w *watch) notify(err error, expired bool) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	w.mu.Lock()
	if w.closed || (expired && time.Now().Before(w.deadline)) {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.onErr(err)
}

// close stops the watch without notifying its owner
func (w *watch) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Unsubscribe implements Subscription
func (w *watch) Unsubscribe() {
	w.once.Do(func() {
		w.close()
		if w.release != nil {
			w.release(w)
		}
	})
}

// hub fans fixes out to every open watch
type hub struct {
	now func() time.Time

	mu      sync.RWMutex
	watches map[*watch]struct{}
}

func newHub(now func() time.Time) hub {
	if now == nil {
		now = time.Now
	}
	return hub{now: now, watches: make(map[*watch]struct{})}
}

func (h *hub) add(opts WatchOptions, onFix func(Fix), onErr func(error), release func(*watch)) (*watch, int) {
	w := newWatch(opts, onFix, onErr, h.now, release)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.watches[w] = struct{}{}
	return w, len(h.watches)
}

// remove drops w and returns how many watches remain
func (h *hub) remove(w *watch) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watches, w)
	return len(h.watches)
}

func (h *hub) snapshot() []*watch {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*watch, 0, len(h.watches))
	for w := range h.watches {
		out = append(out, w)
	}
	return out
}

// broadcast delivers fix to every watch. It returns nil when at least one
// watch accepted the fix.
func (h *hub) broadcast(fix Fix) error {
	watches := h.snapshot()
	if len(watches) == 0 {
		return ErrNotWatching
	}

	accepted := false
	var lastErr error
	for _, w := range watches {
		if err := w.deliver(fix); err != nil {
			lastErr = err
			continue
		}
		accepted = true
	}
	if accepted {
		return nil
	}
	return lastErr
}

func (h *hub) failAll(err error) {
	for _, w := range h.snapshot() {
		w.fail(err)
	}
}

func (h *hub) watching() bool {
	for _, w := range h.snapshot() {
		if w.active() {
			return true
		}
	}
	return false
}
