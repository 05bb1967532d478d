package location

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgnt/transport-portal/pkg/geo"
)

var collegeGate = geo.Coordinate{Latitude: 17.4150, Longitude: 78.5180}

type recorder struct {
	mu    sync.Mutex
	fixes []Fix
	errs  []error
}

func (r *recorder) onFix(f Fix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, f)
}

func (r *recorder) onErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fixes), len(r.errs)
}

func (r *recorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}

func TestPushSource_DeliversFixes(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{MaxAge: 4 * time.Second}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.True(t, src.Watching())
	require.NoError(t, src.Push(Fix{Coordinate: collegeGate}))

	fixes, errs := rec.counts()
	assert.Equal(t, 1, fixes)
	assert.Equal(t, 0, errs)
	assert.False(t, rec.fixes[0].Timestamp.IsZero())
}

func TestPushSource_RejectsStaleFix(t *testing.T) {
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	src := NewPushSource(func() time.Time { return now })
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{MaxAge: 4 * time.Second}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	err = src.Push(Fix{Coordinate: collegeGate, Timestamp: now.Add(-5 * time.Second)})
	assert.ErrorIs(t, err, ErrStaleFix)

	err = src.Push(Fix{Coordinate: collegeGate, Timestamp: now.Add(-3 * time.Second)})
	assert.NoError(t, err)

	fixes, _ := rec.counts()
	assert.Equal(t, 1, fixes)
}

func TestPushSource_RejectsInvalidCoordinate(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	err = src.Push(Fix{Coordinate: geo.Coordinate{Latitude: 120, Longitude: 0}})
	assert.Error(t, err)
	fixes, _ := rec.counts()
	assert.Equal(t, 0, fixes)
}

func TestPushSource_NoWatch(t *testing.T) {
	src := NewPushSource(nil)
	assert.False(t, src.Watching())
	assert.ErrorIs(t, src.Push(Fix{Coordinate: collegeGate}), ErrNotWatching)
}

func TestPushSource_UnsubscribeStopsDelivery(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{Timeout: 20 * time.Millisecond}, rec.onFix, rec.onErr)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.False(t, src.Watching())
	assert.ErrorIs(t, src.Push(Fix{Coordinate: collegeGate}), ErrNotWatching)

	// the timeout must not fire after release
	time.Sleep(50 * time.Millisecond)
	fixes, errs := rec.counts()
	assert.Equal(t, 0, fixes)
	assert.Equal(t, 0, errs)
}

func TestPushSource_Timeout(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{Timeout: 30 * time.Millisecond}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Eventually(t, func() bool {
		_, errs := rec.counts()
		return errs == 1
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, rec.lastErr(), ErrTimeout)
}

func TestPushSource_FixesResetTimeout(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{Timeout: 80 * time.Millisecond}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		require.NoError(t, src.Push(Fix{Coordinate: collegeGate}))
	}

	_, errs := rec.counts()
	assert.Equal(t, 0, errs)
}

func TestPushSource_Fail(t *testing.T) {
	src := NewPushSource(nil)
	rec := &recorder{}

	sub, err := src.Watch(WatchOptions{}, rec.onFix, rec.onErr)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	src.Fail("permission denied")

	err = rec.lastErr()
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestPushSource_UnsubscribeFromCallback(t *testing.T) {
	src := NewPushSource(nil)

	var sub Subscription
	var calls int32
	sub, err := src.Watch(WatchOptions{}, func(Fix) {
		atomic.AddInt32(&calls, 1)
		sub.Unsubscribe()
	}, func(error) {})
	require.NoError(t, err)

	require.NoError(t, src.Push(Fix{Coordinate: collegeGate}))
	assert.ErrorIs(t, src.Push(Fix{Coordinate: collegeGate}), ErrNotWatching)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPushSource_SerialDelivery(t *testing.T) {
	src := NewPushSource(nil)

	var inFlight, maxInFlight int32
	sub, err := src.Watch(WatchOptions{}, func(Fix) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}, func(error) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = src.Push(Fix{Coordinate: collegeGate})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestWatch_TimeoutOvertakenByFix(t *testing.T) {
	var errs int32
	w := newWatch(WatchOptions{Timeout: 50 * time.Millisecond}, func(Fix) {}, func(error) {
		atomic.AddInt32(&errs, 1)
	}, time.Now, nil)
	defer w.close()

	// a fix is being delivered while the timer fires
	w.deliverMu.Lock()
	time.Sleep(100 * time.Millisecond)
	w.mu.Lock()
	w.rearmLocked()
	w.mu.Unlock()
	w.deliverMu.Unlock()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&errs), "timeout reported right after a fix")

	// the re-armed timer still fires when no further fix arrives
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&errs) == 1 }, time.Second, 5*time.Millisecond)
}
