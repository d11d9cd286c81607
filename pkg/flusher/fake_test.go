package flusher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeHandle is a Handle whose queue, clock, and ForceSync behavior are
// controlled by the test.
type fakeHandle struct {
	id       string
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	queued   int
	lastSync time.Time
	syncs    []time.Time
	err      error
	panicMsg string
	block    chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeHandle(id string, interval time.Duration, clock *fakeClock) *fakeHandle {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}
	return &fakeHandle{id: id, interval: interval, now: now, lastSync: now()}
}

// newDueFakeHandle returns a handle whose last sync was one interval ago, so
// it is due at the first scan.
func newDueFakeHandle(id string, interval time.Duration, clock *fakeClock) *fakeHandle {
	h := newFakeHandle(id, interval, clock)
	h.lastSync = h.lastSync.Add(-interval)
	return h
}

func (h *fakeHandle) ID() string                   { return h.id }
func (h *fakeHandle) FlushInterval() time.Duration { return h.interval }

func (h *fakeHandle) IsQueueEmpty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queued == 0
}

func (h *fakeHandle) DueForSync() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now().Sub(h.lastSync) >= h.interval
}

func (h *fakeHandle) ForceSync(ctx context.Context) error {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		old := h.maxActive.Load()
		if n <= old || h.maxActive.CompareAndSwap(old, n) {
			break
		}
	}

	h.mu.Lock()
	block := h.block
	h.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	if h.err != nil {
		return h.err
	}
	h.lastSync = h.now()
	h.syncs = append(h.syncs, h.lastSync)
	return nil
}

func (h *fakeHandle) setQueued(n int) {
	h.mu.Lock()
	h.queued = n
	h.mu.Unlock()
}

func (h *fakeHandle) syncTimes() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.syncs...)
}

// panicHandle panics when observed by the watcher.
type panicHandle struct{ fakeHandle }

func (h *panicHandle) IsQueueEmpty() bool { panic("queue state corrupted") }

// recordingMetrics counts Metrics calls.
type recordingMetrics struct {
	mu         sync.Mutex
	dispatches map[string]int
	skipped    map[string]int
	results    map[string]int
	cycles     int
	inFlight   int
	alive      bool
	fatals     int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		dispatches: map[string]int{},
		skipped:    map[string]int{},
		results:    map[string]int{},
	}
}

func (r *recordingMetrics) RecordDispatch(id string) {
	r.mu.Lock()
	r.dispatches[id]++
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordSkipped(id string) {
	r.mu.Lock()
	r.skipped[id]++
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordFlush(id, result string, _ time.Duration) {
	r.mu.Lock()
	r.results[id+"/"+result]++
	r.mu.Unlock()
}

func (r *recordingMetrics) ObserveCycle(time.Duration) {
	r.mu.Lock()
	r.cycles++
	r.mu.Unlock()
}

func (r *recordingMetrics) AddInFlight(delta int) {
	r.mu.Lock()
	r.inFlight += delta
	r.mu.Unlock()
}

func (r *recordingMetrics) SetWatcherAlive(alive bool) {
	r.mu.Lock()
	r.alive = alive
	r.mu.Unlock()
}

func (r *recordingMetrics) RecordFatal() {
	r.mu.Lock()
	r.fatals++
	r.mu.Unlock()
}

func (r *recordingMetrics) result(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[key]
}

// startPool starts only the worker pool so tests can drive scan directly.
func startPool(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m.pool.Start(ctx)
	t.Cleanup(func() {
		_ = m.pool.Stop(time.Second)
		cancel()
	})
}

// waitIdle waits until no forced sync is queued or running.
func waitIdle(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool {
		if m.pool.Pending() != 0 {
			return false
		}
		for _, e := range m.entries {
			if e.inFlight.Load() {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
}
