// Package flusher schedules out-of-band durable flushes for a fixed set of
// write-buffered caches.
//
// A Manager runs one watcher goroutine that scans every cache at the smallest
// flush interval among them. A cache that has no pending writes and whose
// flush interval has elapsed since its last flush gets a forced sync,
// executed on a worker pool sized to the number of caches. At most one forced
// sync per cache is in flight at any time.
//
//	m, err := flusher.New([]flusher.Handle{a, b}, flusher.WithMetrics(fm))
//	if err != nil {
//		return err
//	}
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(10 * time.Second)
package flusher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/flushwatch/internal/logger"
)

// entry is the scheduler's per-handle bookkeeping.
type entry struct {
	handle   Handle
	id       string
	inFlight atomic.Bool

	dispatches   atomic.Uint64
	failures     atomic.Uint64
	skipped      atomic.Uint64
	lastDispatch atomic.Int64 // unix nanos, 0 when never dispatched

	mu        sync.Mutex
	lastError string
}

func (e *entry) setLastError(err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()
}

func (e *entry) getLastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// Manager owns the cache set, the watcher goroutine, and the worker pool.
// The cache set and scan interval are fixed at construction.
type Manager struct {
	entries      []*entry
	scanInterval time.Duration
	opts         options

	pool *syncPool

	mu      sync.Mutex
	started bool
	stopped bool
	fatal   error
	cancel  context.CancelFunc

	running     atomic.Bool
	stopCh      chan struct{}
	watcherDone chan struct{}
}

// New builds a Manager for caches, scanned in the given order.
func New(caches []Handle, opts ...Option) (*Manager, error) {
	if len(caches) == 0 {
		return nil, ErrNoCaches
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]*entry, 0, len(caches))
	seen := make(map[string]struct{}, len(caches))
	var scanInterval time.Duration

	for i, h := range caches {
		if h == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilHandle, i)
		}
		id := h.ID()
		interval := h.FlushInterval()
		if interval <= 0 {
			return nil, fmt.Errorf("%w: cache %q has %v", ErrInvalidInterval, id, interval)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}

		if scanInterval == 0 || interval < scanInterval {
			scanInterval = interval
		}
		entries = append(entries, &entry{handle: h, id: id})
	}

	m := &Manager{
		entries:      entries,
		scanInterval: scanInterval,
		opts:         o,
		stopCh:       make(chan struct{}),
		watcherDone:  make(chan struct{}),
	}
	m.pool = newSyncPool(len(entries), m.runSync)

	logger.Info("Flush scheduler configured",
		logger.KeyCaches, len(entries),
		logger.ScanInterval(scanInterval))

	return m, nil
}

// Start launches the watcher and the worker pool and returns immediately.
// ctx is the parent of every ForceSync context; cancelling it stops the
// watcher just like Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	logger.Info("Starting flush scheduler",
		logger.KeyWorkers, len(m.entries),
		logger.ScanInterval(m.scanInterval))

	m.pool.Start(runCtx)
	m.running.Store(true)
	go m.watch(runCtx)

	return nil
}

// Stop signals the watcher, waits for it to exit, then waits up to timeout
// in total for queued and running forced syncs. Any ForceSync still running
// after that has its context cancelled. Stop is idempotent.
func (m *Manager) Stop(timeout time.Duration) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.mu.Unlock()

	logger.Info("Stopping flush scheduler", logger.KeyPending, m.pool.Pending())

	deadline := time.Now().Add(timeout)
	close(m.stopCh)

	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()

	var err error
	select {
	case <-m.watcherDone:
	case <-timer.C:
		logger.Warn("Watcher did not exit in time")
		err = ErrStopTimeout
	}

	if perr := m.pool.Stop(time.Until(deadline)); perr != nil {
		err = perr
	}
	m.cancel()

	if err == nil {
		logger.Info("Flush scheduler stopped")
	}
	return err
}

// ScanInterval returns the fixed period of the watcher cycle.
func (m *Manager) ScanInterval() time.Duration {
	return m.scanInterval
}

// Err returns the *FatalError that terminated the watcher, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fatal
}

// Running reports whether the watcher goroutine is alive.
func (m *Manager) Running() bool {
	return m.running.Load()
}

func (m *Manager) setFatal(err error) {
	m.mu.Lock()
	m.fatal = err
	m.mu.Unlock()
}
