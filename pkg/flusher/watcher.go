package flusher

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/marmos91/flushwatch/internal/logger"
	"github.com/marmos91/flushwatch/internal/telemetry"
)

// watch is the watcher goroutine. It scans immediately, then once per scan
// interval measured from the start of the previous scan.
func (m *Manager) watch(ctx context.Context) {
	defer close(m.watcherDone)
	defer m.running.Store(false)

	m.opts.metrics.SetWatcherAlive(true)
	defer m.opts.metrics.SetWatcherAlive(false)

	timer := time.NewTimer(m.scanInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		start := m.opts.now()
		if fatal := m.safeScan(ctx); fatal != nil {
			m.setFatal(fatal)
			m.opts.metrics.RecordFatal()
			logger.Error("Flush watcher terminated",
				logger.KeyPanic, fmt.Sprint(fatal.Value),
				"stack", string(fatal.Stack))
			return
		}
		elapsed := m.opts.now().Sub(start)
		m.opts.metrics.ObserveCycle(elapsed)

		timer.Reset(sleepFor(m.scanInterval, elapsed))
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// sleepFor returns how long to wait after a scan that took elapsed.
func sleepFor(scanInterval, elapsed time.Duration) time.Duration {
	return max(scanInterval-elapsed, 0)
}

func (m *Manager) safeScan(ctx context.Context) (fatal *FatalError) {
	defer func() {
		if r := recover(); r != nil {
			fatal = &FatalError{Value: r, Stack: debug.Stack()}
		}
	}()
	m.scan(ctx)
	return nil
}

// scan visits every handle once in registration order and dispatches a
// forced sync for each one that is idle, due, and not already being flushed.
// It returns the number of dispatched syncs.
func (m *Manager) scan(ctx context.Context) int {
	ctx, span := telemetry.StartScanSpan(ctx, m.scanInterval)
	defer span.End()

	dispatched := 0
	for _, e := range m.entries {
		if !e.handle.IsQueueEmpty() || !e.handle.DueForSync() {
			continue
		}

		if !e.inFlight.CompareAndSwap(false, true) {
			e.skipped.Add(1)
			m.opts.metrics.RecordSkipped(e.id)
			logger.Debug("Forced sync still in flight", logger.KeyCacheID, e.id)
			continue
		}

		logger.Debug("Forced sync detected",
			logger.KeyCacheID, e.id,
			logger.FlushInterval(e.handle.FlushInterval()))

		if !m.pool.submit(e) {
			e.inFlight.Store(false)
			logger.Warn("Force sync queue rejected dispatch", logger.KeyCacheID, e.id)
			continue
		}

		e.dispatches.Add(1)
		e.lastDispatch.Store(m.opts.now().UnixNano())
		m.opts.metrics.RecordDispatch(e.id)
		if m.opts.onDispatch != nil {
			m.opts.onDispatch(e.id)
		}
		dispatched++
	}

	telemetry.SetAttributes(ctx, telemetry.Dispatched(dispatched))
	return dispatched
}
