package flusher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/flushwatch/internal/logger"
	"github.com/marmos91/flushwatch/internal/telemetry"
)

// runSync is the syncer task. The handle may have received writes, or been
// flushed by its own write path, between dispatch and now, so both
// conditions are checked again before ForceSync. Failures are logged and
// dropped.
func (m *Manager) runSync(parent context.Context, e *entry) {
	defer e.inFlight.Store(false)

	if !e.handle.IsQueueEmpty() || !e.handle.DueForSync() {
		m.opts.metrics.RecordFlush(e.id, ResultStale, 0)
		logger.Debug("Forced sync no longer needed", logger.KeyCacheID, e.id)
		return
	}

	syncID := uuid.NewString()
	ctx, span := telemetry.StartForceSyncSpan(parent, e.id, syncID,
		telemetry.FlushInterval(e.handle.FlushInterval()))
	defer span.End()

	lc := logger.NewLogContext(e.id).
		WithSyncID(syncID).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	if m.opts.flushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.flushTimeout)
		defer cancel()
	}

	m.opts.metrics.AddInFlight(1)
	defer m.opts.metrics.AddInFlight(-1)

	start := time.Now()
	err := forceSync(ctx, e.handle)
	duration := time.Since(start)

	if err != nil {
		ferr := &FlushError{CacheID: e.id, Err: err}
		e.failures.Add(1)
		e.setLastError(ferr)
		telemetry.RecordError(ctx, ferr)
		m.opts.metrics.RecordFlush(e.id, ResultError, duration)
		logger.ErrorCtx(ctx, "Forced sync failed",
			logger.KeyError, err.Error(),
			logger.KeyDurationMs, duration.Milliseconds())
		return
	}

	m.opts.metrics.RecordFlush(e.id, ResultSuccess, duration)
	logger.DebugCtx(ctx, "Forced sync completed", logger.KeyDurationMs, duration.Milliseconds())
}

// forceSync calls h.ForceSync, turning a panic into an error.
func forceSync(ctx context.Context, h Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSyncPanic, r)
		}
	}()
	return h.ForceSync(ctx)
}
