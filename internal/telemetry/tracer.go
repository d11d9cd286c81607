package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for flush scheduling spans.
const (
	AttrCacheID       = "cache.id"
	AttrCachePath     = "cache.path"
	AttrFlushInterval = "cache.flush_interval_ms"
	AttrSyncID        = "sync.id"
	AttrSyncKind      = "sync.kind" // forced, threshold, close
	AttrSyncBytes     = "sync.bytes"
	AttrScanInterval  = "scan.interval_ms"
	AttrDispatched    = "scan.dispatched"
)

// Span names.
const (
	SpanForceSync = "flusher.force_sync"
	SpanScan      = "flusher.scan"
)

// CacheID returns an attribute for a cache handle identifier.
func CacheID(id string) attribute.KeyValue {
	return attribute.String(AttrCacheID, id)
}

// CachePath returns an attribute for a cache file path.
func CachePath(path string) attribute.KeyValue {
	return attribute.String(AttrCachePath, path)
}

// FlushInterval returns an attribute for a cache flush interval.
func FlushInterval(d time.Duration) attribute.KeyValue {
	return attribute.Int64(AttrFlushInterval, d.Milliseconds())
}

// SyncID returns an attribute for a forced sync identifier.
func SyncID(id string) attribute.KeyValue {
	return attribute.String(AttrSyncID, id)
}

// SyncKind returns an attribute describing what triggered a sync.
func SyncKind(kind string) attribute.KeyValue {
	return attribute.String(AttrSyncKind, kind)
}

// SyncBytes returns an attribute for the bytes made durable by a sync.
func SyncBytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrSyncBytes, n)
}

// Dispatched returns an attribute for the number of syncs a scan dispatched.
func Dispatched(n int) attribute.KeyValue {
	return attribute.Int(AttrDispatched, n)
}

// StartForceSyncSpan starts the span wrapping one forced sync.
func StartForceSyncSpan(ctx context.Context, cacheID, syncID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{CacheID(cacheID), SyncID(syncID)}, attrs...)
	return StartSpan(ctx, SpanForceSync,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(all...),
	)
}

// StartScanSpan starts the span wrapping one watcher scan cycle.
func StartScanSpan(ctx context.Context, scanInterval time.Duration) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanScan,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int64(AttrScanInterval, scanInterval.Milliseconds())),
	)
}
