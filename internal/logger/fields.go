package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use these keys consistently so
// log lines from the scheduler, the file caches, and the API can be joined.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Scheduling
	KeyCacheID       = "cache_id"
	KeySyncID        = "sync_id"
	KeyFlushInterval = "flush_interval"
	KeyScanInterval  = "scan_interval"
	KeyElapsed       = "elapsed"
	KeyCaches        = "caches"
	KeyWorkers       = "workers"
	KeyPending       = "pending"
	KeyReason        = "reason"

	// File cache
	KeyPath  = "path"
	KeyBytes = "bytes"
	KeyKind  = "kind"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyPanic      = "panic"
	KeyOperation  = "operation"
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// CacheID returns a slog.Attr for a cache handle identifier
func CacheID(id string) slog.Attr {
	return slog.String(KeyCacheID, id)
}

// SyncID returns a slog.Attr for a forced sync identifier
func SyncID(id string) slog.Attr {
	return slog.String(KeySyncID, id)
}

// FlushInterval returns a slog.Attr for a cache flush interval
func FlushInterval(d time.Duration) slog.Attr {
	return slog.Duration(KeyFlushInterval, d)
}

// ScanInterval returns a slog.Attr for the watcher scan interval
func ScanInterval(d time.Duration) slog.Attr {
	return slog.Duration(KeyScanInterval, d)
}

// Elapsed returns a slog.Attr for time spent in a scan cycle
func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration(KeyElapsed, d)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Bytes returns a slog.Attr for a byte count
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
