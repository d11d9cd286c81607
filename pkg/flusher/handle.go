package flusher

import (
	"context"
	"time"
)

// Handle is a write-buffered cache the Manager can schedule.
//
// The Manager only observes a handle: it never mutates the pending queue and
// never calls ForceSync while a previous ForceSync for the same handle is
// still running. Producers may keep writing while ForceSync runs, so
// implementations must tolerate that.
type Handle interface {
	// ID returns a stable identifier used in logs, metrics, and status output.
	ID() string

	// FlushInterval returns the minimum time between forced flushes.
	// It must be positive and must not change for the lifetime of the handle.
	FlushInterval() time.Duration

	// IsQueueEmpty reports whether no buffered write units are pending.
	IsQueueEmpty() bool

	// DueForSync reports whether at least FlushInterval has elapsed since the
	// last successful flush, forced or not.
	DueForSync() bool

	// ForceSync durably flushes whatever is currently buffered.
	// It is a no-op when nothing is buffered.
	ForceSync(ctx context.Context) error
}
