package flusher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCaches is returned by New when the cache set is empty.
	ErrNoCaches = errors.New("flusher: no caches to schedule")

	// ErrNilHandle is returned by New when the cache set contains a nil handle.
	ErrNilHandle = errors.New("flusher: nil cache handle")

	// ErrInvalidInterval is returned by New when a handle reports a
	// non-positive flush interval.
	ErrInvalidInterval = errors.New("flusher: flush interval must be positive")

	// ErrDuplicateID is returned by New when two handles share an ID.
	ErrDuplicateID = errors.New("flusher: duplicate cache id")

	// ErrAlreadyStarted is returned by Start after the first call.
	ErrAlreadyStarted = errors.New("flusher: already started")

	// ErrNotStarted is returned by Stop when Start was never called.
	ErrNotStarted = errors.New("flusher: not started")

	// ErrStopTimeout is returned by Stop when in-flight flushes did not
	// finish within the timeout.
	ErrStopTimeout = errors.New("flusher: timed out waiting for in-flight flushes")

	// ErrSyncPanic marks a FlushError produced by a panic inside ForceSync.
	ErrSyncPanic = errors.New("flusher: panic during force sync")
)

// FatalError is recorded when a scan cycle panics. It stops the watcher for
// good; the Manager does not restart it.
type FatalError struct {
	Value any
	Stack []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("flusher: watcher terminated by panic: %v", e.Value)
}

// FlushError wraps a failed forced sync. It is logged and dropped; the
// scheduler keeps running and does not retry.
type FlushError struct {
	CacheID string
	Err     error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("force sync of cache %q failed: %v", e.CacheID, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
