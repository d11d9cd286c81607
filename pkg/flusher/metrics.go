package flusher

import "time"

// Flush results reported to Metrics.RecordFlush.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultStale means the handle was no longer idle or due when the syncer
	// re-checked it, so ForceSync was not called.
	ResultStale = "stale"
)

// Metrics receives scheduler events. Implementations must be safe for
// concurrent use. See pkg/metrics/prometheus for the Prometheus version.
type Metrics interface {
	// RecordDispatch counts a forced sync handed to the worker pool.
	RecordDispatch(cacheID string)

	// RecordSkipped counts a handle that was idle and due but still had a
	// forced sync in flight.
	RecordSkipped(cacheID string)

	// RecordFlush records the outcome and duration of one syncer task.
	RecordFlush(cacheID, result string, duration time.Duration)

	// ObserveCycle records the time spent scanning all handles once.
	ObserveCycle(elapsed time.Duration)

	// AddInFlight adjusts the number of running forced syncs.
	AddInFlight(delta int)

	// SetWatcherAlive reports whether the watcher goroutine is running.
	SetWatcherAlive(alive bool)

	// RecordFatal counts a watcher terminated by a panic.
	RecordFatal()
}

type noopMetrics struct{}

func (noopMetrics) RecordDispatch(string)                     {}
func (noopMetrics) RecordSkipped(string)                      {}
func (noopMetrics) RecordFlush(string, string, time.Duration) {}
func (noopMetrics) ObserveCycle(time.Duration)                {}
func (noopMetrics) AddInFlight(int)                           {}
func (noopMetrics) SetWatcherAlive(bool)                      {}
func (noopMetrics) RecordFatal()                              {}
