package flusher

import "time"

// Option configures a Manager.
type Option func(*options)

type options struct {
	metrics      Metrics
	flushTimeout time.Duration
	onDispatch   func(cacheID string)
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		metrics: noopMetrics{},
		now:     time.Now,
	}
}

// WithMetrics sets the metrics sink. A nil value keeps the no-op sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithFlushTimeout bounds each ForceSync call. Zero, the default, means no
// timeout beyond the context passed to Start.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) {
		o.flushTimeout = d
	}
}

// WithDispatchObserver registers fn to be called on the watcher goroutine
// every time a forced sync is detected and dispatched. fn must not block.
func WithDispatchObserver(fn func(cacheID string)) Option {
	return func(o *options) {
		o.onDispatch = fn
	}
}

// WithClock replaces time.Now for cycle timing and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
