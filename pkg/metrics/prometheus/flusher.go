// Package prometheus implements the flusher and filecache metrics sinks with
// Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/flushwatch/pkg/flusher"
)

const namespace = "flushwatch"

// Label names.
const (
	LabelCacheID = "cache_id"
	LabelResult  = "result"
	LabelKind    = "kind"
)

// FlusherMetrics implements flusher.Metrics.
type FlusherMetrics struct {
	dispatchTotal *prometheus.CounterVec
	skippedTotal  *prometheus.CounterVec
	flushTotal    *prometheus.CounterVec
	flushDuration *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	inFlight      prometheus.Gauge
	watcherAlive  prometheus.Gauge
	watcherFatal  prometheus.Counter
}

var _ flusher.Metrics = (*FlusherMetrics)(nil)

// NewFlusherMetrics creates the scheduler collectors and registers them with
// registry. A nil registry leaves them unregistered, which tests use.
func NewFlusherMetrics(registry prometheus.Registerer) *FlusherMetrics {
	m := &FlusherMetrics{
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "dispatch_total",
				Help:      "Forced syncs dispatched by the watcher",
			},
			[]string{LabelCacheID},
		),
		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "skipped_in_flight_total",
				Help:      "Scans that found a due cache whose previous forced sync was still running",
			},
			[]string{LabelCacheID},
		),
		flushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "flush_total",
				Help:      "Syncer task outcomes by cache and result",
			},
			[]string{LabelCacheID, LabelResult},
		),
		flushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "flush_duration_seconds",
				Help:      "Duration of forced syncs",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{LabelCacheID},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "scan_duration_seconds",
				Help:      "Time spent scanning every cache once",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "in_flight",
				Help:      "Forced syncs currently running",
			},
		),
		watcherAlive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "watcher_alive",
				Help:      "1 while the watcher goroutine is running, 0 otherwise",
			},
		),
		watcherFatal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flusher",
				Name:      "watcher_fatal_total",
				Help:      "Watchers terminated by a panic",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.dispatchTotal,
			m.skippedTotal,
			m.flushTotal,
			m.flushDuration,
			m.cycleDuration,
			m.inFlight,
			m.watcherAlive,
			m.watcherFatal,
		)
	}

	return m
}

func (m *FlusherMetrics) RecordDispatch(cacheID string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(cacheID).Inc()
}

func (m *FlusherMetrics) RecordSkipped(cacheID string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(cacheID).Inc()
}

// RecordFlush counts the result. Durations are only observed for syncs that
// actually called ForceSync.
func (m *FlusherMetrics) RecordFlush(cacheID, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.flushTotal.WithLabelValues(cacheID, result).Inc()
	if result != flusher.ResultStale {
		m.flushDuration.WithLabelValues(cacheID).Observe(duration.Seconds())
	}
}

func (m *FlusherMetrics) ObserveCycle(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(elapsed.Seconds())
}

func (m *FlusherMetrics) AddInFlight(delta int) {
	if m == nil {
		return
	}
	m.inFlight.Add(float64(delta))
}

func (m *FlusherMetrics) SetWatcherAlive(alive bool) {
	if m == nil {
		return
	}
	if alive {
		m.watcherAlive.Set(1)
	} else {
		m.watcherAlive.Set(0)
	}
}

func (m *FlusherMetrics) RecordFatal() {
	if m == nil {
		return
	}
	m.watcherFatal.Inc()
}
