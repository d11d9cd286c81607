// Package filecache implements a write-buffered, append-only file that can
// be scheduled by pkg/flusher.
//
// Producers hand write units to Write, which only enqueues them. A consumer
// goroutine moves units from the queue into a buffered writer and performs a
// synchronous flush whenever the unsynced byte count crosses the configured
// buffer size. ForceSync makes everything currently buffered durable; it is
// what the flush scheduler calls when the cache has gone idle.
package filecache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/marmos91/flushwatch/internal/bufpool"
	"github.com/marmos91/flushwatch/internal/logger"
	"github.com/marmos91/flushwatch/internal/telemetry"
)

// Sync kinds, reported to Metrics and tracing.
const (
	KindForced    = "forced"
	KindThreshold = "threshold"
	KindClose     = "close"
)

const (
	DefaultQueueSize  = 1024
	DefaultBufferSize = 64 * 1024
)

var (
	// ErrClosed is returned by Write and ForceSync after Close.
	ErrClosed = errors.New("filecache: cache closed")

	// ErrInvalidConfig wraps configuration problems reported by New.
	ErrInvalidConfig = errors.New("filecache: invalid config")
)

// Config describes one cache file.
type Config struct {
	ID            string
	Path          string
	FlushInterval time.Duration

	// QueueSize bounds the number of pending write units. Write blocks when
	// the queue is full.
	QueueSize int

	// BufferSize is the number of unsynced bytes that triggers a synchronous
	// flush on the write path.
	BufferSize int
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
}

func (c Config) validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	case c.Path == "":
		return fmt.Errorf("%w: path is required for cache %q", ErrInvalidConfig, c.ID)
	case c.FlushInterval <= 0:
		return fmt.Errorf("%w: flush interval must be positive for cache %q", ErrInvalidConfig, c.ID)
	}
	return nil
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock replaces time.Now for last-sync bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is a write-buffered file. It satisfies flusher.Handle.
type Cache struct {
	cfg     Config
	fs      afero.Fs
	metrics Metrics
	now     func() time.Time

	queue   chan []byte
	pending atomic.Int64
	done    chan struct{}

	// intakeMu guards closing the queue against concurrent Write calls.
	intakeMu sync.RWMutex
	closing  bool

	// mu guards the file, the writer, and the sync bookkeeping below.
	mu             sync.Mutex
	file           afero.File
	w              *bufio.Writer
	unsynced       int64
	closed         bool
	bytesWritten   int64
	forcedSyncs    uint64
	thresholdSyncs uint64
	lastError      error

	lastSync atomic.Int64 // unix nanos
}

// New opens (creating if needed) cfg.Path on fs in append mode and starts the
// consumer goroutine.
func New(fs afero.Fs, cfg Config, opts ...Option) (*Cache, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		cfg:   cfg,
		fs:    fs,
		now:   time.Now,
		queue: make(chan []byte, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for cache %q: %w", cfg.ID, err)
		}
	}

	f, err := fs.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %q: %w", cfg.ID, err)
	}
	c.file = f
	c.w = bufio.NewWriterSize(f, cfg.BufferSize)
	c.lastSync.Store(c.now().UnixNano())

	go c.consume()

	logger.Debug("File cache opened",
		logger.KeyCacheID, cfg.ID,
		logger.KeyPath, cfg.Path,
		logger.FlushInterval(cfg.FlushInterval),
		"buffer", humanize.IBytes(uint64(cfg.BufferSize)),
		"queue_size", cfg.QueueSize)

	return c, nil
}

// ID returns the cache identifier.
func (c *Cache) ID() string { return c.cfg.ID }

// Path returns the backing file path.
func (c *Cache) Path() string { return c.cfg.Path }

// FlushInterval returns the configured flush interval.
func (c *Cache) FlushInterval() time.Duration { return c.cfg.FlushInterval }

// IsQueueEmpty reports whether every write unit accepted by Write has been
// moved into the buffered writer.
func (c *Cache) IsQueueEmpty() bool {
	return c.pending.Load() == 0
}

// DueForSync reports whether the flush interval has elapsed since the last
// flush of any kind.
func (c *Cache) DueForSync() bool {
	last := time.Unix(0, c.lastSync.Load())
	return c.now().Sub(last) >= c.cfg.FlushInterval
}

// Write enqueues a copy of p. It blocks while the queue is full, returning
// ctx.Err() if ctx ends first.
func (c *Cache) Write(ctx context.Context, p []byte) error {
	c.intakeMu.RLock()
	defer c.intakeMu.RUnlock()

	if c.closing {
		return ErrClosed
	}
	if len(p) == 0 {
		return nil
	}

	unit := bufpool.Get(len(p))
	copy(unit, p)

	c.pending.Add(1)
	select {
	case c.queue <- unit:
		if c.metrics != nil {
			c.metrics.SetQueueDepth(c.cfg.ID, len(c.queue))
		}
		return nil
	case <-ctx.Done():
		c.pending.Add(-1)
		bufpool.Put(unit)
		return ctx.Err()
	}
}

// ForceSync flushes the buffered writer and makes the file durable.
func (c *Cache) ForceSync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	n, err := c.syncLocked(KindForced)
	if err != nil {
		return err
	}
	telemetry.AddEvent(ctx, "filecache.synced",
		telemetry.CachePath(c.cfg.Path),
		telemetry.SyncKind(KindForced),
		telemetry.SyncBytes(n))
	return nil
}

// Close stops intake, drains the queue, syncs, and closes the file.
func (c *Cache) Close() error {
	c.intakeMu.Lock()
	if c.closing {
		c.intakeMu.Unlock()
		return nil
	}
	c.closing = true
	close(c.queue)
	c.intakeMu.Unlock()

	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()

	_, syncErr := c.syncLocked(KindClose)
	c.closed = true
	closeErr := c.file.Close()

	logger.Debug("File cache closed",
		logger.KeyCacheID, c.cfg.ID,
		logger.KeyBytes, c.bytesWritten)

	return errors.Join(syncErr, closeErr)
}

// consume moves write units from the queue into the buffered writer.
func (c *Cache) consume() {
	defer close(c.done)

	for unit := range c.queue {
		c.writeUnit(unit)
	}
}

func (c *Cache) writeUnit(unit []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.pending.Add(-1)

	start := time.Now()
	n, err := c.w.Write(unit)
	bufpool.Put(unit)
	c.bytesWritten += int64(n)
	c.unsynced += int64(n)
	if c.metrics != nil {
		c.metrics.ObserveWrite(c.cfg.ID, n, time.Since(start))
		c.metrics.SetQueueDepth(c.cfg.ID, len(c.queue))
	}
	if err != nil {
		c.lastError = err
		logger.Error("File cache write failed",
			logger.KeyCacheID, c.cfg.ID,
			logger.KeyError, err)
		return
	}

	if c.unsynced >= int64(c.cfg.BufferSize) {
		if _, err := c.syncLocked(KindThreshold); err != nil {
			logger.Error("File cache threshold sync failed",
				logger.KeyCacheID, c.cfg.ID,
				logger.KeyError, err)
		}
	}
}

// syncLocked flushes the writer and, when anything was written since the
// last sync, syncs the file. It returns the number of bytes made durable.
// c.mu must be held.
func (c *Cache) syncLocked(kind string) (int64, error) {
	start := time.Now()

	if err := c.w.Flush(); err != nil {
		c.lastError = err
		return 0, fmt.Errorf("failed to flush cache %q: %w", c.cfg.ID, err)
	}

	n := c.unsynced
	if n > 0 {
		if err := datasync(c.file); err != nil {
			c.lastError = err
			return 0, fmt.Errorf("failed to sync cache %q: %w", c.cfg.ID, err)
		}
	}

	c.unsynced = 0
	c.lastSync.Store(c.now().UnixNano())
	switch kind {
	case KindForced:
		c.forcedSyncs++
	case KindThreshold:
		c.thresholdSyncs++
	}
	if c.metrics != nil {
		c.metrics.RecordSync(c.cfg.ID, kind, n, time.Since(start))
	}

	logger.Debug("File cache synced",
		logger.KeyCacheID, c.cfg.ID,
		logger.KeyKind, kind,
		logger.KeyBytes, n)

	return n, nil
}

// Stats is a snapshot of cache counters.
type Stats struct {
	ID             string
	Path           string
	BytesWritten   int64
	Pending        int64
	ForcedSyncs    uint64
	ThresholdSyncs uint64
	LastSync       time.Time
	LastError      string
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		ID:             c.cfg.ID,
		Path:           c.cfg.Path,
		BytesWritten:   c.bytesWritten,
		Pending:        c.pending.Load(),
		ForcedSyncs:    c.forcedSyncs,
		ThresholdSyncs: c.thresholdSyncs,
		LastSync:       time.Unix(0, c.lastSync.Load()),
	}
	if c.lastError != nil {
		s.LastError = c.lastError.Error()
	}
	return s
}
