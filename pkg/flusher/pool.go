package flusher

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/flushwatch/internal/logger"
)

// syncPool runs syncer tasks on a fixed set of workers.
//
// The queue capacity equals the worker count equals the number of handles.
// Because a handle is only queued while its in-flight flag is set, the queue
// can never overflow; submit still refuses rather than blocks the watcher.
type syncPool struct {
	run func(ctx context.Context, e *entry)

	queue chan *entry

	workers   int
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancelled bool
	pending   int
	completed int
}

func newSyncPool(workers int, run func(ctx context.Context, e *entry)) *syncPool {
	return &syncPool{
		run:       run,
		queue:     make(chan *entry, workers),
		workers:   workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the workers. Calls after the first are ignored.
func (p *syncPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Stop tells the workers to finish queued tasks and exit, waiting up to
// timeout for them.
func (p *syncPool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.stopCh)

	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()

	select {
	case <-p.stoppedCh:
		return nil
	case <-timer.C:
		logger.Warn("Force sync workers did not stop in time", logger.KeyPending, p.Pending())
		return ErrStopTimeout
	}
}

// submit queues e without blocking. It returns false when the pool is
// stopped, its context is gone, or the queue is full.
func (p *syncPool) submit(e *entry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.cancelled {
		return false
	}

	select {
	case p.queue <- e:
		p.pending++
		return true
	default:
		return false
	}
}

// Pending returns the number of queued or running tasks.
func (p *syncPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Completed returns the number of tasks that have finished.
func (p *syncPool) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

func (p *syncPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return

		case <-ctx.Done():
			p.mu.Lock()
			p.cancelled = true
			p.mu.Unlock()
			p.discard()
			return

		case e := <-p.queue:
			p.process(ctx, e)
		}
	}
}

// drain runs the tasks still queued at shutdown.
func (p *syncPool) drain(ctx context.Context) {
	for {
		select {
		case e := <-p.queue:
			p.process(ctx, e)
		default:
			return
		}
	}
}

// discard drops queued tasks once the parent context is gone. Tasks queued
// before cancelled was set are still in the channel when it runs.
func (p *syncPool) discard() {
	for {
		select {
		case e := <-p.queue:
			e.inFlight.Store(false)
			p.done()
		default:
			return
		}
	}
}

func (p *syncPool) process(ctx context.Context, e *entry) {
	defer p.done()
	p.run(ctx, e)
}

func (p *syncPool) done() {
	p.mu.Lock()
	p.pending--
	p.completed++
	p.mu.Unlock()
}
