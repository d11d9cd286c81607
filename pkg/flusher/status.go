package flusher

import "time"

// CacheStatus is a point-in-time view of one scheduled cache.
type CacheStatus struct {
	ID            string
	FlushInterval time.Duration
	QueueEmpty    bool
	DueForSync    bool
	InFlight      bool
	LastDispatch  time.Time // zero when never dispatched
	Dispatches    uint64
	Failures      uint64
	Skipped       uint64
	LastError     string
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running      bool
	ScanInterval time.Duration
	Workers      int
	Pending      int
	Completed    int
	Fatal        string
	Caches       []CacheStatus
}

// Status reports the scheduler state and every cache in registration order.
// It queries each handle, so handles must allow concurrent observation.
func (m *Manager) Status() Status {
	s := Status{
		Running:      m.Running(),
		ScanInterval: m.scanInterval,
		Workers:      len(m.entries),
		Pending:      m.pool.Pending(),
		Completed:    m.pool.Completed(),
		Caches:       make([]CacheStatus, 0, len(m.entries)),
	}
	if err := m.Err(); err != nil {
		s.Fatal = err.Error()
	}

	for _, e := range m.entries {
		cs := CacheStatus{
			ID:            e.id,
			FlushInterval: e.handle.FlushInterval(),
			QueueEmpty:    e.handle.IsQueueEmpty(),
			DueForSync:    e.handle.DueForSync(),
			InFlight:      e.inFlight.Load(),
			Dispatches:    e.dispatches.Load(),
			Failures:      e.failures.Load(),
			Skipped:       e.skipped.Load(),
			LastError:     e.getLastError(),
		}
		if ns := e.lastDispatch.Load(); ns != 0 {
			cs.LastDispatch = time.Unix(0, ns)
		}
		s.Caches = append(s.Caches, cs)
	}
	return s
}
