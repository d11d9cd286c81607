package filecache

import "time"

// Metrics provides observability for file cache operations. Pass nil to
// skip collection.
type Metrics interface {
	// ObserveWrite records one write unit moved into the buffer.
	ObserveWrite(cacheID string, bytes int, duration time.Duration)

	// RecordSync records a flush of the given kind and the bytes it made
	// durable.
	RecordSync(cacheID, kind string, bytes int64, duration time.Duration)

	// SetQueueDepth records the number of queued write units.
	SetQueueDepth(cacheID string, depth int)
}
