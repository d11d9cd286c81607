// Package bufpool recycles the byte slices that carry queued write units.
//
// Slices come from three size classes. Requests above the largest class are
// allocated directly and never pooled, so an occasional huge write does not
// pin memory.
//
//	buf := bufpool.Get(len(p))
//	copy(buf, p)
//	// ... hand buf to the consumer, which calls bufpool.Put(buf) ...
package bufpool

import "sync"

const (
	SmallSize  = 512
	MediumSize = 8 << 10
	LargeSize  = 64 << 10
)

// Pool is a set of size-classed slice pools.
type Pool struct {
	classes [3]class
}

type class struct {
	size int
	pool sync.Pool
}

// NewPool creates a pool with the given class sizes, smallest first.
// Non-positive sizes fall back to the package defaults.
func NewPool(small, medium, large int) *Pool {
	sizes := [3]int{small, medium, large}
	defaults := [3]int{SmallSize, MediumSize, LargeSize}

	p := &Pool{}
	for i := range p.classes {
		size := sizes[i]
		if size <= 0 {
			size = defaults[i]
		}
		c := &p.classes[i]
		c.size = size
		c.pool.New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

// Get returns a slice of length size. Its capacity may be larger.
func (p *Pool) Get(size int) []byte {
	for i := range p.classes {
		c := &p.classes[i]
		if size <= c.size {
			buf := *(c.pool.Get().(*[]byte))
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf for reuse. Slices that did not come from a class are
// dropped. buf must not be used afterwards.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	for i := range p.classes {
		c := &p.classes[i]
		if cap(buf) == c.size {
			full := buf[:c.size]
			c.pool.Put(&full)
			return
		}
	}
}

var global = NewPool(0, 0, 0)

// Get returns a slice of length size from the shared pool.
func Get(size int) []byte { return global.Get(size) }

// Put returns buf to the shared pool.
func Put(buf []byte) { global.Put(buf) }
