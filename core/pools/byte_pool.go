// Package pools recycles the byte buffers a connection needs for reading
// requests and serializing responses.
package pools

import (
	"sync"
	"sync/atomic"
)

// BytePool is a multi-tiered byte slice pool for different size classes
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets      atomic.Uint64
	puts      atomic.Uint64
	oversized atomic.Uint64
}

// BytePoolStats is a snapshot of pool usage
type BytePoolStats struct {
	Gets      uint64 `json:"gets"`
	Puts      uint64 `json:"puts"`
	Oversized uint64 `json:"oversized"` // requests larger than the biggest tier
}

// Buffer sizes for HTTP/1.x workloads. 1024 matches the default read chunk.
var defaultSizes = []int{
	512,   // small responses
	1024,  // read chunks
	4096,  // request heads
	16384, // large bodies
}

// NewBytePool creates a byte pool with the default size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers. sizes must
// be ascending.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of length size
func (bp *BytePool) Get(size int) []byte {
	bp.gets.Add(1)

	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			buf := *bp.pools[i].Get().(*[]byte)
			return buf[:size]
		}
	}

	// Size too large, allocate directly
	bp.oversized.Add(1)
	return make([]byte, size)
}

// Put returns a byte slice to the pool. Slices that did not come from the
// pool are left to the GC.
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)

	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			bp.puts.Add(1)
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}
}

// Stats returns a usage snapshot
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Gets:      bp.gets.Load(),
		Puts:      bp.puts.Load(),
		Oversized: bp.oversized.Load(),
	}
}
