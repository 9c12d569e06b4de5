// Package bufpool pools the fixed-size scratch buffers the pipeline
// allocates on every fragment/replica: 12-byte GCM nonces, 32-byte
// AES-256 keys and SHA-256 digests, and 64KB+ fragment/ciphertext
// buffers. Adapted from the gateway's per-chunk buffer pool
// (internal/crypto/buffer_pool.go), narrowed to the three sizes
// keyderiv/fragment/producer/consumer actually allocate.
package bufpool

import (
	"sync"
	"sync/atomic"
)

const chunkBufSize = 64*1024 + 128

// Pool is a set of sync.Pool-backed buffer pools, one per fixed size.
type Pool struct {
	pool12  sync.Pool
	pool32  sync.Pool
	pool64K sync.Pool

	hits12, misses12   int64
	hits32, misses32   int64
	hits64K, misses64K int64
}

// Global is the package-level pool shared by keyderiv, fragment,
// producer, and consumer.
var Global = New()

// New creates an empty Pool.
func New() *Pool {
	p := &Pool{}
	p.pool12.New = func() any { return make([]byte, 12) }
	p.pool32.New = func() any { return make([]byte, 32) }
	p.pool64K.New = func() any { return make([]byte, chunkBufSize) }
	return p
}

// Get12 returns a zeroed 12-byte buffer (a GCM nonce).
func (p *Pool) Get12() []byte {
	buf := p.pool12.Get().([]byte)
	atomic.AddInt64(&p.hits12, 1)
	return buf
}

// Put12 returns a 12-byte buffer to the pool after zeroizing it.
func (p *Pool) Put12(buf []byte) {
	if cap(buf) != 12 {
		return
	}
	zero(buf)
	p.pool12.Put(buf[:12])
}

// Get32 returns a zeroed 32-byte buffer (an AES-256 key or a SHA-256
// digest).
func (p *Pool) Get32() []byte {
	buf := p.pool32.Get().([]byte)
	atomic.AddInt64(&p.hits32, 1)
	return buf
}

// Put32 returns a 32-byte buffer to the pool after zeroizing it.
func (p *Pool) Put32(buf []byte) {
	if cap(buf) != 32 {
		return
	}
	zero(buf)
	p.pool32.Put(buf[:32])
}

// Get64K returns a buffer of at least size bytes, drawn from the 64KB
// pool when size fits and falling back to a fresh allocation otherwise.
func (p *Pool) Get64K(size int) []byte {
	if size > chunkBufSize {
		atomic.AddInt64(&p.misses64K, 1)
		return make([]byte, size)
	}
	buf := p.pool64K.Get().([]byte)
	atomic.AddInt64(&p.hits64K, 1)
	if cap(buf) < size {
		return make([]byte, size, chunkBufSize)
	}
	return buf[:size]
}

// Put64K returns a buffer to the pool after zeroizing it, provided it
// has at least chunk-buffer capacity; smaller buffers are left to the GC.
func (p *Pool) Put64K(buf []byte) {
	if cap(buf) < chunkBufSize {
		return
	}
	full := buf[:cap(buf)]
	zero(full)
	p.pool64K.Put(full)
}

// Metrics reports pool hit/miss counters, useful for sizing pool
// capacity under load.
type Metrics struct {
	Hits12, Misses12   int64
	Hits32, Misses32   int64
	Hits64K, Misses64K int64
}

func (p *Pool) Metrics() Metrics {
	return Metrics{
		Hits12:    atomic.LoadInt64(&p.hits12),
		Misses12:  atomic.LoadInt64(&p.misses12),
		Hits32:    atomic.LoadInt64(&p.hits32),
		Misses32:  atomic.LoadInt64(&p.misses32),
		Hits64K:   atomic.LoadInt64(&p.hits64K),
		Misses64K: atomic.LoadInt64(&p.misses64K),
	}
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
