// Package buffer implements the warm/cold growable byte buffer used to
// stage reads and writes across a stream: bytes already produced by a read
// but not yet consumed by the caller sit in the "warm" region; unused
// capacity past them is the "cold" region a future read grows into.
//
// The type and its Reserve growth policy are ported line-for-line from
// up0/up_buffer.cpp, substituting Go's slice/copy/append primitives for the
// original's realloc/memmove/memcpy core management.
package buffer

import "github.com/nosid-go/upstream/internal/insight"

// Buffer holds a contiguous backing array split into a warm region
// [warmPos, coldPos) of bytes ready to be consumed, and a cold region
// [coldPos, len(core)) of free capacity ready to be produced into.
type Buffer struct {
	core    []byte
	warmPos int
	coldPos int
}

// New returns an empty Buffer.
func New() *Buffer { return &Buffer{} }

// NewFrom copies data into a freshly allocated Buffer, entirely warm.
func NewFrom(data []byte) *Buffer {
	b := &Buffer{}
	if len(data) > 0 {
		b.core = make([]byte, len(data))
		copy(b.core, data)
		b.coldPos = len(data)
	}
	return b
}

// Warm returns the bytes produced but not yet consumed.
func (b *Buffer) Warm() []byte { return b.core[b.warmPos:b.coldPos] }

// Available returns the number of warm bytes.
func (b *Buffer) Available() int { return b.coldPos - b.warmPos }

// Consume advances the warm region's start by n bytes, as a reader drains
// them. It returns an out-of-range Fault if n overruns the warm region, and a
// runtime Fault if the buffer has no backing array yet and n > 0.
func (b *Buffer) Consume(n int) error {
	if b.core == nil && n > 0 {
		return insight.New(insight.Runtime, "buffer-consume-null").With("n", n)
	}
	pos := b.warmPos + n
	if pos > b.coldPos {
		return insight.New(insight.OutOfRange, "buffer-consume-overflow").
			With("warm_pos", b.warmPos).With("cold_pos", b.coldPos).With("n", n)
	}
	b.warmPos = pos
	return nil
}

// Cold returns the free capacity available to produce into.
func (b *Buffer) Cold() []byte { return b.core[b.coldPos:len(b.core)] }

// Capacity returns the size of the free cold region.
func (b *Buffer) Capacity() int { return len(b.core) - b.coldPos }

// Produce advances the cold region's start by n bytes, as a write fills
// them. It returns an out-of-range Fault if n overruns the cold region, and a
// runtime Fault if the buffer has no backing array yet and n > 0.
func (b *Buffer) Produce(n int) error {
	if b.core == nil && n > 0 {
		return insight.New(insight.Runtime, "buffer-produce-null").With("n", n)
	}
	pos := b.coldPos + n
	if pos > len(b.core) {
		return insight.New(insight.OutOfRange, "buffer-produce-overflow").
			With("cold_pos", b.coldPos).With("size", len(b.core)).With("n", n)
	}
	b.coldPos = pos
	return nil
}

func moveToFront(core []byte, warmPos, coldPos int) (newCore []byte, newCold int) {
	n := copy(core, core[warmPos:coldPos])
	return core, n
}

// Reserve grows the buffer so that at least requiredColdSize bytes of cold
// capacity are available, choosing among five strategies exactly as
// up_buffer.cpp's reserve(size_type) does:
//
//  1. no backing array yet: allocate max(requiredColdSize, 32) bytes.
//  2. warm bytes are non-empty and cold capacity already suffices: no-op,
//     since the warm area might get consumed before space runs out.
//  3. moving the warm bytes to the front of the array frees enough room:
//     do that, since it moves at most half of the backing array.
//  4. the total size is small, or moving still wouldn't help realloc, or
//     the arithmetic would overflow: allocate a fresh array and copy the
//     warm bytes to its front.
//  5. otherwise: grow the existing array in place, keeping the warm bytes'
//     current offset (a realloc in C++ can remap pages instead of copying;
//     Go approximates this the same way its append growth would).
func (b *Buffer) Reserve(requiredColdSize int) *Buffer {
	biasSize := b.warmPos
	warmSize := b.coldPos - b.warmPos
	coldSize := len(b.core) - b.coldPos
	freeSize := biasSize + coldSize
	requiredSize := warmSize + requiredColdSize

	switch {
	case b.core == nil:
		size := requiredColdSize
		if size < 32 {
			size = 32
		}
		b.core = make([]byte, size)
		b.warmPos, b.coldPos = 0, 0

	case warmSize != 0 && coldSize >= requiredColdSize:
		// sufficient space already available; do nothing

	case freeSize >= requiredColdSize && freeSize >= warmSize:
		core, newCold := moveToFront(b.core, b.warmPos, b.coldPos)
		b.core = core
		b.warmPos = 0
		b.coldPos = newCold

	case freeSize+warmSize < (1<<16) || freeSize >= warmSize || biasSize+requiredSize < biasSize:
		size := requiredSize + warmSize/2 + coldSize
		if size < requiredSize {
			size = requiredSize
		}
		fresh := make([]byte, size)
		copy(fresh, b.core[biasSize:biasSize+warmSize])
		b.core = fresh
		b.warmPos = 0
		b.coldPos = warmSize

	default:
		size := biasSize + requiredSize + warmSize/2 + coldSize
		if size < biasSize+requiredSize {
			size = biasSize + requiredSize
		}
		fresh := make([]byte, size)
		copy(fresh, b.core)
		b.core = fresh
		// warmPos/coldPos unchanged: data keeps its current offset.
	}
	return b
}
