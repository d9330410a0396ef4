// Package chunk provides the byte-range views passed to engines and
// streams for a single read or write: a plain single-buffer view (ReadView /
// WriteView) and a scatter/gather view over several buffers at once
// (BulkReadView / BulkWriteView), ported from up_chunk.hpp's chunk::into,
// chunk::from, into_bulk_t and from_bulk_t.
//
// A view never copies the bytes it refers to; Drain only moves the view's
// own cursor, the way the original's drain(size_t) shrinks a chunk in place
// rather than allocating.
package chunk

import "golang.org/x/sys/unix"

// WriteView is a destination buffer for a read: engines fill it and the
// caller observes how many bytes landed via Drain.
type WriteView struct {
	data []byte
}

// Into wraps data as a WriteView, mirroring chunk::into.
func Into(data []byte) WriteView { return WriteView{data: data} }

// Data returns the remaining undrained bytes.
func (v WriteView) Data() []byte { return v.data }

// Size returns the number of remaining undrained bytes.
func (v WriteView) Size() int { return len(v.data) }

// Drain removes n bytes from the front of the view, as if they had been
// filled by a read. Draining more than Size() leaves the view empty.
func (v *WriteView) Drain(n int) {
	if n > len(v.data) {
		n = len(v.data)
	}
	v.data = v.data[n:]
}

// ReadView is a source buffer for a write.
type ReadView struct {
	data []byte
}

// From wraps data as a ReadView, mirroring chunk::from.
func From(data []byte) ReadView { return ReadView{data: data} }

// Data returns the remaining undrained bytes.
func (v ReadView) Data() []byte { return v.data }

// Size returns the number of remaining undrained bytes.
func (v ReadView) Size() int { return len(v.data) }

// Drain removes n bytes from the front of the view, as if they had already
// been written out. Draining more than Size() leaves the view empty.
func (v *ReadView) Drain(n int) {
	if n > len(v.data) {
		n = len(v.data)
	}
	v.data = v.data[n:]
}

// BulkWriteView is a scatter view over several destination buffers, used by
// an engine's bulk read to fill more than one chunk per syscall.
type BulkWriteView struct {
	views []WriteView
}

// IntoBulk wraps several byte slices as a single scatter view, mirroring
// into_bulk_n.
func IntoBulk(buffers ...[]byte) *BulkWriteView {
	views := make([]WriteView, len(buffers))
	for i, b := range buffers {
		views[i] = Into(b)
	}
	return &BulkWriteView{views: views}
}

// Count returns the number of chunks still carrying undrained bytes.
func (v *BulkWriteView) Count() int {
	n := 0
	for _, c := range v.views {
		if c.Size() > 0 {
			n++
		}
	}
	return n
}

// Total returns the sum of undrained bytes across all chunks.
func (v *BulkWriteView) Total() int {
	n := 0
	for _, c := range v.views {
		n += c.Size()
	}
	return n
}

// Head returns the first chunk that still carries undrained bytes.
func (v *BulkWriteView) Head() WriteView {
	for _, c := range v.views {
		if c.Size() > 0 {
			return c
		}
	}
	return WriteView{}
}

// Drain removes n bytes from the front of the view, skipping across chunk
// boundaries the way from_bulk_t::drain does.
func (v *BulkWriteView) Drain(n int) {
	for i := range v.views {
		if n == 0 {
			break
		}
		c := v.views[i].Size()
		if c == 0 {
			continue
		}
		take := n
		if take > c {
			take = c
		}
		v.views[i].Drain(take)
		n -= take
	}
}

// Buffers returns the remaining undrained chunks as a readv-compatible
// scatter list, skipping already-drained entries.
func (v *BulkWriteView) Buffers() [][]byte {
	var out [][]byte
	for i := range v.views {
		if v.views[i].Size() > 0 {
			out = append(out, v.views[i].data)
		}
	}
	return out
}

// Iovecs returns the remaining chunks as a readv/writev-compatible scatter
// list, skipping already-drained entries, the way up_chunk.hpp's as<Type>()
// adapts a bulk view to a specific syscall's vector type.
func (v *BulkWriteView) Iovecs() []unix.Iovec {
	var out []unix.Iovec
	for i := range v.views {
		if v.views[i].Size() == 0 {
			continue
		}
		out = append(out, unix.Iovec{Base: &v.views[i].data[0]})
		out[len(out)-1].SetLen(v.views[i].Size())
	}
	return out
}

// BulkReadView is a gather view over several source buffers, used by an
// engine's bulk write to drain more than one chunk per syscall.
type BulkReadView struct {
	views []ReadView
}

// FromBulk wraps several byte slices as a single gather view, mirroring
// from_bulk_n.
func FromBulk(buffers ...[]byte) *BulkReadView {
	views := make([]ReadView, len(buffers))
	for i, b := range buffers {
		views[i] = From(b)
	}
	return &BulkReadView{views: views}
}

// Count returns the number of chunks still carrying undrained bytes.
func (v *BulkReadView) Count() int {
	n := 0
	for _, c := range v.views {
		if c.Size() > 0 {
			n++
		}
	}
	return n
}

// Total returns the sum of undrained bytes across all chunks.
func (v *BulkReadView) Total() int {
	n := 0
	for _, c := range v.views {
		n += c.Size()
	}
	return n
}

// Head returns the first chunk that still carries undrained bytes.
func (v *BulkReadView) Head() ReadView {
	for _, c := range v.views {
		if c.Size() > 0 {
			return c
		}
	}
	return ReadView{}
}

// Drain removes n bytes from the front of the view, skipping across chunk
// boundaries.
func (v *BulkReadView) Drain(n int) {
	for i := range v.views {
		if n == 0 {
			break
		}
		c := v.views[i].Size()
		if c == 0 {
			continue
		}
		take := n
		if take > c {
			take = c
		}
		v.views[i].Drain(take)
		n -= take
	}
}

// Buffers returns the remaining undrained chunks as a writev-compatible
// gather list, skipping already-drained entries.
func (v *BulkReadView) Buffers() [][]byte {
	var out [][]byte
	for i := range v.views {
		if v.views[i].Size() > 0 {
			out = append(out, v.views[i].data)
		}
	}
	return out
}

// Iovecs returns the remaining chunks as a readv/writev-compatible gather
// list, skipping already-drained entries.
func (v *BulkReadView) Iovecs() []unix.Iovec {
	var out []unix.Iovec
	for i := range v.views {
		if v.views[i].Size() == 0 {
			continue
		}
		out = append(out, unix.Iovec{Base: &v.views[i].data[0]})
		out[len(out)-1].SetLen(v.views[i].Size())
	}
	return out
}
