// Package engine defines the polymorphic transport abstraction that a
// stream retries against: something that can be shut down, closed, read
// from and written to in terms of chunk views, and optionally downgraded to
// an inner engine (TLS peeling back to plain TCP).
//
// It is the Go counterpart of up_stream.hpp's stream::engine. Two sentinel
// faults, ErrUnreadable and ErrUnwritable, stand in for the original's
// engine::unreadable/unwritable marker exceptions: an engine returns one of
// these instead of a byte count when the caller must wait for readiness and
// retry, and a stream's retry loop is the only place they are ever allowed
// to surface from.
package engine

import (
	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/internal/insight"
)

// NativeHandle is the OS-level descriptor backing an engine, exposed so a
// patience can wait on it with poll/ppoll.
type NativeHandle int

// Invalid is returned by engines with no underlying descriptor to wait on.
const Invalid NativeHandle = -1

// ErrUnreadable signals that a read could not complete without blocking;
// the caller should wait for the handle to become readable and retry.
var ErrUnreadable = insight.New(insight.Unreadable, "engine-unreadable")

// ErrUnwritable signals that a write could not complete without blocking;
// the caller should wait for the handle to become writable and retry.
var ErrUnwritable = insight.New(insight.Unwritable, "engine-unwritable")

// Engine is a single transport layer: a bare TCP connection, or a TLS
// session decorating one. Every operation is synchronous from the caller's
// point of view; ErrUnreadable/ErrUnwritable are the only signal an engine
// ever uses to ask for a retry.
type Engine interface {
	// Shutdown sends a graceful half-close (e.g. TCP FIN / TLS close_notify)
	// without releasing the underlying descriptor.
	Shutdown() error
	// HardClose releases the underlying descriptor immediately, without a
	// graceful protocol-level shutdown.
	HardClose() error
	// ReadSome fills as much of chunk as one read call can, returning the
	// number of bytes read.
	ReadSome(chunk chunk.WriteView) (int, error)
	// WriteSome writes as much of chunk as one write call can, returning the
	// number of bytes written.
	WriteSome(chunk chunk.ReadView) (int, error)
	// ReadSomeBulk is the scatter/gather form of ReadSome.
	ReadSomeBulk(chunks *chunk.BulkWriteView) (int, error)
	// WriteSomeBulk is the scatter/gather form of WriteSome.
	WriteSomeBulk(chunks *chunk.BulkReadView) (int, error)
	// Downgrade peels off this engine's own layer (e.g. TLS) and returns the
	// engine it was decorating. It fails if there is no inner engine to
	// return to, as with a bare TCP connection.
	Downgrade() (Engine, error)
	// Underlying returns the engine this one decorates, or nil for a bare
	// transport with nothing underneath.
	Underlying() Engine
	// NativeHandle returns the descriptor a patience should wait on.
	NativeHandle() NativeHandle
}
