// Package stream wraps a single engine.Engine with the retry loop that
// turns its ErrUnreadable/ErrUnwritable transient signals into actual
// waiting, so callers see a plain synchronous read/write API. It is the Go
// counterpart of up_stream.hpp/up_stream.cpp's stream class.
package stream

import (
	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/internal/ulog"
	"github.com/nosid-go/upstream/patience"
)

// Stream drives one engine.Engine, retrying its operations against a
// patience.Patience whenever the engine asks the caller to wait.
type Stream struct {
	engine engine.Engine
}

// New wraps engine in a Stream. engine must be non-nil.
func New(e engine.Engine) (*Stream, error) {
	if e == nil {
		return nil, insight.New(insight.Runtime, "invalid-stream-engine-state")
	}
	return &Stream{engine: e}, nil
}

// blocking retries fn against s.engine until it returns a value other than
// ErrUnreadable/ErrUnwritable, waiting on the corresponding readiness in
// between, mirroring up_stream.cpp's anonymous `blocking` functor.
func blocking[T any](e engine.Engine, awaiting patience.Patience, fn func() (T, error)) (T, error) {
	for {
		v, err := fn()
		switch {
		case err == nil:
			return v, nil
		case insight.Has(err, insight.Unreadable):
			if werr := awaiting.Wait(e.NativeHandle(), patience.Read); werr != nil {
				var zero T
				return zero, werr
			}
		case insight.Has(err, insight.Unwritable):
			if werr := awaiting.Wait(e.NativeHandle(), patience.Write); werr != nil {
				var zero T
				return zero, werr
			}
		default:
			var zero T
			return zero, err
		}
	}
}

// Shutdown sends a graceful half-close through the engine.
func (s *Stream) Shutdown(awaiting patience.Patience) error {
	_, err := blocking(s.engine, awaiting, func() (struct{}, error) {
		return struct{}{}, s.engine.Shutdown()
	})
	return err
}

// GracefulClose shuts the stream down, then reads one byte expecting EOF,
// before hard-closing the descriptor. Seeing a byte after shutdown means the
// peer kept writing after this side's half-close, which this treats as a
// protocol error rather than silently discarding the data; the descriptor
// is then left open.
func (s *Stream) GracefulClose(awaiting patience.Patience) error {
	if err := s.Shutdown(awaiting); err != nil {
		return err
	}
	var c [1]byte
	for {
		n, err := blocking(s.engine, awaiting, func() (int, error) {
			return s.engine.ReadSome(chunk.Into(c[:]))
		})
		if err != nil {
			return err
		}
		if n != 0 {
			ulog.Errorf(s.engine.NativeHandle(), "peer kept writing after shutdown")
			return insight.New(insight.Runtime, "stream-graceful-close-error").
				With("handle", s.engine.NativeHandle())
		}
		break
	}
	return s.engine.HardClose()
}

// ReadSome fills as much of view as one retried read can.
func (s *Stream) ReadSome(view chunk.WriteView, awaiting patience.Patience) (int, error) {
	return blocking(s.engine, awaiting, func() (int, error) {
		return s.engine.ReadSome(view)
	})
}

// WriteSome writes as much of view as one retried write can.
func (s *Stream) WriteSome(view chunk.ReadView, awaiting patience.Patience) (int, error) {
	return blocking(s.engine, awaiting, func() (int, error) {
		return s.engine.WriteSome(view)
	})
}

// ReadSomeBulk is the scatter/gather form of ReadSome.
func (s *Stream) ReadSomeBulk(views *chunk.BulkWriteView, awaiting patience.Patience) (int, error) {
	return blocking(s.engine, awaiting, func() (int, error) {
		return s.engine.ReadSomeBulk(views)
	})
}

// WriteSomeBulk is the scatter/gather form of WriteSome.
func (s *Stream) WriteSomeBulk(views *chunk.BulkReadView, awaiting patience.Patience) (int, error) {
	return blocking(s.engine, awaiting, func() (int, error) {
		return s.engine.WriteSomeBulk(views)
	})
}

// WriteAll repeatedly calls WriteSome, draining view, until every byte has
// been written. A do-while shape (write at least once, even of an empty
// view) matches WriteSome's own behavior for the zero-length case.
func (s *Stream) WriteAll(view chunk.ReadView, awaiting patience.Patience) error {
	for {
		n, err := s.WriteSome(view, awaiting)
		if err != nil {
			return err
		}
		view.Drain(n)
		if view.Size() == 0 {
			return nil
		}
	}
}

// WriteAllBulk is the scatter/gather form of WriteAll.
func (s *Stream) WriteAllBulk(views *chunk.BulkReadView, awaiting patience.Patience) error {
	for {
		n, err := s.WriteSomeBulk(views, awaiting)
		if err != nil {
			return err
		}
		views.Drain(n)
		if views.Total() == 0 {
			return nil
		}
	}
}

// Upgrade replaces the wrapped engine with transform's result, e.g. wrapping
// a plain TCP engine in a TLS engine.
func (s *Stream) Upgrade(transform func(engine.Engine) (engine.Engine, error)) error {
	next, err := transform(s.engine)
	if err != nil {
		return err
	}
	s.engine = next
	return nil
}

// Downgrade replaces the wrapped engine with its own Underlying engine,
// e.g. peeling TLS back to plain TCP.
func (s *Stream) Downgrade(awaiting patience.Patience) error {
	next, err := blocking(s.engine, awaiting, func() (engine.Engine, error) {
		return s.engine.Downgrade()
	})
	if err != nil {
		return err
	}
	s.engine = next
	return nil
}

// Underlying exposes the engine one layer beneath the current one, or nil
// if there is none.
func (s *Stream) Underlying() engine.Engine {
	return s.engine.Underlying()
}

// Engine exposes the currently wrapped engine, primarily for tests and for
// code that needs to inspect transport-specific details (e.g. a TLS
// engine's peer certificate).
func (s *Stream) Engine() engine.Engine {
	return s.engine
}
