package tlsstream

import (
	"context"
	"crypto/tls"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/internal/ulog"
	"github.com/nosid-go/upstream/patience"
	streampkg "github.com/nosid-go/upstream/stream"
)

// tlsEngine decorates an inner engine.Engine with TLS, the Go counterpart of
// up_tls.hpp's tls_stream engine. Unlike the original's bio_adapter, which
// lets ErrUnreadable/ErrUnwritable propagate straight through to its own
// read_some/write_some, crypto/tls's net.Conn has no such contract, so
// tlsEngine resolves every wait against one patience.Patience bound for its
// entire lifetime, via the netConn adapter; see conn_adapter.go.
//
// ReadSome/WriteSome on this engine therefore never themselves return
// ErrUnreadable/ErrUnwritable: by the time control returns to the owning
// stream.Stream's own retry loop, the wait has already happened inside the
// handshake or the read/write call. A stream wrapping a tlsEngine still
// works correctly, it simply never needs to retry.
type tlsEngine struct {
	inner  engine.Engine
	conn   *tls.Conn
	sentry *sentry
}

// MakeClientEngine performs a synchronous TLS client handshake over inner,
// verifying the peer against cfg and presenting serverName via SNI,
// mirroring tls::context::upgrade for a client-side tls_stream.
func MakeClientEngine(inner engine.Engine, awaiting patience.Patience, cfg *tls.Config, serverName string) (engine.Engine, error) {
	clientCfg := cfg.Clone()
	if serverName != "" {
		clientCfg.ServerName = serverName
	}
	s, err := streampkg.New(inner)
	if err != nil {
		return nil, err
	}
	nc := newNetConn(s, awaiting)
	conn := tls.Client(nc, clientCfg)
	if err := conn.HandshakeContext(context.Background()); err != nil {
		ulog.Errorf(serverName, "tls client handshake failed: %s", err)
		return nil, insight.Wrap(err, insight.Runtime, "tls-client-handshake-error")
	}
	return &tlsEngine{inner: inner, conn: conn, sentry: newSentry()}, nil
}

// MakeServerEngine performs a synchronous TLS server handshake over inner,
// mirroring tls::context::upgrade for a server-side tls_stream. cfg's
// GetConfigForClient (if set) resolves SNI-dependent identities.
func MakeServerEngine(inner engine.Engine, awaiting patience.Patience, cfg *tls.Config) (engine.Engine, error) {
	s, err := streampkg.New(inner)
	if err != nil {
		return nil, err
	}
	nc := newNetConn(s, awaiting)
	conn := tls.Server(nc, cfg)
	if err := conn.HandshakeContext(context.Background()); err != nil {
		return nil, insight.Wrap(err, insight.Runtime, "tls-server-handshake-error")
	}
	return &tlsEngine{inner: inner, conn: conn, sentry: newSentry()}, nil
}

func (e *tlsEngine) Shutdown() error {
	if err := e.sentry.enter(stateGood, stateShutdownInProgress); err != nil {
		return err
	}
	err := e.conn.CloseWrite()
	if err != nil {
		e.sentry.leave(stateBad)
		return insight.Wrap(err, insight.Runtime, "tls-shutdown-error")
	}
	e.sentry.leave(stateShutdownCompleted)
	return nil
}

func (e *tlsEngine) HardClose() error {
	_ = e.conn.Close()
	return e.inner.HardClose()
}

func (e *tlsEngine) ReadSome(view chunk.WriteView) (int, error) {
	if err := e.sentry.enter(stateGood, stateReadInProgress); err != nil {
		if insight.Has(err, insight.AlreadyShutdown) {
			return 0, nil
		}
		return 0, err
	}
	n, err := e.conn.Read(view.Data())
	if err != nil {
		e.sentry.leave(stateBad)
		return n, insight.Wrap(err, insight.Runtime, "tls-read-error")
	}
	e.sentry.leave(stateGood)
	return n, nil
}

func (e *tlsEngine) WriteSome(view chunk.ReadView) (int, error) {
	if err := e.sentry.enter(stateGood, stateWriteInProgress); err != nil {
		return 0, err
	}
	n, err := e.conn.Write(view.Data())
	if err != nil {
		e.sentry.leave(stateBad)
		return n, insight.Wrap(err, insight.Runtime, "tls-write-error")
	}
	e.sentry.leave(stateGood)
	return n, nil
}

// ReadSomeBulk delegates to the first chunk carrying undrained bytes; TLS
// records have no scatter/gather equivalent, so bulk reads over a tlsEngine
// only ever make progress one chunk at a time, mirroring tls_stream's own
// bulk read_some.
func (e *tlsEngine) ReadSomeBulk(views *chunk.BulkWriteView) (int, error) {
	head := views.Head()
	if head.Size() == 0 {
		return 0, nil
	}
	return e.ReadSome(head)
}

// WriteSomeBulk is the gather-side counterpart of ReadSomeBulk.
func (e *tlsEngine) WriteSomeBulk(views *chunk.BulkReadView) (int, error) {
	head := views.Head()
	if head.Size() == 0 {
		return 0, nil
	}
	return e.WriteSome(head)
}

// Downgrade peels the TLS layer back to the plain engine beneath it,
// requiring a prior clean Shutdown, mirroring tls_stream::downgrade.
func (e *tlsEngine) Downgrade() (engine.Engine, error) {
	if s := e.sentry.snapshot(); s != stateShutdownCompleted {
		return nil, insight.New(insight.Runtime, "tls-downgrade-not-shutdown-error").With("state", s)
	}
	return e.inner, nil
}

func (e *tlsEngine) Underlying() engine.Engine { return e.inner }

func (e *tlsEngine) NativeHandle() engine.NativeHandle { return e.inner.NativeHandle() }

// ConnectionState exposes the negotiated TLS session details (peer
// certificates, cipher suite, negotiated protocol), for callers that need
// to inspect the handshake result.
func (e *tlsEngine) ConnectionState() tls.ConnectionState {
	return e.conn.ConnectionState()
}
