package tlsstream

import (
	"io"
	"net"
	"time"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/patience"
	streampkg "github.com/nosid-go/upstream/stream"
)

// netConn implements net.Conn over a stream.Stream, resolving the
// underlying engine's ErrUnreadable/ErrUnwritable signals against a single
// patience.Patience fixed at construction time.
//
// This is where the original's bio_adapter lived: there, the BIO forwarded
// directly to the inner engine and let OpenSSL's own retry-flag protocol
// propagate ErrUnreadable/ErrUnwritable back out through the TLS engine's
// own read_some/write_some. crypto/tls offers no such non-blocking contract
// on the net.Conn it wraps, so the adapter instead resolves any wait
// immediately against one patience fixed for the lifetime of the TLS
// engine; see the tlsEngine doc in engine.go for the resulting behavior
// change.
type netConn struct {
	stream   *streampkg.Stream
	awaiting patience.Patience
}

func newNetConn(s *streampkg.Stream, awaiting patience.Patience) *netConn {
	return &netConn{stream: s, awaiting: awaiting}
}

func (c *netConn) Read(p []byte) (int, error) {
	view := chunk.Into(p)
	n, err := c.stream.ReadSome(view, c.awaiting)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *netConn) Write(p []byte) (int, error) {
	view := chunk.From(p)
	total := 0
	for view.Size() > 0 {
		n, err := c.stream.WriteSome(view, c.awaiting)
		if err != nil {
			return total, err
		}
		view.Drain(n)
		total += n
	}
	return total, nil
}

func (c *netConn) Close() error                      { return nil }
func (c *netConn) LocalAddr() net.Addr                { return tlsAddr{} }
func (c *netConn) RemoteAddr() net.Addr               { return tlsAddr{} }
func (c *netConn) SetDeadline(t time.Time) error      { return nil }
func (c *netConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *netConn) SetWriteDeadline(t time.Time) error { return nil }

type tlsAddr struct{}

func (tlsAddr) Network() string { return "tls" }
func (tlsAddr) String() string  { return "tls-engine" }
