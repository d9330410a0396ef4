package engine

import (
	"io"
	"net"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/internal/insight"
)

// netConnEngine adapts any blocking net.Conn to the Engine interface. It
// never returns ErrUnreadable/ErrUnwritable: a net.Conn's Read/Write already
// block until progress is possible, so a stream.Stream wrapping this engine
// simply never retries. Useful for engine-contract tests run over an
// in-process pipe (net.Pipe) instead of a real socket,
// and for any transport reachable only through net.Conn (e.g. a Unix domain
// socket or TLS-less named pipe) that still needs to participate in the
// Upgrade/Downgrade chain.
type netConnEngine struct {
	conn net.Conn
}

// FromNetConn wraps conn as an Engine with no native handle to wait on.
func FromNetConn(conn net.Conn) Engine {
	return &netConnEngine{conn: conn}
}

func (e *netConnEngine) Shutdown() error {
	if cw, ok := e.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return e.conn.Close()
}

func (e *netConnEngine) HardClose() error { return e.conn.Close() }

func (e *netConnEngine) ReadSome(view chunk.WriteView) (int, error) {
	n, err := e.conn.Read(view.Data())
	if err != nil {
		if err == io.EOF {
			return n, nil
		}
		return n, insight.Wrap(err, insight.Runtime, "net-conn-read-error")
	}
	return n, nil
}

func (e *netConnEngine) WriteSome(view chunk.ReadView) (int, error) {
	n, err := e.conn.Write(view.Data())
	if err != nil {
		return n, insight.Wrap(err, insight.Runtime, "net-conn-write-error")
	}
	return n, nil
}

func (e *netConnEngine) ReadSomeBulk(views *chunk.BulkWriteView) (int, error) {
	head := views.Head()
	if head.Size() == 0 {
		return 0, nil
	}
	return e.ReadSome(head)
}

func (e *netConnEngine) WriteSomeBulk(views *chunk.BulkReadView) (int, error) {
	head := views.Head()
	if head.Size() == 0 {
		return 0, nil
	}
	return e.WriteSome(head)
}

func (e *netConnEngine) Downgrade() (Engine, error) {
	return nil, insight.New(insight.Runtime, "net-conn-bad-downgrade-error")
}

func (e *netConnEngine) Underlying() Engine { return nil }

func (e *netConnEngine) NativeHandle() NativeHandle { return Invalid }
