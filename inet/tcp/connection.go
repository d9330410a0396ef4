package tcp

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	streampkg "github.com/nosid-go/upstream/stream"
)

// QOSPriority selects one of the four DSCP assured-forwarding classes.
type QOSPriority uint8

const (
	QOSClass1 QOSPriority = iota
	QOSClass2
	QOSClass3
	QOSClass4
)

// QOSDrop selects the drop precedence within a QOSPriority class.
type QOSDrop uint8

const (
	QOSDropLow QOSDrop = iota
	QOSDropMedium
	QOSDropHigh
)

// dscpTable mirrors up_inet.cpp's dscp_table: rows are priority classes
// (low to high), columns are drop precedence (low to high).
var dscpTable = [4][3]int{
	{unix.IPTOS_DSCP_AF11, unix.IPTOS_DSCP_AF12, unix.IPTOS_DSCP_AF13},
	{unix.IPTOS_DSCP_AF21, unix.IPTOS_DSCP_AF22, unix.IPTOS_DSCP_AF23},
	{unix.IPTOS_DSCP_AF31, unix.IPTOS_DSCP_AF32, unix.IPTOS_DSCP_AF33},
	{unix.IPTOS_DSCP_AF41, unix.IPTOS_DSCP_AF42, unix.IPTOS_DSCP_AF43},
}

// connEngine is the engine.Engine backing a bare TCP connection: no
// Underlying/Downgrade, since there is nothing beneath plain TCP. It is the
// Go counterpart of tcp::connection::engine.
type connEngine struct {
	fd     int
	remote Endpoint
}

func (e *connEngine) Shutdown() error {
	// Only the sending half is ever shut down; for TCP, SHUT_RD has no
	// observable effect on the peer.
	if err := unix.Shutdown(e.fd, unix.SHUT_WR); err != nil {
		return insight.Wrap(err, insight.Runtime, "tcp-connection-shutdown-error").With("remote", e.remote.String())
	}
	return nil
}

func (e *connEngine) HardClose() error {
	if e.fd == -1 {
		return nil
	}
	fd := e.fd
	e.fd = -1
	if err := unix.Close(fd); err != nil {
		return insight.Wrap(err, insight.Runtime, "bad-close").With("fd", fd)
	}
	return nil
}

func classifyTransferErr(err error, unreadable bool) error {
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		if unreadable {
			return engine.ErrUnreadable
		}
		return engine.ErrUnwritable
	}
	if unreadable {
		return insight.Wrap(err, insight.Runtime, "tcp-connection-read-error")
	}
	return insight.Wrap(err, insight.Runtime, "tcp-connection-write-error")
}

func (e *connEngine) ReadSome(view chunk.WriteView) (int, error) {
	for {
		n, err := unix.Read(e.fd, view.Data())
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, classifyTransferErr(err, true)
	}
}

func (e *connEngine) WriteSome(view chunk.ReadView) (int, error) {
	for {
		n, err := unix.Write(e.fd, view.Data())
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, classifyTransferErr(err, false)
	}
}

func (e *connEngine) ReadSomeBulk(chunks *chunk.BulkWriteView) (int, error) {
	buffers := chunks.Buffers()
	if len(buffers) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Readv(e.fd, buffers)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, classifyTransferErr(err, true)
	}
}

func (e *connEngine) WriteSomeBulk(chunks *chunk.BulkReadView) (int, error) {
	buffers := chunks.Buffers()
	if len(buffers) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Writev(e.fd, buffers)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, classifyTransferErr(err, false)
	}
}

func (e *connEngine) Downgrade() (engine.Engine, error) {
	return nil, insight.New(insight.Runtime, "tcp-bad-downgrade-error")
}

func (e *connEngine) Underlying() engine.Engine { return nil }

func (e *connEngine) NativeHandle() engine.NativeHandle { return engine.NativeHandle(e.fd) }

func (e *connEngine) setsockoptInt(level, opt, value int) error {
	if err := unix.SetsockoptInt(e.fd, level, opt, value); err != nil {
		return insight.Wrap(err, insight.Runtime, "network-socket-option-error").
			With("fd", e.fd).With("level", level).With("option", opt)
	}
	return nil
}

// Connection is an established, bare TCP connection. It is the Go
// counterpart of tcp::connection.
type Connection struct {
	*streampkg.Stream
	engine *connEngine
}

func newConnection(e *connEngine) (*Connection, error) {
	s, err := streampkg.New(e)
	if err != nil {
		return nil, err
	}
	return &Connection{Stream: s, engine: e}, nil
}

// Local returns the connection's local endpoint.
func (c *Connection) Local() (Endpoint, error) {
	sa, err := unix.Getsockname(c.engine.fd)
	if err != nil {
		return Endpoint{}, insight.Wrap(err, insight.Runtime, "endpoint-identification-error")
	}
	return fromSockaddr(sa)
}

// Remote returns the connection's remote endpoint, as recorded when the
// connection was established.
func (c *Connection) Remote() Endpoint { return c.engine.remote }

// QOS sets the connection's DSCP marking from a priority class and drop
// precedence, mirroring tcp::connection::qos.
func (c *Connection) QOS(priority QOSPriority, drop QOSDrop) error {
	if int(priority) >= len(dscpTable) || int(drop) >= len(dscpTable[0]) {
		return insight.New(insight.OutOfRange, "dscp-index-out-of-range").With("priority", priority).With("drop", drop)
	}
	return c.engine.setsockoptInt(unix.IPPROTO_IP, unix.IP_TOS, dscpTable[priority][drop])
}

// Keepalive enables TCP keepalive probing with the given idle time, probe
// count and probe interval, mirroring tcp::connection::keepalive.
func (c *Connection) Keepalive(idle time.Duration, probes int, interval time.Duration) error {
	if err := c.engine.setsockoptInt(unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return err
	}
	if err := c.engine.setsockoptInt(unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(idle.Seconds())); err != nil {
		return err
	}
	if err := c.engine.setsockoptInt(unix.IPPROTO_TCP, unix.TCP_KEEPCNT, probes); err != nil {
		return err
	}
	return c.engine.setsockoptInt(unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(interval.Seconds()))
}

// IncomingCPU reports the CPU on which the kernel last processed an incoming
// packet for this connection (SO_INCOMING_CPU), mirroring
// tcp::connection::incoming_cpu.
func (c *Connection) IncomingCPU() (int, error) {
	n, err := unix.GetsockoptInt(c.engine.fd, unix.SOL_SOCKET, unix.SO_INCOMING_CPU)
	if err != nil {
		return 0, insight.Wrap(err, insight.Runtime, "query-network-socket-option-error")
	}
	return n, nil
}
