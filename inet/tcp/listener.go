package tcp

import (
	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/internal/ulog"
	"github.com/nosid-go/upstream/patience"
)

// Listener is a bound, listening TCP socket. It is the Go counterpart of
// tcp::listener.
type Listener struct {
	fd       int
	endpoint Endpoint
}

// Endpoint returns the address the listener is bound to.
func (l *Listener) Endpoint() Endpoint { return l.endpoint }

// Close releases the listening socket.
func (l *Listener) Close() error {
	if l.fd == -1 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	return unix.Close(fd)
}

// Accept waits for and accepts one incoming connection, mirroring
// tcp::listener::accept. Only the first EAGAIN/EWOULDBLOCK triggers a wait;
// a second one is treated as an unexpected accept error, matching the
// original's single-wait-then-fail loop.
func (l *Listener) Accept(awaiting patience.Patience) (*Connection, error) {
	waited := false
	for {
		nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == nil {
			if serr := unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); serr != nil {
				unix.Close(nfd)
				return nil, insight.Wrap(serr, insight.Runtime, "network-socket-option-error").With("option", "nodelay")
			}
			remote, rerr := fromSockaddr(sa)
			if rerr != nil {
				unix.Close(nfd)
				return nil, rerr
			}
			return newConnection(&connEngine{fd: nfd, remote: remote})
		}
		if !waited && (err == unix.EAGAIN || err == unix.EWOULDBLOCK) {
			if werr := awaiting.Wait(engine.NativeHandle(l.fd), patience.Read); werr != nil {
				return nil, werr
			}
			waited = true
			continue
		}
		if err == unix.EINTR {
			continue
		}
		ulog.Errorf(l.endpoint, "accept failed: %s", err)
		return nil, insight.Wrap(err, insight.Runtime, "tcp-listener-accept-error").With("endpoint", l.endpoint.String())
	}
}
