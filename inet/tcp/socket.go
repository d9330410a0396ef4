package tcp

import (
	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/inet/ip"
	"github.com/nosid-go/upstream/inet/ipv4"
	"github.com/nosid-go/upstream/inet/ipv6"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/patience"
)

// Socket is a non-blocking TCP socket: either freshly created and unbound,
// or bound to a local Endpoint, not yet connected or listening. It is the
// Go counterpart of tcp::socket.
type Socket struct {
	fd       int
	endpoint Endpoint
}

func domainForVersion(version ip.Version) int {
	if version == ip.V6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

// New creates an unbound, non-blocking socket for the given IP version,
// mirroring tcp::socket::socket(ip::version).
func New(version ip.Version) (*Socket, error) {
	fd, err := unix.Socket(domainForVersion(version), unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, insight.Wrap(err, insight.Runtime, "tcp-socket-creation-error").With("version", version)
	}
	return &Socket{fd: fd, endpoint: Any}, nil
}

// Bind creates a non-blocking socket and binds it to endpoint with the
// given options, mirroring tcp::socket::socket(tcp::endpoint, options).
func Bind(endpoint Endpoint, options SocketOptions) (*Socket, error) {
	s, err := New(endpoint.Address.Version())
	if err != nil {
		return nil, err
	}
	if options.IsSet(ReuseAddr) {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(s.fd)
			return nil, insight.Wrap(err, insight.Runtime, "network-socket-option-error").With("option", "reuseaddr")
		}
	}
	if options.IsSet(ReusePort) {
		if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			unix.Close(s.fd)
			return nil, insight.Wrap(err, insight.Runtime, "network-socket-option-error").With("option", "reuseport")
		}
	}
	if options.IsSet(FreeBind) {
		if err := unix.SetsockoptInt(s.fd, unix.IPPROTO_IP, unix.IP_FREEBIND, 1); err != nil {
			unix.Close(s.fd)
			return nil, insight.Wrap(err, insight.Runtime, "network-socket-option-error").With("option", "freebind")
		}
	}
	if endpoint.Address.Version() == ip.V6 {
		if err := unix.SetsockoptInt(s.fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			unix.Close(s.fd)
			return nil, insight.Wrap(err, insight.Runtime, "network-socket-option-error").With("option", "v6only")
		}
	}
	sa := toSockaddr(endpoint)
	if err := unix.Bind(s.fd, sa); err != nil {
		unix.Close(s.fd)
		return nil, insight.Wrap(err, insight.Runtime, "tcp-socket-bind-error").With("endpoint", endpoint.String())
	}
	bound, err := unix.Getsockname(s.fd)
	if err != nil {
		unix.Close(s.fd)
		return nil, insight.Wrap(err, insight.Runtime, "endpoint-identification-error")
	}
	if s.endpoint, err = fromSockaddr(bound); err != nil {
		unix.Close(s.fd)
		return nil, err
	}
	return s, nil
}

// Endpoint returns the address the socket would bind to, or was bound to.
func (s *Socket) Endpoint() Endpoint { return s.endpoint }

// NativeHandle returns the socket's file descriptor.
func (s *Socket) NativeHandle() engine.NativeHandle { return engine.NativeHandle(s.fd) }

func toSockaddr(e Endpoint) unix.Sockaddr {
	if e.Address.Version() == ip.V6 {
		addr := e.Address.V6().Bytes()
		return &unix.SockaddrInet6{Port: int(e.Port), Addr: addr}
	}
	addr := e.Address.V4().Bytes()
	return &unix.SockaddrInet4{Port: int(e.Port), Addr: addr}
}

func fromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return Endpoint{Address: ip.FromV4(ipv4.FromBytes(a.Addr)), Port: Port(a.Port)}, nil
	case *unix.SockaddrInet6:
		return Endpoint{Address: ip.FromV6(ipv6.FromBytes(a.Addr)), Port: Port(a.Port)}, nil
	default:
		return Endpoint{}, insight.New(insight.Runtime, "unexpected-ip-address-family")
	}
}

// Connect dials remote, retrying through patience while the connect
// completes asynchronously (EINPROGRESS), mirroring
// tcp::socket::connect(tcp::endpoint, patience).
func Connect(s *Socket, remote Endpoint, awaiting patience.Patience) (*Connection, error) {
	sa := toSockaddr(remote)
	for {
		err := unix.Connect(s.fd, sa)
		if err == nil {
			break
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EINPROGRESS {
			if werr := awaiting.Wait(s.NativeHandle(), patience.Write); werr != nil {
				unix.Close(s.fd)
				return nil, werr
			}
			errno, serr := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
			if serr != nil {
				unix.Close(s.fd)
				return nil, insight.Wrap(serr, insight.Runtime, "tcp-socket-connect-error")
			}
			if errno != 0 {
				unix.Close(s.fd)
				return nil, insight.New(insight.Runtime, "tcp-socket-connect-error").
					With("remote", remote.String()).With("errno", errno)
			}
			break
		}
		unix.Close(s.fd)
		return nil, insight.Wrap(err, insight.Runtime, "tcp-socket-connect-failed").With("remote", remote.String())
	}
	if err := unix.SetsockoptInt(s.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(s.fd)
		return nil, insight.Wrap(err, insight.Runtime, "network-socket-option-error").With("option", "nodelay")
	}
	eng := &connEngine{fd: s.fd, remote: remote}
	return newConnection(eng)
}

// Listen switches the socket into listening mode with the given backlog,
// mirroring tcp::socket::listen(int).
func Listen(s *Socket, backlog int) (*Listener, error) {
	if err := unix.Listen(s.fd, backlog); err != nil {
		unix.Close(s.fd)
		return nil, insight.Wrap(err, insight.Runtime, "tcp-socket-listen-error").With("backlog", backlog)
	}
	return &Listener{fd: s.fd, endpoint: s.endpoint}, nil
}
