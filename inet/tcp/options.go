package tcp

import "github.com/nosid-go/upstream/internal/optset"

type socketOptionChoices struct{}

func (socketOptionChoices) Choices() []optset.BitsChoicesInfo {
	return []optset.BitsChoicesInfo{
		{Bit: 0, Name: "OFF"},
		{Bit: uint64(ReuseAddr), Name: "ReuseAddr"},
		{Bit: uint64(ReusePort), Name: "ReusePort"},
		{Bit: uint64(FreeBind), Name: "FreeBind"},
	}
}

// SocketOptions is the additive set of bind-time socket options, the Go
// counterpart of tcp::socket::option/up::enum_set<option>, instantiated
// from the shared generic Bits[Choices] set type.
type SocketOptions = optset.Bits[socketOptionChoices]

const (
	// ReuseAddr sets SO_REUSEADDR before binding.
	ReuseAddr SocketOptions = 1 << iota
	// ReusePort sets SO_REUSEPORT before binding, allowing several sockets
	// to share one listening address.
	ReusePort
	// FreeBind sets IP_FREEBIND before binding, allowing a bind to an
	// address that is not yet configured on any local interface.
	FreeBind
)
