// Package ipv6 is the value type for IPv6 addresses, the 16-byte
// counterpart of package ipv4, ported from ipv6::endpoint in
// up_inet.hpp/up_inet.cpp.
package ipv6

import (
	"net"

	"github.com/nosid-go/upstream/internal/insight"
)

// Endpoint is a 16-byte IPv6 address.
type Endpoint struct {
	data [16]byte
}

// Any is ::, the wildcard bind address.
var Any = Endpoint{}

// Loopback is ::1.
var Loopback = Endpoint{data: [16]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}}

// FromBytes builds an Endpoint from a 16-byte address.
func FromBytes(b [16]byte) Endpoint { return Endpoint{data: b} }

// Parse parses an IPv6 address string.
func Parse(value string) (Endpoint, error) {
	ip := net.ParseIP(value)
	if ip == nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").With("value", value)
	}
	v6 := ip.To16()
	if v6 == nil || ip.To4() != nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").
			With("value", value).With("reason", "not-ipv6")
	}
	var e Endpoint
	copy(e.data[:], v6)
	return e, nil
}

// Bytes returns the raw 16-byte address.
func (e Endpoint) Bytes() [16]byte { return e.data }

// String renders the address in its canonical IPv6 form.
func (e Endpoint) String() string {
	return net.IP(e.data[:]).String()
}

// Prev returns the address immediately preceding e, mirroring
// ipv6::endpoint::order::prev.
func Prev(e Endpoint) Endpoint {
	result := e
	for i := len(result.data) - 1; i >= 0; i-- {
		result.data[i]--
		if result.data[i] != 0xff {
			break
		}
	}
	return result
}

// Next returns the address immediately following e, mirroring
// ipv6::endpoint::order::next.
func Next(e Endpoint) Endpoint {
	result := e
	for i := len(result.data) - 1; i >= 0; i-- {
		result.data[i]++
		if result.data[i] != 0 {
			break
		}
	}
	return result
}

// Compare returns -1, 0, or 1 comparing lhs and rhs lexicographically by
// byte, mirroring ipv6::endpoint::order::operator().
func Compare(lhs, rhs Endpoint) int {
	for i := range lhs.data {
		if lhs.data[i] != rhs.data[i] {
			if lhs.data[i] < rhs.data[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether lhs sorts before rhs.
func Less(lhs, rhs Endpoint) bool { return Compare(lhs, rhs) < 0 }
