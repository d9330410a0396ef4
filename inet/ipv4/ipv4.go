// Package ipv4 is the value type for IPv4 addresses, ported from
// up_inet.hpp/up_inet.cpp's ipv4::endpoint: a fixed 4-byte address with
// lexicographic ordering and adjacent-address arithmetic, used by callers
// that want to enumerate or bucket addresses rather than just compare them.
package ipv4

import (
	"net"

	"github.com/nosid-go/upstream/internal/insight"
)

// Endpoint is a 4-byte IPv4 address.
type Endpoint struct {
	data [4]byte
}

// Any is 0.0.0.0, the wildcard bind address.
var Any = Endpoint{data: [4]byte{0, 0, 0, 0}}

// Loopback is 127.0.0.1.
var Loopback = Endpoint{data: [4]byte{127, 0, 0, 1}}

// FromBytes builds an Endpoint from a 4-byte big-endian address.
func FromBytes(b [4]byte) Endpoint { return Endpoint{data: b} }

// Parse parses a dotted-decimal address string.
func Parse(value string) (Endpoint, error) {
	ip := net.ParseIP(value)
	if ip == nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").With("value", value)
	}
	v4 := ip.To4()
	if v4 == nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").
			With("value", value).With("reason", "not-ipv4")
	}
	var e Endpoint
	copy(e.data[:], v4)
	return e, nil
}

// Bytes returns the raw 4-byte address.
func (e Endpoint) Bytes() [4]byte { return e.data }

// String renders the address in dotted-decimal form.
func (e Endpoint) String() string {
	return net.IP(e.data[:]).String()
}

// Prev returns the address immediately preceding e, wrapping like an
// unsigned big-endian integer decrement, mirroring
// ipv4::endpoint::order::prev.
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

// Next returns the address immediately following e, wrapping like an
// unsigned big-endian integer increment, mirroring
// ipv4::endpoint::order::next.
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
// byte, mirroring ipv4::endpoint::order::operator().
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
