// Package ip is the version-tagged union of ipv4.Endpoint and
// ipv6.Endpoint, plus the name-resolution helpers built on net.Resolver,
// ported from ip::endpoint and ip::resolve_canonical/resolve_endpoints/
// resolve_name in up_inet.hpp/up_inet.cpp.
//
// The original's union-with-manual-destroy-then-construct dance exists only
// because C++ has no tagged-union primitive; Endpoint is instead a plain
// struct holding a Version tag next to one field per address family.
package ip

import (
	"context"
	"net"
	"strings"

	"github.com/nosid-go/upstream/inet/ipv4"
	"github.com/nosid-go/upstream/inet/ipv6"
	"github.com/nosid-go/upstream/internal/insight"
)

// Version identifies which address family an Endpoint carries.
type Version uint8

const (
	V4 Version = iota
	V6
)

func (v Version) String() string {
	if v == V6 {
		return "IPv6"
	}
	return "IPv4"
}

// Endpoint is either an ipv4.Endpoint or an ipv6.Endpoint.
type Endpoint struct {
	version Version
	v4      ipv4.Endpoint
	v6      ipv6.Endpoint
}

// FromV4 wraps an IPv4 address.
func FromV4(e ipv4.Endpoint) Endpoint { return Endpoint{version: V4, v4: e} }

// FromV6 wraps an IPv6 address.
func FromV6(e ipv6.Endpoint) Endpoint { return Endpoint{version: V6, v6: e} }

// Parse parses either an IPv4 or an IPv6 address string.
func Parse(value string) (Endpoint, error) {
	if v4, err := ipv4.Parse(value); err == nil {
		return FromV4(v4), nil
	}
	v6, err := ipv6.Parse(value)
	if err != nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").With("value", value)
	}
	return FromV6(v6), nil
}

// Version reports which address family the endpoint carries.
func (e Endpoint) Version() Version { return e.version }

// V4 returns the wrapped IPv4 address. It panics if Version() is not V4,
// mirroring the original's explicit operator conversions, which likewise
// assume the caller already checked the active alternative.
func (e Endpoint) V4() ipv4.Endpoint {
	if e.version != V4 {
		panic("ip: endpoint does not hold an IPv4 address")
	}
	return e.v4
}

// V6 returns the wrapped IPv6 address. It panics if Version() is not V6.
func (e Endpoint) V6() ipv6.Endpoint {
	if e.version != V6 {
		panic("ip: endpoint does not hold an IPv6 address")
	}
	return e.v6
}

// String renders the wrapped address.
func (e Endpoint) String() string {
	if e.version == V4 {
		return e.v4.String()
	}
	return e.v6.String()
}

// NetIP converts to a standard library net.IP, for interop with net.Dialer
// and friends.
func (e Endpoint) NetIP() net.IP {
	if e.version == V4 {
		b := e.v4.Bytes()
		return net.IP(b[:])
	}
	b := e.v6.Bytes()
	return net.IP(b[:])
}

// FromNetIP wraps a standard library net.IP as an Endpoint.
func FromNetIP(addr net.IP) (Endpoint, error) {
	if v4 := addr.To4(); v4 != nil {
		var b [4]byte
		copy(b[:], v4)
		return FromV4(ipv4.FromBytes(b)), nil
	}
	v6 := addr.To16()
	if v6 == nil {
		return Endpoint{}, insight.New(insight.InvalidEndpoint, "invalid-ip-address").With("value", addr.String())
	}
	var b [16]byte
	copy(b[:], v6)
	return FromV6(ipv6.FromBytes(b)), nil
}

// ResolveCanonical resolves name to its canonical DNS name, mirroring
// ip::resolve_canonical (a CNAME-following getaddrinfo lookup with
// AI_CANONNAME).
func ResolveCanonical(ctx context.Context, name string) (string, error) {
	cname, err := net.DefaultResolver.LookupCNAME(ctx, name)
	if err != nil {
		return "", insight.Wrap(err, insight.InvalidEndpoint, "host-name-resolver-error").With("name", name)
	}
	return strings.TrimSuffix(cname, "."), nil
}

// ResolveEndpoints resolves name to every address it maps to, mirroring
// ip::resolve_endpoints.
func ResolveEndpoints(ctx context.Context, name string) ([]Endpoint, error) {
	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip", name)
	if err != nil {
		return nil, insight.Wrap(err, insight.InvalidEndpoint, "host-name-resolver-error").With("name", name)
	}
	out := make([]Endpoint, 0, len(addrs))
	for _, addr := range addrs {
		ep, err := FromNetIP(addr)
		if err != nil {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}

// ResolveName performs a reverse DNS lookup for endpoint, mirroring
// ip::resolve_name.
func ResolveName(ctx context.Context, endpoint Endpoint) (string, error) {
	names, err := net.DefaultResolver.LookupAddr(ctx, endpoint.String())
	if err != nil || len(names) == 0 {
		return "", insight.Wrap(err, insight.InvalidEndpoint, "ip-address-resolver-error").
			With("endpoint", endpoint.String())
	}
	return names[0], nil
}
