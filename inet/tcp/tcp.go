// Package tcp implements non-blocking TCP sockets, connections and
// listeners on top of golang.org/x/sys/unix, wired into the engine/stream/
// patience abstractions of this module. It is the Go counterpart of
// up_inet.hpp/up_inet.cpp's tcp namespace.
package tcp

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nosid-go/upstream/inet/ip"
	"github.com/nosid-go/upstream/internal/insight"
)

// Port is a TCP port number; zero (PortAny) lets the kernel pick one.
type Port uint16

// PortAny lets bind/connect choose an ephemeral port.
const PortAny Port = 0

// Endpoint is an IP address plus a TCP port.
type Endpoint struct {
	Address ip.Endpoint
	Port    Port
}

// Any binds to the IPv4 wildcard address on an ephemeral port.
var Any = Endpoint{}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Address.String(), e.Port)
}

// servicesEntry is one parsed line of /etc/services.
type servicesEntry struct {
	name string
	port Port
	proto string
}

func readServices() ([]servicesEntry, error) {
	f, err := os.Open("/etc/services")
	if err != nil {
		return nil, insight.Wrap(err, insight.Runtime, "services-file-unavailable")
	}
	defer f.Close()

	var entries []servicesEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		portProto := strings.SplitN(fields[1], "/", 2)
		if len(portProto) != 2 {
			continue
		}
		n, err := strconv.ParseUint(portProto[0], 10, 16)
		if err != nil {
			continue
		}
		entries = append(entries, servicesEntry{name: fields[0], port: Port(n), proto: portProto[1]})
	}
	return entries, nil
}

// ResolveName resolves a TCP port to its registered service name, mirroring
// tcp::resolve_name. It raises insight.InvalidService if no service claims
// the port.
func ResolveName(port Port) (string, error) {
	entries, err := readServices()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.proto == "tcp" && e.port == port {
			return e.name, nil
		}
	}
	return "", insight.New(insight.InvalidService, "unknown-service-name").With("port", port)
}

// ResolvePort resolves a TCP service name to its port, mirroring
// tcp::resolve_port. It raises insight.InvalidService if the name is
// unknown.
func ResolvePort(name string) (Port, error) {
	entries, err := readServices()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.proto == "tcp" && strings.EqualFold(e.name, name) {
			return e.port, nil
		}
	}
	return 0, insight.New(insight.InvalidService, "unknown-network-service").With("name", name)
}
