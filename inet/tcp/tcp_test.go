package tcp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/inet/ip"
	"github.com/nosid-go/upstream/inet/ipv4"
	"github.com/nosid-go/upstream/inet/tcp"
	"github.com/nosid-go/upstream/patience"
)

func loopbackEndpoint() tcp.Endpoint {
	return tcp.Endpoint{Address: ip.FromV4(ipv4.Loopback), Port: tcp.PortAny}
}

func TestListenConnectAcceptEchoRoundTrip(t *testing.T) {
	bound, err := tcp.Bind(loopbackEndpoint(), tcp.ReuseAddr)
	require.NoError(t, err)
	listener, err := tcp.Listen(bound, 1)
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.Endpoint()

	accepted := make(chan *tcp.Connection, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept(patience.Infinite{})
		accepted <- conn
		acceptErr <- err
	}()

	dialSocket, err := tcp.New(ip.V4)
	require.NoError(t, err)
	client, err := tcp.Connect(dialSocket, addr, patience.Infinite{})
	require.NoError(t, err)

	require.NoError(t, <-acceptErr)
	server := <-accepted
	require.NotNil(t, server)

	require.NoError(t, client.WriteAll(chunk.From([]byte("ping")), patience.Infinite{}))

	buf := make([]byte, 4)
	n, err := server.ReadSome(chunk.Into(buf), patience.Infinite{})
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
}

func TestResolvePortAndNameRoundTrip(t *testing.T) {
	port, err := tcp.ResolvePort("http")
	if err != nil {
		t.Skipf("no /etc/services entry for http: %v", err)
	}
	assert.Equal(t, tcp.Port(80), port)

	name, err := tcp.ResolveName(port)
	require.NoError(t, err)
	assert.Equal(t, "http", name)
}

func TestKeepaliveAndQOSSetOnConnection(t *testing.T) {
	bound, err := tcp.Bind(loopbackEndpoint(), tcp.ReuseAddr)
	require.NoError(t, err)
	listener, err := tcp.Listen(bound, 1)
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.Endpoint()
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.Accept(patience.Infinite{})
		if err == nil {
			_ = conn
		}
	}()

	dialSocket, err := tcp.New(ip.V4)
	require.NoError(t, err)
	client, err := tcp.Connect(dialSocket, addr, patience.Infinite{})
	require.NoError(t, err)
	<-done

	require.NoError(t, client.Keepalive(30*time.Second, 3, 5*time.Second))
	require.NoError(t, client.QOS(tcp.QOSClass1, tcp.QOSDropLow))
}
