package engine_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/patience"
	"github.com/nosid-go/upstream/stream"
)

// TestFromNetConnOverLocalListener exercises the Engine contract over a
// plain net.Conn pair, the way the teacher's lib/http tests reach for
// nettest.NewLocalListener instead of a hardcoded port when a scenario just
// needs some listening socket to dial.
func TestFromNetConnOverLocalListener(t *testing.T) {
	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		accepted <- conn
		acceptErr <- err
	}()

	client, err := net.Dial(listener.Addr().Network(), listener.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, <-acceptErr)
	server := <-accepted
	t.Cleanup(func() { server.Close() })

	left, err := stream.New(engine.FromNetConn(client))
	require.NoError(t, err)
	right, err := stream.New(engine.FromNetConn(server))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, left.WriteAll(chunk.From([]byte("pipe-payload")), patience.Infinite{}))
	}()

	buf := make([]byte, 32)
	n, err := right.ReadSome(chunk.Into(buf), patience.Infinite{})
	require.NoError(t, err)
	assert.Equal(t, "pipe-payload", string(buf[:n]))
	<-done
}
