package tlsstream_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/inet/ip"
	"github.com/nosid-go/upstream/inet/ipv4"
	"github.com/nosid-go/upstream/inet/tcp"
	"github.com/nosid-go/upstream/patience"
	"github.com/nosid-go/upstream/tlsstream"
)

// selfSigned generates a self-signed certificate and key for serverName,
// PEM-encoded, for use as an in-process test fixture.
func selfSigned(t *testing.T, serverName string) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: serverName},
		NotBefore:    time.Unix(0, 0),
		NotAfter:     time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour),
		DNSNames:     []string{serverName},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func loopbackEndpoint() tcp.Endpoint {
	return tcp.Endpoint{Address: ip.FromV4(ipv4.Loopback), Port: tcp.PortAny}
}

// dialLoopbackPair binds, listens and connects a loopback TCP pair,
// returning the server-accepted and client-dialed connections.
func dialLoopbackPair(t *testing.T) (server, client *tcp.Connection) {
	t.Helper()
	bound, err := tcp.Bind(loopbackEndpoint(), tcp.ReuseAddr)
	require.NoError(t, err)
	listener, err := tcp.Listen(bound, 1)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	addr := listener.Endpoint()

	type result struct {
		conn *tcp.Connection
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := listener.Accept(patience.Infinite{})
		accepted <- result{conn, err}
	}()

	dialSocket, err := tcp.New(ip.V4)
	require.NoError(t, err)
	client, err = tcp.Connect(dialSocket, addr, patience.Infinite{})
	require.NoError(t, err)

	r := <-accepted
	require.NoError(t, r.err)
	return r.conn, client
}

func TestHandshakeAndEchoRoundTrip(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, "upstream-test.invalid")
	certFile := writeTemp(t, "cert.pem", certPEM)
	keyFile := writeTemp(t, "key.pem", keyPEM)

	serverCtx := tlsstream.NewContext()
	require.NoError(t, serverCtx.WithIdentity(tlsstream.NewIdentity(certFile, keyFile)))

	clientCtx := tlsstream.NewContext()
	require.NoError(t, clientCtx.WithAuthority(tlsstream.CertificateAuthority(certPEM)))

	rawServer, rawClient := dialLoopbackPair(t)

	type handshakeResult struct {
		e   engine.Engine
		err error
	}
	serverDone := make(chan handshakeResult, 1)
	go func() {
		e, err := serverCtx.MakeServerEngine(rawServer.Engine(), patience.Infinite{})
		serverDone <- handshakeResult{e, err}
	}()

	clientEngine, err := clientCtx.MakeClientEngine(rawClient.Engine(), patience.Infinite{}, "upstream-test.invalid")
	require.NoError(t, err)

	serverResult := <-serverDone
	require.NoError(t, serverResult.err)
	serverEngine := serverResult.e

	n, err := clientEngine.WriteSome(chunk.From([]byte("secure-ping")))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	buf := make([]byte, 32)
	readN, err := serverEngine.ReadSome(chunk.Into(buf))
	require.NoError(t, err)
	assert.Equal(t, "secure-ping", string(buf[:readN]))
}

func TestHandshakeFailsWithoutTrustedAuthority(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, "upstream-test.invalid")
	certFile := writeTemp(t, "cert.pem", certPEM)
	keyFile := writeTemp(t, "key.pem", keyPEM)

	serverCtx := tlsstream.NewContext()
	require.NoError(t, serverCtx.WithIdentity(tlsstream.NewIdentity(certFile, keyFile)))

	clientCtx := tlsstream.NewContext()

	rawServer, rawClient := dialLoopbackPair(t)

	serverDone := make(chan error, 1)
	go func() {
		_, err := serverCtx.MakeServerEngine(rawServer.Engine(), patience.Infinite{})
		serverDone <- err
	}()

	_, clientErr := clientCtx.MakeClientEngine(rawClient.Engine(), patience.Infinite{}, "upstream-test.invalid")
	assert.Error(t, clientErr)
	<-serverDone
}
