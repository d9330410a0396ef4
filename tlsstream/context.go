package tlsstream

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/patience"
)

// VerifyCallback inspects a peer's verified certificate chains after
// crypto/tls's own verification has run, mirroring tls::context's
// verify_callback hook. Returning an error fails the handshake.
type VerifyCallback func(chains [][]*x509.Certificate) error

// SNICallback resolves a client-presented server name to the Identity a
// server-side Context should present, mirroring tls::context's sni_callback
// hook (tls_ext_servername_callback in the original).
type SNICallback func(serverName string) (Identity, error)

// Context builds the crypto/tls.Config shared by every TLS engine a given
// role (client or server) creates, mirroring tls::context's builder chain
// of with_identity/with_authority/with_sni_callback/with_verify_callback.
type Context struct {
	cfg      *tls.Config
	identity *Identity
	sni      SNICallback
	verify   VerifyCallback
}

// NewContext starts a Context with TLS 1.2 as its floor, matching the
// original's refusal to negotiate SSLv3/TLS 1.0/1.1.
func NewContext() *Context {
	return &Context{cfg: &tls.Config{MinVersion: tls.VersionTLS12}}
}

// WithAuthority sets the trusted root CA set new connections verify their
// peer against.
func (c *Context) WithAuthority(authority Authority) error {
	if err := authority.apply(c.cfg); err != nil {
		return err
	}
	return nil
}

// WithIdentity sets the certificate and key this Context presents to its
// peer.
func (c *Context) WithIdentity(identity Identity) error {
	if err := identity.apply(c.cfg); err != nil {
		return err
	}
	c.identity = &identity
	return nil
}

// WithSNICallback installs a hook resolving the client-presented server
// name to an Identity, for a server Context fronting more than one name.
func (c *Context) WithSNICallback(cb SNICallback) {
	c.sni = cb
	c.cfg.GetConfigForClient = func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
		identity, err := cb(hello.ServerName)
		if err != nil {
			return nil, insight.Wrap(err, insight.Runtime, "tls-sni-callback-error").With("server-name", hello.ServerName)
		}
		next := c.cfg.Clone()
		next.GetConfigForClient = nil
		next.Certificates = nil
		if err := identity.apply(next); err != nil {
			return nil, err
		}
		return next, nil
	}
}

// WithVerifyCallback installs a hook run after crypto/tls's own chain
// verification, mirroring tls::context::with_verify_callback.
func (c *Context) WithVerifyCallback(cb VerifyCallback) {
	c.verify = cb
	c.cfg.InsecureSkipVerify = false
	c.cfg.VerifyPeerCertificate = func(_ [][]byte, chains [][]*x509.Certificate) error {
		return cb(chains)
	}
}

// MakeClientEngine performs a synchronous TLS client handshake over inner,
// presenting serverName via SNI, mirroring tls::context::upgrade on the
// client side.
func (c *Context) MakeClientEngine(inner engine.Engine, awaiting patience.Patience, serverName string) (engine.Engine, error) {
	return MakeClientEngine(inner, awaiting, c.cfg, serverName)
}

// MakeServerEngine performs a synchronous TLS server handshake over inner,
// mirroring tls::context::upgrade on the server side.
func (c *Context) MakeServerEngine(inner engine.Engine, awaiting patience.Patience) (engine.Engine, error) {
	return MakeServerEngine(inner, awaiting, c.cfg)
}
