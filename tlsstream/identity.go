package tlsstream

import (
	"crypto/tls"
	"os"

	"github.com/nosid-go/upstream/internal/insight"
)

// Identity supplies a Context's own certificate and private key. It is the
// Go counterpart of tls::identity.
type Identity struct {
	certFile  string
	keyFile   string
	chainFile string
}

// NewIdentity builds an Identity from a certificate and private key file,
// mirroring tls::identity's two-argument constructor.
func NewIdentity(certFile, keyFile string) Identity {
	return Identity{certFile: certFile, keyFile: keyFile}
}

// NewIdentityWithChain builds an Identity that also presents an
// intermediate certificate chain, mirroring tls::identity's
// three-argument constructor.
func NewIdentityWithChain(certFile, keyFile, chainFile string) Identity {
	return Identity{certFile: certFile, keyFile: keyFile, chainFile: chainFile}
}

func (id Identity) apply(cfg *tls.Config) error {
	if id.certFile == "" {
		return nil
	}
	certPEM, err := os.ReadFile(id.certFile)
	if err != nil {
		return insight.Wrap(err, insight.Runtime, "tls-identity-certificate-error").With("path", id.certFile)
	}
	if id.chainFile != "" {
		chainPEM, err := os.ReadFile(id.chainFile)
		if err != nil {
			return insight.Wrap(err, insight.Runtime, "tls-identity-chain-error").With("path", id.chainFile)
		}
		certPEM = append(append([]byte{}, certPEM...), chainPEM...)
	}
	keyPEM, err := os.ReadFile(id.keyFile)
	if err != nil {
		return insight.Wrap(err, insight.Runtime, "tls-identity-key-error").With("path", id.keyFile)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return insight.Wrap(err, insight.Runtime, "tls-identity-key-pair-error")
	}
	cfg.Certificates = append(cfg.Certificates, cert)
	return nil
}
