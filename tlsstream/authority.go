// Package tlsstream decorates an engine.Engine with TLS, the Go counterpart
// of up_tls.hpp/up_tls.cpp's tls::authority, tls::identity, tls::context and
// the tls_stream engine. Go's standard crypto/tls has no ecosystem
// alternative worth reaching for instead (every TLS-capable library in the
// pack, including backend/ftp's explicit/implicit FTPS dialer, ultimately
// builds on it), so this package is the one place in the module that leans
// on the standard library by design rather than by omission.
package tlsstream

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/nosid-go/upstream/internal/insight"
)

// Authority supplies the trusted root certificates a Context verifies its
// peer against. It is the Go counterpart of tls::authority's builder chain.
type Authority interface {
	apply(cfg *tls.Config) error
}

type authorityFunc func(cfg *tls.Config) error

func (f authorityFunc) apply(cfg *tls.Config) error { return f(cfg) }

// SystemAuthority trusts the host's default root CA set, mirroring
// tls::authority::system(). Leaving RootCAs nil tells crypto/tls to load the
// platform pool itself.
func SystemAuthority() Authority {
	return authorityFunc(func(cfg *tls.Config) error {
		cfg.RootCAs = nil
		return nil
	})
}

// DirectoryAuthority trusts every PEM certificate found directly inside
// dir, mirroring tls::authority::with_directory.
func DirectoryAuthority(dir string) Authority {
	return authorityFunc(func(cfg *tls.Config) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return insight.Wrap(err, insight.Runtime, "tls-authority-directory-error").With("dir", dir)
		}
		pool := x509.NewCertPool()
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			pool.AppendCertsFromPEM(data)
		}
		cfg.RootCAs = pool
		return nil
	})
}

// FileAuthority trusts every PEM certificate in a single bundle file,
// mirroring tls::authority::with_file.
func FileAuthority(path string) Authority {
	return authorityFunc(func(cfg *tls.Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return insight.Wrap(err, insight.Runtime, "tls-authority-file-error").With("path", path)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return insight.New(insight.Runtime, "tls-authority-file-parse-error").With("path", path)
		}
		cfg.RootCAs = pool
		return nil
	})
}

// CertificateAuthority trusts a single PEM-encoded certificate supplied
// in-memory, mirroring tls::authority::with_certificate.
func CertificateAuthority(pem []byte) Authority {
	return authorityFunc(func(cfg *tls.Config) error {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return insight.New(insight.Runtime, "tls-authority-certificate-parse-error")
		}
		cfg.RootCAs = pool
		return nil
	})
}
