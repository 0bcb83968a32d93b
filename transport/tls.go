package transport

import (
	"crypto/tls"
	"net"

	"golang.org/x/crypto/acme/autocert"
)

type TLS struct {
	cfg *tls.Config
	TCP
}

func NewTLS(certs []tls.Certificate) *TLS {
	return &TLS{
		cfg: &tls.Config{
			Certificates: certs,
		},
	}
}

// NewAutoTLS obtains certificates on the fly via ACME. Without domains, any host is
// accepted. The cache dir may be empty, in which case certificates are kept in memory only.
func NewAutoTLS(cacheDir string, domains ...string) *TLS {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
	}

	if len(domains) > 0 {
		m.HostPolicy = autocert.HostWhitelist(domains...)
	}

	if len(cacheDir) > 0 {
		m.Cache = autocert.DirCache(cacheDir)
	}

	return &TLS{
		cfg: &tls.Config{
			GetCertificate: m.GetCertificate,
		},
	}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr, t.reusePort)
	if err != nil {
		return err
	}

	l := tls.NewListener(tcp, t.cfg)
	t.TCP = newTCP(tlsAdapter{tcp, l})

	return nil
}

type tlsAdapter struct {
	listener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}
