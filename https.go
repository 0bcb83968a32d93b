package rawhttp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const cacheDirName = "rawhttp-autocert"

// cacheDir returns the directory certificates are cached in, creating it if necessary. An
// empty string is returned along with an error if there's no usable directory.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(base, cacheDirName)
	if err = os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	return dir, nil
}

func isLocalhost(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	switch host {
	case "", "localhost":
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// selfSignedCert loads the localhost certificate from the cache dir, generating it first if
// it doesn't exist yet.
func selfSignedCert() (tls.Certificate, error) {
	dir, err := cacheDir()
	if err != nil {
		return tls.Certificate{}, err
	}

	certFile := filepath.Join(dir, "localhost.crt")
	keyFile := filepath.Join(dir, "localhost.key")

	if !fileExists(certFile) || !fileExists(keyFile) {
		if err = generateCert(certFile, keyFile); err != nil {
			return tls.Certificate{}, err
		}
	}

	return tls.LoadX509KeyPair(certFile, keyFile)
}

func generateCert(certFile, keyFile string) error {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber:          big.NewInt(notBefore.UnixNano()),
		Subject:               pkix.Name{Organization: []string{"rawhttp localhost"}},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return err
	}

	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}

	if err = writePEM(certFile, "CERTIFICATE", der, 0644); err != nil {
		return err
	}

	return writePEM(keyFile, "PRIVATE KEY", privBytes, 0600)
}

func writePEM(filename, blockType string, data []byte, perm os.FileMode) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if err = pem.Encode(file, &pem.Block{Type: blockType, Bytes: data}); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func fileExists(filename string) bool {
	stat, err := os.Stat(filename)
	return err == nil && !stat.IsDir()
}
