// Package tlsutils generates a self-signed certificate so that browsers grant the web UI microphone access.
package tlsutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const validity = 30 * 24 * time.Hour

// KeyPair points to PEM encoded certificate and key files within a temporary directory.
type KeyPair struct {
	CertFile string
	KeyFile  string
	dir      string
}

// Remove deletes the temporary directory.
func (p *KeyPair) Remove() error {
	return os.RemoveAll(p.dir)
}

// GenerateSelfSigned writes a self-signed certificate for the given host names and IP addresses.
// Without hosts the certificate is issued for localhost.
func GenerateSelfSigned(hosts ...string) (*KeyPair, error) {
	certPEM, keyPEM, err := generateSelfSigned(hosts)
	if err != nil {
		return nil, fmt.Errorf("generate self-signed tls certificate: %w", err)
	}

	dir, err := os.MkdirTemp("", "voicetrust-tls-")
	if err != nil {
		return nil, err
	}

	pair := &KeyPair{
		CertFile: filepath.Join(dir, "cert.pem"),
		KeyFile:  filepath.Join(dir, "key.pem"),
		dir:      dir,
	}

	for file, data := range map[string][]byte{pair.CertFile: certPEM, pair.KeyFile: keyPEM} {
		if err := os.WriteFile(file, data, 0o600); err != nil {
			_ = pair.Remove()
			return nil, err
		}
	}

	return pair, nil
}

func generateSelfSigned(hosts []string) ([]byte, []byte, error) {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial number: %w", err)
	}

	notBefore := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   hosts[0],
			Organization: []string{"voicetrust"},
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM, nil
}
