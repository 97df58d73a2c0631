package tlsutils

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSigned(t *testing.T) {
	pair, err := GenerateSelfSigned("voicetrust.local", "10.0.0.1")
	require.NoError(t, err)

	cert, err := tls.LoadX509KeyPair(pair.CertFile, pair.KeyFile)
	require.NoError(t, err)

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	require.Equal(t, []string{"voicetrust.local"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	require.NoError(t, leaf.VerifyHostname("voicetrust.local"))
	require.NoError(t, leaf.VerifyHostname("10.0.0.1"))

	require.NoError(t, pair.Remove())
	_, err = os.Stat(pair.CertFile)
	require.True(t, os.IsNotExist(err), "certificate file should be removed")
}
