package trust

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

	"github.com/stretchr/testify/require"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// writeTestCA creates a self-signed CA certificate and returns its PEM path and DER bytes.
func writeTestCA(t *testing.T, name string) (string, []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name+".pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path, der
}

// TestInstall_EmptyPathIsConfigError rejects missing paths before touching the store.
func TestInstall_EmptyPathIsConfigError(t *testing.T) {
	t.Parallel()

	s := NewEmptyStore()

	for _, path := range []string{"", "   "} {
		_, err := s.Install(path)
		require.ErrorIs(t, err, telemetry.ErrConfig)
		require.NotErrorIs(t, err, telemetry.ErrTrustStore)
	}

	require.Zero(t, s.Len())
}

// TestInstall_MissingFileIsTrustStoreError maps unreadable files to ErrTrustStore.
func TestInstall_MissingFileIsTrustStoreError(t *testing.T) {
	t.Parallel()

	s := NewEmptyStore()

	_, err := s.Install(filepath.Join(t.TempDir(), "missing.pem"))
	require.ErrorIs(t, err, telemetry.ErrTrustStore)
}

// TestInstall_GarbageIsTrustStoreError maps files without certificates to ErrTrustStore.
func TestInstall_GarbageIsTrustStoreError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := NewEmptyStore().Install(path)
	require.ErrorIs(t, err, telemetry.ErrTrustStore)
}

// TestInstall_ValidFileIsTrusted checks the pool verifies the installed authority.
func TestInstall_ValidFileIsTrusted(t *testing.T) {
	t.Parallel()

	path, der := writeTestCA(t, "edge-ca")
	s := NewEmptyStore()

	added, err := s.Install(path)
	require.NoError(t, err)
	require.Equal(t, 1, added)
	require.Equal(t, 1, s.Len())

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	_, err = cert.Verify(x509.VerifyOptions{Roots: s.Pool()})
	require.NoError(t, err)
}

// TestInstall_SameFileTwice does not error and does not add duplicates.
func TestInstall_SameFileTwice(t *testing.T) {
	t.Parallel()

	path, _ := writeTestCA(t, "edge-ca")
	s := NewEmptyStore()

	_, err := s.Install(path)
	require.NoError(t, err)

	added, err := s.Install(path)
	require.NoError(t, err)
	require.Zero(t, added)
	require.Equal(t, 1, s.Len())
}

// TestInstall_DERFile accepts a raw DER certificate.
func TestInstall_DERFile(t *testing.T) {
	t.Parallel()

	_, der := writeTestCA(t, "edge-ca-der")
	path := filepath.Join(t.TempDir(), "ca.der")
	require.NoError(t, os.WriteFile(path, der, 0o600))

	added, err := NewEmptyStore().Install(path)
	require.NoError(t, err)
	require.Equal(t, 1, added)
}
