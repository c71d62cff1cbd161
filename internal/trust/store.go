package trust

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/edge-telemetry/internal/domain/telemetry"
)

// Store is the process-level certificate pool used by TLS connections.
type Store struct {
	// pool holds the system roots plus every installed authority.
	pool *x509.CertPool
	// installed tracks SHA-256 fingerprints already added to pool.
	installed map[[sha256.Size]byte]struct{}
	// mu protects pool and installed.
	mu sync.Mutex
}

var (
	// errPathRequired is wrapped when no certificate path is configured.
	errPathRequired = errors.New("missing path to certificate file")
	// errNoCertificates is wrapped when the file holds nothing usable.
	errNoCertificates = errors.New("no certificates found")
)

// NewStore returns a store seeded with the system roots. When the system pool
// cannot be loaded the store starts empty.
func NewStore() *Store {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	return newStore(pool)
}

// NewEmptyStore returns a store without system roots.
func NewEmptyStore() *Store {
	return newStore(x509.NewCertPool())
}

func newStore(pool *x509.CertPool) *Store {
	return &Store{
		pool:      pool,
		installed: make(map[[sha256.Size]byte]struct{}),
	}
}

// Install adds every certificate from certPath to the store and returns how
// many were new. The file may hold PEM blocks or a single DER certificate.
func (s *Store) Install(certPath string) (int, error) {
	if strings.TrimSpace(certPath) == "" {
		return 0, fmt.Errorf("%w: %w", telemetry.ErrConfig, errPathRequired)
	}

	contents, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return 0, fmt.Errorf("%w: read certificate %s: %w", telemetry.ErrTrustStore, certPath, err)
	}

	certs, err := parseCertificates(contents)
	if err != nil {
		return 0, fmt.Errorf("%w: parse certificate %s: %w", telemetry.ErrTrustStore, certPath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0

	for _, cert := range certs {
		fingerprint := sha256.Sum256(cert.Raw)
		if _, ok := s.installed[fingerprint]; ok {
			continue
		}

		s.pool.AddCert(cert)
		s.installed[fingerprint] = struct{}{}
		added++
	}

	return added, nil
}

// Pool returns a copy of the current certificate pool.
func (s *Store) Pool() *x509.CertPool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Clone()
}

// Len returns the number of installed authorities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.installed)
}

// parseCertificates decodes PEM CERTIFICATE blocks, falling back to DER.
func parseCertificates(contents []byte) ([]*x509.Certificate, error) {
	var (
		certs []*x509.Certificate
		rest  = contents
	)

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}

		certs = append(certs, cert)
	}

	if len(certs) > 0 {
		return certs, nil
	}

	cert, err := x509.ParseCertificate(contents)
	if err != nil {
		return nil, errNoCertificates
	}

	return []*x509.Certificate{cert}, nil
}
