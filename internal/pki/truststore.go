package pki

import (
	"crypto/sha256"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

// Standard CA bundle locations probed when no explicit trust store file
// is configured. Same list the TLS stack uses on common distributions.
var defaultBundlePaths = []string{
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/pki/tls/certs/ca-bundle.crt",
	"/etc/ssl/ca-bundle.pem",
	"/etc/pki/tls/cacert.pem",
	"/etc/pki/ca-trust/extracted/pem/tls-ca-bundle.pem",
	"/etc/ssl/cert.pem",
}

// TrustStore is the set of trusted root certificates, indexed by DER
// fingerprint and by subject key identifier. Loaded once, read-only after.
type TrustStore struct {
	byFingerprint map[[sha256.Size]byte]*Certificate
	byKeyID       map[string]*Certificate
	source        string
}

// NewTrustStore loads roots from the configured truststore_file, or from
// the first readable system bundle location when none is configured.
func NewTrustStore(cm *utils.ConfigManager, logger *utils.LogsManager) (*TrustStore, error) {
	path := cm.GetConfigWithDefault("truststore_file", "")
	if path == "" {
		if !cm.GetConfigBool("truststore_system", true) {
			return nil, fmt.Errorf("%w: no trust store configured", ErrNoTrustStore)
		}
		for _, candidate := range cm.GetConfigSlice("truststore_paths", defaultBundlePaths) {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("%w: no CA bundle found", ErrNoTrustStore)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTrustStore, err)
	}

	ts := NewTrustStoreFromPEM(data)
	ts.source = path
	if ts.Size() == 0 {
		return nil, fmt.Errorf("%w: no usable certificates in %s", ErrNoTrustStore, path)
	}

	logger.Info(fmt.Sprintf("Loaded %d trusted root certificates from %s", ts.Size(), path), "truststore")
	return ts, nil
}

// NewTrustStoreFromPEM builds a store from an in-memory PEM bundle.
// Blocks that fail to parse and roots already outside their validity
// window are skipped, mirroring how CA bundles rot in place.
func NewTrustStoreFromPEM(bundle []byte) *TrustStore {
	ts := &TrustStore{
		byFingerprint: make(map[[sha256.Size]byte]*Certificate),
		byKeyID:       make(map[string]*Certificate),
	}

	now := time.Now()
	rest := bundle
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if err := cert.CheckValidity(now); err != nil {
			continue
		}
		ts.byFingerprint[cert.Fingerprint()] = cert
		if id := cert.SubjectKeyID(); len(id) > 0 {
			ts.byKeyID[string(id)] = cert
		}
	}

	return ts
}

// Lookup finds a trusted root by certificate fingerprint.
func (ts *TrustStore) Lookup(fingerprint [sha256.Size]byte) (*Certificate, bool) {
	cert, ok := ts.byFingerprint[fingerprint]
	return cert, ok
}

// LookupKeyID finds a trusted root by its subject key identifier. Used to
// recover the root when a chain ends at an intermediate.
func (ts *TrustStore) LookupKeyID(keyID []byte) (*Certificate, bool) {
	if len(keyID) == 0 {
		return nil, false
	}
	cert, ok := ts.byKeyID[string(keyID)]
	return cert, ok
}

func (ts *TrustStore) Size() int {
	return len(ts.byFingerprint)
}

// Source reports where the store was loaded from, empty for in-memory
// stores.
func (ts *TrustStore) Source() string {
	return ts.source
}
