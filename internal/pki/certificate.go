package pki

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"time"
)

// Certificate wraps a parsed X.509 certificate with the narrow view chain
// verification needs. Immutable once parsed.
type Certificate struct {
	x *x509.Certificate
}

func ParseCertificate(der []byte) (*Certificate, error) {
	c, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
	return &Certificate{x: c}, nil
}

func (c *Certificate) CommonName() string {
	return c.x.Subject.CommonName
}

// CheckValidity reports whether the certificate is inside its validity
// window at the given time. The returned error names which bound failed.
func (c *Certificate) CheckValidity(now time.Time) error {
	if now.Before(c.x.NotBefore) {
		return fmt.Errorf("%w: not valid before %s", ErrCertificateExpired, c.x.NotBefore.Format(time.RFC3339))
	}
	if now.After(c.x.NotAfter) {
		return fmt.Errorf("%w: expired %s", ErrCertificateExpired, c.x.NotAfter.Format(time.RFC3339))
	}
	return nil
}

func (c *Certificate) IsCA() bool {
	return c.x.IsCA
}

// Fingerprint is the SHA256 digest of the DER encoding.
func (c *Certificate) Fingerprint() [sha256.Size]byte {
	return sha256.Sum256(c.x.Raw)
}

func (c *Certificate) SubjectKeyID() []byte {
	return c.x.SubjectKeyId
}

func (c *Certificate) IssuerKeyID() []byte {
	return c.x.AuthorityKeyId
}

// RSAPublicKey returns the subject key. Chains using any other key type
// cannot be verified here.
func (c *Certificate) RSAPublicKey() (*rsa.PublicKey, error) {
	pub, ok := c.x.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate key type %T", ErrUnsupportedAlgorithm, c.x.PublicKey)
	}
	return pub, nil
}

// IssuedSignature returns the algorithm, signature bytes, and signed bytes
// under which this certificate was issued. Verified against the public key
// of the next certificate up the chain.
func (c *Certificate) IssuedSignature() (x509.SignatureAlgorithm, []byte, []byte) {
	return c.x.SignatureAlgorithm, c.x.Signature, c.x.RawTBSCertificate
}

func (c *Certificate) NotAfter() time.Time {
	return c.x.NotAfter
}
