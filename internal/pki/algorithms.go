package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// DER headers of the PKCS#1 v1.5 DigestInfo structure per hash. The raw
// digest is appended directly after the header.
var (
	prefixSHA256 = []byte{0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20}
	prefixSHA384 = []byte{0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30}
	prefixSHA512 = []byte{0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40}
)

type verifyMode int

const (
	// modeHashAndVerify hashes the message and lets the RSA layer build
	// the DigestInfo structure itself.
	modeHashAndVerify verifyMode = iota
	// modeDigestPrefix verifies caller-assembled DigestInfo bytes as the
	// directly signed payload.
	modeDigestPrefix
)

// SignatureAlgorithm is one verification procedure: a hash, an optional
// DigestInfo header, and the RSA padding mode that ties them together.
type SignatureAlgorithm struct {
	Name   string
	Hash   crypto.Hash
	prefix []byte
	mode   verifyMode
}

// Verify checks sig over message under pub.
func (a SignatureAlgorithm) Verify(pub *rsa.PublicKey, message, sig []byte) error {
	h := a.Hash.New()
	h.Write(message)
	digest := h.Sum(nil)

	switch a.mode {
	case modeHashAndVerify:
		return rsa.VerifyPKCS1v15(pub, a.Hash, digest, sig)
	case modeDigestPrefix:
		// hash zero: the DigestInfo bytes are the signed payload
		payload := make([]byte, 0, len(a.prefix)+len(digest))
		payload = append(payload, a.prefix...)
		payload = append(payload, digest...)
		return rsa.VerifyPKCS1v15(pub, 0, payload, sig)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a.Name)
}

// Sign produces a signature Verify accepts. Only the request builder
// uses this, verification never signs.
func (a SignatureAlgorithm) Sign(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	h := a.Hash.New()
	h.Write(message)
	digest := h.Sum(nil)

	switch a.mode {
	case modeHashAndVerify:
		return rsa.SignPKCS1v15(rand.Reader, priv, a.Hash, digest)
	case modeDigestPrefix:
		payload := make([]byte, 0, len(a.prefix)+len(digest))
		payload = append(payload, a.prefix...)
		payload = append(payload, digest...)
		return rsa.SignPKCS1v15(rand.Reader, priv, 0, payload)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a.Name)
}

// SignatureAlgorithmRegistry holds the closed set of algorithms accepted
// in certificate chains and at the envelope level. The envelope table is
// deliberately smaller: whatever algorithms the chain links were issued
// under, the request signature itself is only ever sha1 or sha256.
type SignatureAlgorithmRegistry struct {
	chain    map[x509.SignatureAlgorithm]SignatureAlgorithm
	envelope map[string]SignatureAlgorithm
}

func NewSignatureAlgorithmRegistry() *SignatureAlgorithmRegistry {
	sha1RSA := SignatureAlgorithm{Name: "sha1WithRSAEncryption", Hash: crypto.SHA1, mode: modeHashAndVerify}
	sha256RSA := SignatureAlgorithm{Name: "sha256WithRSAEncryption", Hash: crypto.SHA256, prefix: prefixSHA256, mode: modeDigestPrefix}
	sha384RSA := SignatureAlgorithm{Name: "sha384WithRSAEncryption", Hash: crypto.SHA384, prefix: prefixSHA384, mode: modeDigestPrefix}
	sha512RSA := SignatureAlgorithm{Name: "sha512WithRSAEncryption", Hash: crypto.SHA512, prefix: prefixSHA512, mode: modeDigestPrefix}

	return &SignatureAlgorithmRegistry{
		chain: map[x509.SignatureAlgorithm]SignatureAlgorithm{
			x509.SHA1WithRSA:   sha1RSA,
			x509.SHA256WithRSA: sha256RSA,
			x509.SHA384WithRSA: sha384RSA,
			x509.SHA512WithRSA: sha512RSA,
		},
		envelope: map[string]SignatureAlgorithm{
			"x509+sha1":   sha1RSA,
			"x509+sha256": sha256RSA,
		},
	}
}

// ChainAlgorithm resolves the algorithm a certificate was issued under.
func (r *SignatureAlgorithmRegistry) ChainAlgorithm(id x509.SignatureAlgorithm) (SignatureAlgorithm, error) {
	alg, ok := r.chain[id]
	if !ok {
		return SignatureAlgorithm{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, id)
	}
	return alg, nil
}

// EnvelopeAlgorithm resolves the top level algorithm for a PKI type.
func (r *SignatureAlgorithmRegistry) EnvelopeAlgorithm(pkiType string) (SignatureAlgorithm, error) {
	alg, ok := r.envelope[pkiType]
	if !ok {
		return SignatureAlgorithm{}, fmt.Errorf("%w: pki type %q", ErrUnsupportedAlgorithm, pkiType)
	}
	return alg, nil
}
