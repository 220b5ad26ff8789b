package pki

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"testing"
)

func TestChainAlgorithmSignVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	reg := NewSignatureAlgorithmRegistry()
	message := []byte("bytes a certificate authority might sign")

	for _, id := range []x509.SignatureAlgorithm{
		x509.SHA1WithRSA,
		x509.SHA256WithRSA,
		x509.SHA384WithRSA,
		x509.SHA512WithRSA,
	} {
		alg, err := reg.ChainAlgorithm(id)
		if err != nil {
			t.Fatalf("Failed to resolve %s: %v", id, err)
		}

		sig, err := alg.Sign(key, message)
		if err != nil {
			t.Fatalf("Failed to sign with %s: %v", id, err)
		}
		if err := alg.Verify(&key.PublicKey, message, sig); err != nil {
			t.Errorf("Verification with %s failed: %v", id, err)
		}

		tampered := append([]byte(nil), message...)
		tampered[0] ^= 0x01
		if err := alg.Verify(&key.PublicKey, tampered, sig); err == nil {
			t.Errorf("Expected %s verification to fail on tampered message", id)
		}
	}
}

func TestChainAlgorithmRejectsUnknown(t *testing.T) {
	reg := NewSignatureAlgorithmRegistry()

	for _, id := range []x509.SignatureAlgorithm{
		x509.ECDSAWithSHA256,
		x509.MD5WithRSA,
		x509.PureEd25519,
	} {
		if _, err := reg.ChainAlgorithm(id); !errors.Is(err, ErrUnsupportedAlgorithm) {
			t.Errorf("Expected unsupported algorithm error for %s, got %v", id, err)
		}
	}
}

func TestEnvelopeAlgorithmTable(t *testing.T) {
	reg := NewSignatureAlgorithmRegistry()

	if _, err := reg.EnvelopeAlgorithm("x509+sha1"); err != nil {
		t.Errorf("Expected x509+sha1 to resolve, got %v", err)
	}
	if _, err := reg.EnvelopeAlgorithm("x509+sha256"); err != nil {
		t.Errorf("Expected x509+sha256 to resolve, got %v", err)
	}

	// The envelope level never grows beyond sha1 and sha256
	for _, pkiType := range []string{"x509+sha384", "x509+sha512", "dnssec+btc", "none", ""} {
		if _, err := reg.EnvelopeAlgorithm(pkiType); !errors.Is(err, ErrUnsupportedAlgorithm) {
			t.Errorf("Expected unsupported algorithm error for %q, got %v", pkiType, err)
		}
	}
}

// The digest prefix path builds the same PKCS#1 v1.5 encoding the
// standard library builds internally, so signatures made either way must
// cross-verify.
func TestDigestPrefixMatchesStandardEncoding(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	reg := NewSignatureAlgorithmRegistry()
	alg, err := reg.ChainAlgorithm(x509.SHA256WithRSA)
	if err != nil {
		t.Fatalf("Failed to resolve sha256: %v", err)
	}

	message := []byte("interoperability check")
	digest := sha256.Sum256(message)

	prefixSig, err := alg.Sign(key, message)
	if err != nil {
		t.Fatalf("Failed to sign via digest prefix: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], prefixSig); err != nil {
		t.Errorf("Standard library rejected prefix-built signature: %v", err)
	}

	stdSig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("Failed to sign via standard library: %v", err)
	}
	if err := alg.Verify(&key.PublicKey, message, stdSig); err != nil {
		t.Errorf("Prefix verification rejected standard signature: %v", err)
	}
}
