package pki

import (
	"fmt"
	"strings"
	"time"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

// ChainVerifier validates ordered certificate chains against a trust
// store and checks request signatures with the leaf key.
type ChainVerifier struct {
	trust    *TrustStore
	registry *SignatureAlgorithmRegistry
	logger   *utils.LogsManager
}

func NewChainVerifier(trust *TrustStore, logger *utils.LogsManager) *ChainVerifier {
	return &ChainVerifier{
		trust:    trust,
		registry: NewSignatureAlgorithmRegistry(),
		logger:   logger,
	}
}

// ChainResult reports the verified signer and the authority anchoring
// the chain.
type ChainResult struct {
	// Requestor is the leaf common name with any leading wildcard label
	// stripped.
	Requestor string
	// AnchorCN is the common name of the last supplied certificate, the
	// one the trust store vouches for directly or through key id
	// recovery.
	AnchorCN string
}

// Registry exposes the verifier's algorithm table, shared with the
// request builder so signing and verification cannot drift apart.
func (cv *ChainVerifier) Registry() *SignatureAlgorithmRegistry {
	return cv.registry
}

// Verify checks an ordered certificate chain, leaf first, then the
// request signature over signingBytes under the leaf key. certsDER is
// the decoded certificate list from the request's PKI data.
func (cv *ChainVerifier) Verify(certsDER [][]byte, signingBytes, signature []byte, pkiType string) (*ChainResult, error) {
	if cv.trust == nil || cv.trust.Size() == 0 {
		return nil, ErrNoTrustStore
	}

	// Parse the supplied chain. Only the leaf gets a validity check and
	// only the issuers above it need the CA flag.
	chain := make([]*Certificate, 0, len(certsDER)+1)
	var requestor string
	for i, der := range certsDER {
		cert, err := ParseCertificate(der)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cert)

		if i == 0 {
			if err := cert.CheckValidity(time.Now()); err != nil {
				return nil, err
			}
			requestor = strings.TrimPrefix(cert.CommonName(), "*.")
		} else if !cert.IsCA() {
			return nil, fmt.Errorf("%w: certificate %d", ErrNotCertificateAuthority, i)
		}
	}

	if len(chain) < 2 {
		return nil, ErrNoCertificates
	}

	// The last supplied certificate is the claimed anchor. When it is
	// not itself in the store, recover the root that issued it by key id
	// and extend the chain so the recovered link gets verified too.
	anchor := chain[len(chain)-1]
	if _, ok := cv.trust.Lookup(anchor.Fingerprint()); !ok {
		root, ok := cv.trust.LookupKeyID(anchor.IssuerKeyID())
		if !ok {
			return nil, ErrUntrustedCA
		}
		chain = append(chain, root)
		cv.logger.Debug(fmt.Sprintf("Recovered root %q for chain ending at %q", root.CommonName(), anchor.CommonName()), "chain")
	}

	// Every certificate must verify under the public key one level up.
	for i := 1; i < len(chain); i++ {
		child, issuer := chain[i-1], chain[i]

		algID, sig, signed := child.IssuedSignature()
		alg, err := cv.registry.ChainAlgorithm(algID)
		if err != nil {
			return nil, err
		}
		pub, err := issuer.RSAPublicKey()
		if err != nil {
			return nil, err
		}
		if err := alg.Verify(pub, signed, sig); err != nil {
			return nil, fmt.Errorf("%w: certificate %d rejected by issuer %d", ErrChainSignatureInvalid, i-1, i)
		}
	}

	// Envelope signature under the leaf key. The envelope level admits
	// only sha1 and sha256, independent of the chain link algorithms.
	alg, err := cv.registry.EnvelopeAlgorithm(pkiType)
	if err != nil {
		return nil, err
	}
	leafKey, err := chain[0].RSAPublicKey()
	if err != nil {
		return nil, err
	}
	if err := alg.Verify(leafKey, signingBytes, signature); err != nil {
		return nil, ErrEnvelopeSignatureInvalid
	}

	return &ChainResult{Requestor: requestor, AnchorCN: anchor.CommonName()}, nil
}
