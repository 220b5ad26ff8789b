package payment

import (
	"fmt"

	"github.com/coinpath-labs/paymentd/internal/bitcoin"
	"github.com/coinpath-labs/paymentd/internal/pki"
	"github.com/coinpath-labs/paymentd/internal/utils"
	"github.com/coinpath-labs/paymentd/internal/wire"
)

// AliasInfo is a resolver's answer for one alias. Address is the p2pkh
// address expected to have signed the request, Validated reports
// whether the answer arrived over a validated DNSSEC chain.
type AliasInfo struct {
	Address   string
	Validated bool
}

// AliasResolver resolves payment aliases to signing addresses.
type AliasResolver interface {
	Resolve(alias string) (AliasInfo, error)
}

// Verifier checks payment request signatures and records the outcome on
// the request entity. Verification never panics and never returns an
// error, an unverifiable request is rejected with a reason instead.
type Verifier struct {
	chain  *pki.ChainVerifier
	logger *utils.LogsManager
}

func NewVerifier(trust *pki.TrustStore, logger *utils.LogsManager) *Verifier {
	return &Verifier{
		chain:  pki.NewChainVerifier(trust, logger),
		logger: logger,
	}
}

// Verify dispatches on the request's PKI type, updates the entity's
// requestor and verification state, and reports whether the signature
// checked out. The boolean result and VerifyStatus always agree.
func (v *Verifier) Verify(pr *PaymentRequest, resolver AliasResolver) bool {
	ok, status, requestor := v.verify(pr, resolver)

	pr.verified = ok
	pr.verifyStatus = status
	if requestor != "" {
		pr.requestor = requestor
	}

	if ok {
		v.logger.Info(fmt.Sprintf("Payment request %s verified: %s", pr.id, status), "verifier")
	} else {
		v.logger.Warn(fmt.Sprintf("Payment request %s rejected: %s", pr.id, status), "verifier")
	}
	return ok
}

func (v *Verifier) verify(pr *PaymentRequest, resolver AliasResolver) (ok bool, status, requestor string) {
	if len(pr.raw) == 0 {
		return false, "Empty payment request", ""
	}
	if len(pr.envelope.Signature) == 0 {
		return false, "Payment request is not signed", ""
	}

	switch pr.envelope.PKIType {
	case "x509+sha1", "x509+sha256":
		return v.verifyX509(pr)
	case "dnssec+btc", "dnssec+ecdsa":
		return v.verifyAlias(pr, resolver)
	default:
		return false, fmt.Sprintf("Unsupported PKI type %q", pr.envelope.PKIType), ""
	}
}

func (v *Verifier) verifyX509(pr *PaymentRequest) (bool, string, string) {
	certs, err := wire.ParseCertificateList(pr.envelope.PKIData)
	if err != nil {
		return false, fmt.Sprintf("Cannot decode certificate list: %v", err), ""
	}
	signingBytes, err := pr.envelope.SigningBytes()
	if err != nil {
		return false, fmt.Sprintf("Cannot reserialize request: %v", err), ""
	}

	res, err := v.chain.Verify(certs, signingBytes, pr.envelope.Signature, pr.envelope.PKIType)
	if err != nil {
		return false, err.Error(), ""
	}
	return true, "Signed by Trusted CA: " + res.AnchorCN, res.Requestor
}

func (v *Verifier) verifyAlias(pr *PaymentRequest, resolver AliasResolver) (bool, string, string) {
	alias := string(pr.envelope.PKIData)
	if resolver == nil {
		return false, "No alias resolver configured", ""
	}

	info, err := resolver.Resolve(alias)
	if err != nil {
		return false, fmt.Sprintf("Alias resolution failed: %v", err), ""
	}
	if !info.Validated {
		return false, "Alias verification failed (DNSSEC)", ""
	}

	switch pr.envelope.PKIType {
	case "dnssec+btc":
		// The validated alias is the requestor from here on, even
		// when the signature below does not check out.
		signingBytes, err := pr.envelope.SigningBytes()
		if err != nil {
			return false, fmt.Sprintf("Cannot reserialize request: %v", err), alias
		}
		if err := bitcoin.VerifyMessage(info.Address, pr.envelope.Signature, signingBytes); err != nil {
			return false, fmt.Sprintf("Alias signature verification failed: %v", err), alias
		}
		return true, "Verified with DNSSEC", alias

	default:
		return false, fmt.Sprintf("Verification not implemented for PKI type %q", pr.envelope.PKIType), ""
	}
}
