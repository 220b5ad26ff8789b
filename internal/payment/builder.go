package payment

import (
	"crypto/rsa"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/coinpath-labs/paymentd/internal/bitcoin"
	"github.com/coinpath-labs/paymentd/internal/pki"
	"github.com/coinpath-labs/paymentd/internal/wire"
)

// RequestParams describes a payment request to issue: a destination
// address, an amount in satoshis, and an optional expiry window.
type RequestParams struct {
	Address    string
	Amount     uint64
	Memo       string
	Time       time.Time
	Expiry     time.Duration
	PaymentURL string
	Network    string
}

// BuildUnsignedRequest assembles an unsigned request envelope around
// the given parameters. A zero Time means now.
func BuildUnsignedRequest(p RequestParams) (*wire.RequestEnvelope, error) {
	script, err := bitcoin.PayToAddrScript(p.Address)
	if err != nil {
		return nil, err
	}

	created := p.Time
	if created.IsZero() {
		created = time.Now()
	}
	det := &wire.PaymentDetails{
		Network:    p.Network,
		Outputs:    []wire.Output{{Amount: p.Amount, Script: script}},
		Time:       uint64(created.Unix()),
		Memo:       p.Memo,
		PaymentURL: p.PaymentURL,
	}
	if p.Expiry > 0 {
		det.Expires = uint64(created.Add(p.Expiry).Unix())
	}

	env := &wire.RequestEnvelope{
		PaymentDetailsVersion: 1,
		PKIType:               "none",
		SerializedDetails:     wire.EncodePaymentDetails(det),
		Signature:             []byte{},
	}
	wire.EncodeRequestEnvelope(env)
	return env, nil
}

// SignRequestWithAlias signs the envelope with the bitcoin key behind a
// DNSSEC alias and returns the finished request bytes. Verifiers
// resolve the alias to the signing address.
func SignRequestWithAlias(env *wire.RequestEnvelope, alias string, priv *secp256k1.PrivateKey, compressed bool) []byte {
	env.PKIType = "dnssec+btc"
	env.PKIData = []byte(alias)
	env.Signature = []byte{}

	signingBytes := wire.EncodeRequestEnvelope(env)
	env.Signature = bitcoin.SignMessage(priv, signingBytes, compressed)
	return wire.EncodeRequestEnvelope(env)
}

// SignRequestWithCertChain signs the envelope under an X.509 identity
// and returns the finished request bytes. chainDER is the certificate
// chain leaf first, and priv must be the leaf's RSA key.
func SignRequestWithCertChain(env *wire.RequestEnvelope, priv *rsa.PrivateKey, chainDER [][]byte) ([]byte, error) {
	env.PKIType = "x509+sha256"
	env.PKIData = wire.EncodeCertificateList(chainDER)
	env.Signature = []byte{}

	signingBytes := wire.EncodeRequestEnvelope(env)
	alg, err := pki.NewSignatureAlgorithmRegistry().EnvelopeAlgorithm(env.PKIType)
	if err != nil {
		return nil, err
	}
	sig, err := alg.Sign(priv, signingBytes)
	if err != nil {
		return nil, err
	}
	env.Signature = sig
	return wire.EncodeRequestEnvelope(env), nil
}
