package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/coinpath-labs/paymentd/internal/bitcoin"
	"github.com/coinpath-labs/paymentd/internal/wire"
)

// DecodedOutput is one requested payment destination. Address holds the
// base58check rendering for the standard templates and the raw script
// hex for anything else.
type DecodedOutput struct {
	Type    bitcoin.ScriptType
	Address string
	Amount  uint64
}

// PaymentRequest is a parsed merchant payment request together with its
// verification state. The raw bytes are retained so that signature
// checks and persistence always operate on exactly what was received.
type PaymentRequest struct {
	raw      []byte
	id       string
	envelope *wire.RequestEnvelope
	details  *wire.PaymentDetails
	outputs  []DecodedOutput

	requestor    string
	verified     bool
	verifyStatus string
	tx           string
}

// ParsePaymentRequest decodes raw request bytes into an entity. The id
// is derived from the content, so the same bytes always map to the same
// invoice.
func ParsePaymentRequest(raw []byte) (*PaymentRequest, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyRequest
	}

	sum := sha256.Sum256(raw)

	env, err := wire.ParseRequestEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestDecode, err)
	}
	det, err := wire.ParsePaymentDetails(env.SerializedDetails)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestDecode, err)
	}

	params := bitcoin.ParamsForNetwork(det.Network)
	outputs := make([]DecodedOutput, 0, len(det.Outputs))
	for _, o := range det.Outputs {
		typ, addr := bitcoin.ClassifyScript(o.Script, params)
		outputs = append(outputs, DecodedOutput{Type: typ, Address: addr, Amount: o.Amount})
	}

	return &PaymentRequest{
		raw:      append([]byte(nil), raw...),
		id:       hex.EncodeToString(sum[:16]),
		envelope: env,
		details:  det,
		outputs:  outputs,
	}, nil
}

// ID returns the content-derived invoice identifier.
func (pr *PaymentRequest) ID() string {
	return pr.id
}

// Raw returns the received request bytes. Callers must not modify the
// returned slice.
func (pr *PaymentRequest) Raw() []byte {
	return pr.raw
}

// Outputs returns a copy of the decoded payment destinations.
func (pr *PaymentRequest) Outputs() []DecodedOutput {
	out := make([]DecodedOutput, len(pr.outputs))
	copy(out, pr.outputs)
	return out
}

// Amount returns the total requested amount in satoshis, saturating at
// the maximum representable value instead of wrapping.
func (pr *PaymentRequest) Amount() uint64 {
	var total uint64
	for _, o := range pr.outputs {
		if total > math.MaxUint64-o.Amount {
			return math.MaxUint64
		}
		total += o.Amount
	}
	return total
}

// HasExpired reports whether the request carries an expiry timestamp
// that lies strictly in the past. Requests without one never expire.
func (pr *PaymentRequest) HasExpired() bool {
	return pr.details.Expires != 0 && pr.details.Expires < uint64(time.Now().Unix())
}

// ExpirationTime returns the expiry timestamp, or the zero time when
// the request never expires.
func (pr *PaymentRequest) ExpirationTime() time.Time {
	if pr.details.Expires == 0 {
		return time.Time{}
	}
	return time.Unix(int64(pr.details.Expires), 0)
}

// CreationTime returns the timestamp the merchant put on the request.
func (pr *PaymentRequest) CreationTime() time.Time {
	return time.Unix(int64(pr.details.Time), 0)
}

func (pr *PaymentRequest) Memo() string {
	return pr.details.Memo
}

func (pr *PaymentRequest) PaymentURL() string {
	return pr.details.PaymentURL
}

func (pr *PaymentRequest) Network() string {
	return pr.details.Network
}

// Requestor returns the verified signer identity, or "unknown" when the
// request has not been verified against a signer.
func (pr *PaymentRequest) Requestor() string {
	if pr.requestor == "" {
		return "unknown"
	}
	return pr.requestor
}

// VerifyStatus returns the human-readable outcome of the last
// verification attempt.
func (pr *PaymentRequest) VerifyStatus() string {
	return pr.verifyStatus
}

// IsVerified reports whether the last verification attempt succeeded.
func (pr *PaymentRequest) IsVerified() bool {
	return pr.verified
}

// Tx returns the transaction id recorded when the invoice was paid, or
// an empty string while it is outstanding.
func (pr *PaymentRequest) Tx() string {
	return pr.tx
}
