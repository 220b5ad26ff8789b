package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PaymentRequest message field numbers (BIP70)
const (
	envFieldVersion   = 1
	envFieldPKIType   = 2
	envFieldPKIData   = 3
	envFieldDetails   = 4
	envFieldSignature = 5
)

// RequestEnvelope is the outer BIP70 PaymentRequest message. The raw wire
// encoding is retained so the exact bytes covered by the signature can be
// reproduced later, including unknown fields and original field order.
type RequestEnvelope struct {
	PaymentDetailsVersion uint32
	PKIType               string
	PKIData               []byte
	SerializedDetails     []byte
	Signature             []byte

	raw []byte
}

func ParseRequestEnvelope(raw []byte) (*RequestEnvelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payment request", ErrEmptyMessage)
	}

	env := &RequestEnvelope{
		PaymentDetailsVersion: 1,
		PKIType:               "none",
		raw:                   append([]byte(nil), raw...),
	}

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch {
		case num == envFieldVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed(m)
			}
			env.PaymentDetailsVersion = uint32(v)
			b = b[m:]

		case num == envFieldPKIType && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			env.PKIType = string(v)
			b = b[m:]

		case num == envFieldPKIData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			env.PKIData = append([]byte(nil), v...)
			b = b[m:]

		case num == envFieldDetails && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			env.SerializedDetails = append([]byte(nil), v...)
			b = b[m:]

		case num == envFieldSignature && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			env.Signature = append([]byte(nil), v...)
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, malformed(m)
			}
			b = b[m:]
		}
	}

	if env.SerializedDetails == nil {
		return nil, fmt.Errorf("%w: serialized_payment_details", ErrMissingField)
	}

	return env, nil
}

// Raw returns the wire encoding the envelope was parsed from, or the
// last encoding produced by EncodeRequestEnvelope.
func (e *RequestEnvelope) Raw() []byte {
	return e.raw
}

// SigningBytes returns the request encoding with the signature field value
// replaced by the empty value. BIP70 signatures cover exactly these bytes:
// the full serialized request with signature set to a zero length string.
// All other fields, including ones this package does not know about, pass
// through byte for byte in their original order.
func (e *RequestEnvelope) SigningBytes() ([]byte, error) {
	if e.raw == nil {
		return nil, fmt.Errorf("%w: envelope has no wire encoding", ErrEmptyMessage)
	}

	out := make([]byte, 0, len(e.raw))
	b := e.raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		tag := b[:n]
		b = b[n:]

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, malformed(m)
		}

		if num == envFieldSignature && typ == protowire.BytesType {
			out = protowire.AppendTag(out, envFieldSignature, protowire.BytesType)
			out = protowire.AppendVarint(out, 0)
		} else {
			out = append(out, tag...)
			out = append(out, b[:m]...)
		}
		b = b[m:]
	}

	return out, nil
}

// EncodeRequestEnvelope serializes the envelope and refreshes its raw
// encoding. The signature field is always emitted, a zero length value
// marks an unsigned request. Version 1 is implied and not written.
func EncodeRequestEnvelope(e *RequestEnvelope) []byte {
	var out []byte

	if e.PaymentDetailsVersion > 1 {
		out = protowire.AppendTag(out, envFieldVersion, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(e.PaymentDetailsVersion))
	}
	pkiType := e.PKIType
	if pkiType == "" {
		pkiType = "none"
	}
	out = protowire.AppendTag(out, envFieldPKIType, protowire.BytesType)
	out = protowire.AppendString(out, pkiType)
	if len(e.PKIData) > 0 {
		out = protowire.AppendTag(out, envFieldPKIData, protowire.BytesType)
		out = protowire.AppendBytes(out, e.PKIData)
	}
	out = protowire.AppendTag(out, envFieldDetails, protowire.BytesType)
	out = protowire.AppendBytes(out, e.SerializedDetails)
	out = protowire.AppendTag(out, envFieldSignature, protowire.BytesType)
	out = protowire.AppendBytes(out, e.Signature)

	e.raw = out
	return out
}
