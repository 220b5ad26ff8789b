package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// PaymentDetails message field numbers (BIP70)
const (
	detFieldNetwork      = 1
	detFieldOutputs      = 2
	detFieldTime         = 3
	detFieldExpires      = 4
	detFieldMemo         = 5
	detFieldPaymentURL   = 6
	detFieldMerchantData = 7
)

// Output message field numbers (BIP70)
const (
	outFieldAmount = 1
	outFieldScript = 2
)

// Output is a single requested payment output: an amount in satoshis and
// the serialized script the coins must be sent to.
type Output struct {
	Amount uint64
	Script []byte
}

// PaymentDetails carries the merchant's actual request: where to pay, how
// much, and until when. Expires of zero means the request never expires.
type PaymentDetails struct {
	Network      string
	Outputs      []Output
	Time         uint64
	Expires      uint64
	Memo         string
	PaymentURL   string
	MerchantData []byte
}

func ParsePaymentDetails(raw []byte) (*PaymentDetails, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payment details", ErrEmptyMessage)
	}

	det := &PaymentDetails{Network: "main"}
	sawTime := false

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch {
		case num == detFieldNetwork && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.Network = string(v)
			b = b[m:]

		case num == detFieldOutputs && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			out, err := parseOutput(v)
			if err != nil {
				return nil, err
			}
			det.Outputs = append(det.Outputs, out)
			b = b[m:]

		case num == detFieldTime && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.Time = v
			sawTime = true
			b = b[m:]

		case num == detFieldExpires && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.Expires = v
			b = b[m:]

		case num == detFieldMemo && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.Memo = string(v)
			b = b[m:]

		case num == detFieldPaymentURL && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.PaymentURL = string(v)
			b = b[m:]

		case num == detFieldMerchantData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			det.MerchantData = append([]byte(nil), v...)
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, malformed(m)
			}
			b = b[m:]
		}
	}

	if !sawTime {
		return nil, fmt.Errorf("%w: time", ErrMissingField)
	}

	return det, nil
}

func parseOutput(raw []byte) (Output, error) {
	var out Output
	sawScript := false

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return out, malformed(n)
		}
		b = b[n:]

		switch {
		case num == outFieldAmount && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return out, malformed(m)
			}
			out.Amount = v
			b = b[m:]

		case num == outFieldScript && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return out, malformed(m)
			}
			out.Script = append([]byte(nil), v...)
			sawScript = true
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return out, malformed(m)
			}
			b = b[m:]
		}
	}

	if !sawScript {
		return out, fmt.Errorf("%w: output script", ErrMissingField)
	}

	return out, nil
}

// EncodePaymentDetails serializes details in field number order. Network
// "main" is the protocol default and is not written.
func EncodePaymentDetails(d *PaymentDetails) []byte {
	var out []byte

	if d.Network != "" && d.Network != "main" {
		out = protowire.AppendTag(out, detFieldNetwork, protowire.BytesType)
		out = protowire.AppendString(out, d.Network)
	}
	for _, o := range d.Outputs {
		out = protowire.AppendTag(out, detFieldOutputs, protowire.BytesType)
		out = protowire.AppendBytes(out, encodeOutput(o))
	}
	out = protowire.AppendTag(out, detFieldTime, protowire.VarintType)
	out = protowire.AppendVarint(out, d.Time)
	if d.Expires != 0 {
		out = protowire.AppendTag(out, detFieldExpires, protowire.VarintType)
		out = protowire.AppendVarint(out, d.Expires)
	}
	if d.Memo != "" {
		out = protowire.AppendTag(out, detFieldMemo, protowire.BytesType)
		out = protowire.AppendString(out, d.Memo)
	}
	if d.PaymentURL != "" {
		out = protowire.AppendTag(out, detFieldPaymentURL, protowire.BytesType)
		out = protowire.AppendString(out, d.PaymentURL)
	}
	if len(d.MerchantData) > 0 {
		out = protowire.AppendTag(out, detFieldMerchantData, protowire.BytesType)
		out = protowire.AppendBytes(out, d.MerchantData)
	}

	return out
}

func encodeOutput(o Output) []byte {
	var out []byte
	if o.Amount != 0 {
		out = protowire.AppendTag(out, outFieldAmount, protowire.VarintType)
		out = protowire.AppendVarint(out, o.Amount)
	}
	out = protowire.AppendTag(out, outFieldScript, protowire.BytesType)
	out = protowire.AppendBytes(out, o.Script)
	return out
}
