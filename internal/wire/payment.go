package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Payment message field numbers (BIP70)
const (
	payFieldMerchantData = 1
	payFieldTransactions = 2
	payFieldRefundTo     = 3
	payFieldMemo         = 4
)

// PaymentACK message field numbers (BIP70)
const (
	ackFieldPayment = 1
	ackFieldMemo    = 2
)

// Payment is sent to the merchant's payment_url after the transactions
// have been broadcast. MerchantData echoes the value from the request.
type Payment struct {
	MerchantData []byte
	Transactions [][]byte
	RefundTo     []Output
	Memo         string
}

// PaymentACK is the merchant's reply to a Payment.
type PaymentACK struct {
	Payment *Payment
	Memo    string
}

func EncodePayment(p *Payment) []byte {
	var out []byte

	if len(p.MerchantData) > 0 {
		out = protowire.AppendTag(out, payFieldMerchantData, protowire.BytesType)
		out = protowire.AppendBytes(out, p.MerchantData)
	}
	for _, tx := range p.Transactions {
		out = protowire.AppendTag(out, payFieldTransactions, protowire.BytesType)
		out = protowire.AppendBytes(out, tx)
	}
	for _, o := range p.RefundTo {
		out = protowire.AppendTag(out, payFieldRefundTo, protowire.BytesType)
		out = protowire.AppendBytes(out, encodeOutput(o))
	}
	if p.Memo != "" {
		out = protowire.AppendTag(out, payFieldMemo, protowire.BytesType)
		out = protowire.AppendString(out, p.Memo)
	}

	return out
}

func ParsePayment(raw []byte) (*Payment, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payment", ErrEmptyMessage)
	}

	p := &Payment{}

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch {
		case num == payFieldMerchantData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			p.MerchantData = append([]byte(nil), v...)
			b = b[m:]

		case num == payFieldTransactions && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			p.Transactions = append(p.Transactions, append([]byte(nil), v...))
			b = b[m:]

		case num == payFieldRefundTo && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			out, err := parseOutput(v)
			if err != nil {
				return nil, err
			}
			p.RefundTo = append(p.RefundTo, out)
			b = b[m:]

		case num == payFieldMemo && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			p.Memo = string(v)
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, malformed(m)
			}
			b = b[m:]
		}
	}

	return p, nil
}

func EncodePaymentACK(a *PaymentACK) []byte {
	var out []byte

	payment := a.Payment
	if payment == nil {
		payment = &Payment{}
	}
	out = protowire.AppendTag(out, ackFieldPayment, protowire.BytesType)
	out = protowire.AppendBytes(out, EncodePayment(payment))
	if a.Memo != "" {
		out = protowire.AppendTag(out, ackFieldMemo, protowire.BytesType)
		out = protowire.AppendString(out, a.Memo)
	}

	return out
}

func ParsePaymentACK(raw []byte) (*PaymentACK, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payment ack", ErrEmptyMessage)
	}

	ack := &PaymentACK{}

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		switch {
		case num == ackFieldPayment && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			p := &Payment{}
			if len(v) > 0 {
				var err error
				p, err = ParsePayment(v)
				if err != nil {
					return nil, err
				}
			}
			ack.Payment = p
			b = b[m:]

		case num == ackFieldMemo && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			ack.Memo = string(v)
			b = b[m:]

		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, malformed(m)
			}
			b = b[m:]
		}
	}

	if ack.Payment == nil {
		return nil, fmt.Errorf("%w: payment", ErrMissingField)
	}

	return ack, nil
}
