package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// X509Certificates message field number (BIP70)
const certFieldCertificate = 1

// ParseCertificateList decodes a BIP70 X509Certificates message into the
// DER encoded certificates it carries, leaf first.
func ParseCertificateList(raw []byte) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: certificate list", ErrEmptyMessage)
	}

	var certs [][]byte

	b := raw
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(n)
		}
		b = b[n:]

		if num == certFieldCertificate && typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed(m)
			}
			certs = append(certs, append([]byte(nil), v...))
			b = b[m:]
			continue
		}

		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return nil, malformed(m)
		}
		b = b[m:]
	}

	return certs, nil
}

// EncodeCertificateList serializes DER certificates into a BIP70
// X509Certificates message, preserving order.
func EncodeCertificateList(certs [][]byte) []byte {
	var out []byte
	for _, c := range certs {
		out = protowire.AppendTag(out, certFieldCertificate, protowire.BytesType)
		out = protowire.AppendBytes(out, c)
	}
	return out
}
