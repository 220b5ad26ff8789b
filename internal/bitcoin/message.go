package bitcoin

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Prefix applied to every signed message, as in the original client's
// signmessage RPC. The leading 0x18 is the length of the text that follows.
const messageMagic = "\x18Bitcoin Signed Message:\n"

func appendCompactSize(b []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(b, byte(n))
	case n <= 0xffff:
		b = append(b, 0xfd)
		return binary.LittleEndian.AppendUint16(b, uint16(n))
	case n <= 0xffffffff:
		b = append(b, 0xfe)
		return binary.LittleEndian.AppendUint32(b, uint32(n))
	default:
		b = append(b, 0xff)
		return binary.LittleEndian.AppendUint64(b, n)
	}
}

// MessageDigest returns the double SHA256 hash that bitcoin message
// signatures actually cover.
func MessageDigest(message []byte) []byte {
	buf := make([]byte, 0, len(messageMagic)+9+len(message))
	buf = append(buf, messageMagic...)
	buf = appendCompactSize(buf, uint64(len(message)))
	buf = append(buf, message...)
	return DoubleSHA256(buf)
}

// VerifyMessage checks a 65 byte compact signature over message against a
// p2pkh address. The public key is recovered from the signature itself, so
// the address is the only identity input needed.
func VerifyMessage(address string, signature, message []byte) error {
	version, want, err := DecodeAddress(address)
	if err != nil {
		return err
	}
	if version != MainNetParams.P2PKHVersion && version != TestNetParams.P2PKHVersion {
		return fmt.Errorf("%w: message signatures require a p2pkh address", ErrInvalidAddress)
	}

	pub, compressed, err := ecdsa.RecoverCompact(signature, MessageDigest(message))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	serialized := serializeKey(pub, compressed)
	if !bytes.Equal(Hash160(serialized), want) {
		return fmt.Errorf("%w: recovered key does not match address", ErrSignatureInvalid)
	}

	return nil
}

// SignMessage produces a compact signature over message that
// VerifyMessage accepts for the key's p2pkh address.
func SignMessage(priv *secp256k1.PrivateKey, message []byte, compressed bool) []byte {
	return ecdsa.SignCompact(priv, MessageDigest(message), compressed)
}

// AddressForKey returns the p2pkh address of a public key.
func AddressForKey(pub *secp256k1.PublicKey, compressed bool, params Params) string {
	return EncodeAddress(params.P2PKHVersion, Hash160(serializeKey(pub, compressed)))
}

func serializeKey(pub *secp256k1.PublicKey, compressed bool) []byte {
	if compressed {
		return pub.SerializeCompressed()
	}
	return pub.SerializeUncompressed()
}
