package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// Params selects the base58check version bytes for a bitcoin network.
type Params struct {
	P2PKHVersion byte
	P2SHVersion  byte
}

var (
	MainNetParams = Params{P2PKHVersion: 0x00, P2SHVersion: 0x05}
	TestNetParams = Params{P2PKHVersion: 0x6f, P2SHVersion: 0xc4}
)

// ParamsForNetwork maps a BIP70 network name to address parameters.
// Anything that is not testnet is treated as mainnet, matching the
// protocol default of "main".
func ParamsForNetwork(network string) Params {
	if network == "test" || network == "testnet" {
		return TestNetParams
	}
	return MainNetParams
}

// DoubleSHA256 returns sha256(sha256(b)).
func DoubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Hash160 returns ripemd160(sha256(b)), the hash inside addresses.
func Hash160(b []byte) []byte {
	h := sha256.Sum256(b)
	r := ripemd160.New()
	r.Write(h[:])
	return r.Sum(nil)
}

// TxID returns the transaction id of a raw transaction, the double
// SHA-256 in the reversed byte order transactions are referred to by.
func TxID(rawTx []byte) string {
	digest := DoubleSHA256(rawTx)
	for i, j := 0, len(digest)-1; i < j; i, j = i+1, j-1 {
		digest[i], digest[j] = digest[j], digest[i]
	}
	return hex.EncodeToString(digest)
}

// EncodeAddress base58check encodes a 20 byte hash under a version byte.
func EncodeAddress(version byte, hash []byte) string {
	payload := make([]byte, 0, 25)
	payload = append(payload, version)
	payload = append(payload, hash...)
	checksum := DoubleSHA256(payload)[:4]
	payload = append(payload, checksum...)
	return base58.Encode(payload)
}

// DecodeAddress returns the version byte and 20 byte hash of a
// base58check address after validating its checksum.
func DecodeAddress(addr string) (byte, []byte, error) {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != 25 {
		return 0, nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}

	payload, checksum := decoded[:21], decoded[21:]
	if !bytes.Equal(DoubleSHA256(payload)[:4], checksum) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	return payload[0], payload[1:], nil
}
