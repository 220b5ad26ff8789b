package bitcoin

import (
	"encoding/hex"
	"fmt"
)

// Opcodes used by the two standard output templates
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqual       = 0x87
	opEqualVerify = 0x88
	opCheckSig    = 0xac
)

type ScriptType string

const (
	ScriptP2PKH ScriptType = "address"
	ScriptP2SH  ScriptType = "p2sh"
	ScriptRaw   ScriptType = "script"
)

// PayToAddrScript builds the output script paying to a base58check
// address. The address version byte decides the template.
func PayToAddrScript(addr string) ([]byte, error) {
	version, hash, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}

	switch version {
	case MainNetParams.P2PKHVersion, TestNetParams.P2PKHVersion:
		script := make([]byte, 0, 25)
		script = append(script, opDup, opHash160, 0x14)
		script = append(script, hash...)
		script = append(script, opEqualVerify, opCheckSig)
		return script, nil
	case MainNetParams.P2SHVersion, TestNetParams.P2SHVersion:
		script := make([]byte, 0, 23)
		script = append(script, opHash160, 0x14)
		script = append(script, hash...)
		script = append(script, opEqual)
		return script, nil
	}

	return nil, fmt.Errorf("%w: unknown version byte %#02x", ErrInvalidAddress, version)
}

// ClassifyScript recognizes the standard p2pkh and p2sh templates and
// renders their address under the given network parameters. Any other
// script is reported as raw with its hex payload, a request carrying a
// script type this code does not know must still decode.
func ClassifyScript(script []byte, params Params) (ScriptType, string) {
	switch {
	case len(script) == 25 && script[0] == opDup && script[1] == opHash160 &&
		script[2] == 0x14 && script[23] == opEqualVerify && script[24] == opCheckSig:
		return ScriptP2PKH, EncodeAddress(params.P2PKHVersion, script[3:23])

	case len(script) == 23 && script[0] == opHash160 && script[1] == 0x14 &&
		script[22] == opEqual:
		return ScriptP2SH, EncodeAddress(params.P2SHVersion, script[2:22])
	}

	return ScriptRaw, hex.EncodeToString(script)
}
