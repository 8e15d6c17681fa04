package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsValidAddress reports whether s is a well-formed base58-encoded
// 32-byte Solana public key.
func IsValidAddress(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsOnCurve reports whether the address decodes to a point on the
// ed25519 curve. System accounts are on-curve; PDAs are not.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
