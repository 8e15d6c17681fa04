// Package refkey derives the business reference key correlating an
// on-chain transfer to an order or purchase.
package refkey

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// refPattern matches "ref:<identifier>" in a transfer description.
// The identifier is alphanumeric/underscore; anything else terminates
// the match. The captured group is used verbatim as an opaque string,
// so markup embedded in a description cannot be re-interpreted.
var refPattern = regexp.MustCompile(`ref:(\w+)`)

// DerivedPrefix marks reference keys synthesized from the transaction
// signature when the description carries no ref tag.
const DerivedPrefix = "webhook_"

// derivedHexLen is the number of hex digits of the signature digest
// kept in a derived key.
const derivedHexLen = 16

// Resolve returns the reference key for a transfer. If the description
// contains "ref:<identifier>", that identifier is the key. Otherwise
// the key is "webhook_" plus the first 16 hex chars of
// SHA256(signature).
//
// Resolve is pure and deterministic: repeated deliveries of the same
// transaction always resolve to the same key.
func Resolve(description, signature string) string {
	if m := refPattern.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return DerivedPrefix + digest(signature)[:derivedHexLen]
}

// digest returns the hex-encoded SHA256 of s.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
