// Package webhook implements authentication and parsing of inbound
// Solana transfer webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// VerifySignature checks that the webhook body was produced by the
// trusted sender. It computes HMAC-SHA256 over the exact raw bytes of
// the body, encodes it as lowercase hex, and compares against the
// provided signature in constant time.
//
// Returns false on any mismatch, missing signature, or empty secret.
// Never panics or returns an error: a body that fails this check is
// untrusted and must not be parsed.
func VerifySignature(rawBody []byte, providedSignature, sharedSecret string) bool {
	if providedSignature == "" || sharedSecret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(expected) != len(providedSignature) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(providedSignature)) == 1
}

// ComputeSignature returns the lowercase hex HMAC-SHA256 of the body.
// Used by tests and by the replay tooling to re-sign stored deliveries.
func ComputeSignature(rawBody []byte, sharedSecret string) string {
	mac := hmac.New(sha256.New, []byte(sharedSecret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
