package webhook

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"TRANSFER","signature":"abc"}`)
	secret := "shared-secret"
	good := ComputeSignature(body, secret)

	tests := []struct {
		name     string
		body     []byte
		provided string
		secret   string
		want     bool
	}{
		{"valid", body, good, secret, true},
		{"wrong secret", body, good, "other-secret", false},
		{"tampered body", []byte(`{"type":"TRANSFER","signature":"abd"}`), good, secret, false},
		{"empty signature", body, "", secret, false},
		{"empty secret", body, good, "", false},
		{"truncated signature", body, good[:32], secret, false},
		{"uppercase hex rejected", body, strings.ToUpper(good), secret, false},
		{"empty body valid", nil, ComputeSignature(nil, secret), secret, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.body, tt.provided, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeSignatureIsLowercaseHex(t *testing.T) {
	sig := ComputeSignature([]byte("payload"), "secret")
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Errorf("signature not lowercase: %s", sig)
	}
}
