// Package chain confirms transaction finality against the Solana ledger.
package chain

import (
	"context"
	"fmt"
	"time"

	"solana-payment-gateway/internal/solana"
)

// DefaultConfirmTimeout bounds a single confirmation call. A timeout is
// reported as a failed confirmation, not an error the pipeline retries.
const DefaultConfirmTimeout = 15 * time.Second

// Confirmation is the result of checking a transaction on chain.
type Confirmation struct {
	IsValid bool
	Status  string // confirmation status reported by the cluster
	Error   string // reason when IsValid is false
}

// Verifier confirms that a transaction is committed on the ledger.
type Verifier interface {
	Confirm(ctx context.Context, signature string) (*Confirmation, error)
}

// RPCVerifier implements Verifier against a Solana RPC endpoint.
type RPCVerifier struct {
	rpc     solana.RPCClient
	timeout time.Duration
}

// NewRPCVerifier creates a verifier backed by the given RPC client.
func NewRPCVerifier(rpc solana.RPCClient) *RPCVerifier {
	return &RPCVerifier{rpc: rpc, timeout: DefaultConfirmTimeout}
}

// WithTimeout overrides the per-call confirmation timeout.
func (v *RPCVerifier) WithTimeout(d time.Duration) *RPCVerifier {
	v.timeout = d
	return v
}

var _ Verifier = (*RPCVerifier)(nil)

// Confirm checks the signature status on the cluster. Retries and
// backoff live inside the RPC client; this call only bounds the total
// time budget. Never returns an error for business outcomes - an
// unknown or failed transaction is a Confirmation with IsValid=false.
func (v *RPCVerifier) Confirm(ctx context.Context, signature string) (*Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	status, err := v.rpc.GetSignatureStatus(ctx, signature)
	if err != nil {
		return &Confirmation{
			IsValid: false,
			Error:   fmt.Sprintf("chain verification failed: %v", err),
		}, nil
	}

	if status == nil {
		return &Confirmation{
			IsValid: false,
			Error:   "transaction not found on chain",
		}, nil
	}

	if status.Err != nil {
		return &Confirmation{
			IsValid: false,
			Status:  status.ConfirmationStatus,
			Error:   fmt.Sprintf("transaction failed on chain: %v", status.Err),
		}, nil
	}

	switch status.ConfirmationStatus {
	case solana.CommitmentConfirmed, solana.CommitmentFinalized:
		return &Confirmation{IsValid: true, Status: status.ConfirmationStatus}, nil
	default:
		return &Confirmation{
			IsValid: false,
			Status:  status.ConfirmationStatus,
			Error:   fmt.Sprintf("transaction not yet confirmed (status=%s)", status.ConfirmationStatus),
		}, nil
	}
}

// StaticVerifier is a Verifier returning a fixed result, for tests and
// offline replay.
type StaticVerifier struct {
	Result Confirmation
}

// Confirm returns the fixed result with the signature-independent fields.
func (v *StaticVerifier) Confirm(_ context.Context, _ string) (*Confirmation, error) {
	r := v.Result
	return &r, nil
}

var _ Verifier = (*StaticVerifier)(nil)
