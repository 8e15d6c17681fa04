// Package solana provides a minimal Solana JSON-RPC client covering
// the calls the payment pipeline needs to confirm transactions.
package solana

import "context"

// Commitment levels for signature status queries.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// RPCClient defines the Solana RPC surface consumed by chain verification.
type RPCClient interface {
	// GetSignatureStatus retrieves the confirmation status of a
	// transaction signature. Returns nil when the signature is unknown
	// to the cluster.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)

	// GetTransaction retrieves a transaction by signature. Returns nil
	// when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// SignatureStatus is the cluster-reported status of a transaction.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64      // nil once rooted
	ConfirmationStatus string      // "processed" | "confirmed" | "finalized"
	Err                interface{} // non-nil when the transaction failed on chain
}

// Finalized reports whether the transaction is irreversibly committed.
func (s *SignatureStatus) Finalized() bool {
	return s.ConfirmationStatus == CommitmentFinalized
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}
