package domain

// PaymentStatus is the lifecycle state of a payment record.
// A record transitions out of PENDING exactly once and is never deleted.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// PaymentRecord represents a single credited on-chain transaction.
// Corresponds to payments table. TxSignature and ReferenceKey each carry
// a unique constraint; at most one record exists per transaction.
type PaymentRecord struct {
	ID               string        // UUID
	TxSignature      string        // unique
	ReferenceKey     string        // unique, business correlation key
	AmountMinorUnits int64         // lamports / raw token units
	TokenMint        string        // empty for native transfers
	Status           PaymentStatus
	CreatedAt        int64         // Unix timestamp in milliseconds
	DecidedAt        int64         // 0 while PENDING
}

// Attempt type constants for PaymentAttempt.
const (
	AttemptTypeVerification = "verification"
	AttemptTypePolicy       = "policy"
)

// PaymentAttempt is an append-only audit entry for one pipeline run
// against a payment. Corresponds to payment_attempts table.
type PaymentAttempt struct {
	ID          string // UUID
	PaymentID   string // FK to payments
	AttemptType string // "verification" | "policy"
	Outcome     string // free-text outcome, e.g. "allowed", "chain verification failed: ..."
	RiskScore   int    // summed policy score for policy attempts, 0 otherwise
	CreatedAt   int64  // Unix timestamp in milliseconds
}

// Metadata keys stored per payment in payment_metadata.
const (
	MetadataKeyTokenMint       = "token_mint"
	MetadataKeyIsTokenTransfer = "is_token_transfer"
	MetadataKeyTransferKind    = "transfer_kind"
)

// PaymentMetadata is a key/value row attached to a payment.
type PaymentMetadata struct {
	PaymentID string
	Key       string
	Value     string
	CreatedAt int64
}
