package storage

import (
	"context"

	"solana-payment-gateway/internal/domain"
)

// PaymentStore provides access to payments storage.
//
// Insert doubles as the idempotency claim: both tx_signature and
// reference_key carry unique constraints, so concurrent deliveries of
// the same transaction race on the insert and exactly one wins.
type PaymentStore interface {
	// Insert adds a new payment in PENDING state. Returns
	// ErrDuplicateKey if a record already exists for the signature or
	// the reference key.
	Insert(ctx context.Context, p *domain.PaymentRecord) error

	// GetBySignature retrieves a payment by transaction signature.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, txSignature string) (*domain.PaymentRecord, error)

	// GetByReferenceKey retrieves a payment by reference key.
	// Returns ErrNotFound if not exists.
	GetByReferenceKey(ctx context.Context, referenceKey string) (*domain.PaymentRecord, error)

	// Finalize transitions a PENDING payment to VERIFIED or FAILED.
	// The transition happens at most once; returns ErrNotFound when the
	// payment does not exist or was already decided.
	Finalize(ctx context.Context, paymentID string, status domain.PaymentStatus, decidedAt int64) error
}

// AttemptStore provides access to payment_attempts storage (append-only).
type AttemptStore interface {
	// Insert adds a new attempt entry.
	Insert(ctx context.Context, a *domain.PaymentAttempt) error

	// GetByPaymentID retrieves all attempts for a payment, ordered by
	// creation time ASC.
	GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PaymentAttempt, error)
}

// MetadataStore provides access to payment_metadata storage.
type MetadataStore interface {
	// Set writes a key/value pair for a payment, overwriting any
	// previous value for the key.
	Set(ctx context.Context, m *domain.PaymentMetadata) error

	// GetByPaymentID retrieves all metadata rows for a payment.
	GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PaymentMetadata, error)
}

// WebhookEventStore provides access to webhook_events storage. One row
// is written per delivery, independent of whether a payment was created.
type WebhookEventStore interface {
	// Insert adds a raw delivery record.
	Insert(ctx context.Context, e *domain.WebhookEventLog) error

	// GetRecent retrieves up to limit most recent delivery records,
	// newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.WebhookEventLog, error)
}

// AuditLogStore provides access to policy_audit_log storage (append-only).
type AuditLogStore interface {
	// Insert adds the rule evaluations of one policy run.
	Insert(ctx context.Context, entries []*domain.PolicyAuditEntry) error

	// GetByPaymentID retrieves all audit rows for a payment.
	GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PolicyAuditEntry, error)
}

// TransferHistoryStore records processed transfers and serves the
// velocity counters read by the policy rules. Counts are best-effort;
// eventually-consistent results are acceptable.
type TransferHistoryStore interface {
	// Record adds one processed transfer.
	Record(ctx context.Context, e *domain.TransferHistoryEntry) error

	// CountFromAddress returns the number of recorded transfers sent by
	// fromAddress at or after since (Unix milliseconds).
	CountFromAddress(ctx context.Context, fromAddress string, since int64) (int, error)
}
