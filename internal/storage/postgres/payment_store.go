package postgres

import (
	"context"
	"fmt"
	"time"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/observability"
	"solana-payment-gateway/internal/storage"
)

// PaymentStore implements storage.PaymentStore using PostgreSQL.
// The unique indexes on tx_signature and reference_key make Insert the
// atomic idempotency claim: a race loser gets a unique violation, never
// a second row.
type PaymentStore struct {
	pool *Pool
}

// NewPaymentStore creates a new PaymentStore.
func NewPaymentStore(pool *Pool) *PaymentStore {
	return &PaymentStore{pool: pool}
}

var _ storage.PaymentStore = (*PaymentStore)(nil)

// Insert adds a new payment. Returns ErrDuplicateKey if the signature
// or the reference key already exists.
func (s *PaymentStore) Insert(ctx context.Context, p *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (
			id, tx_signature, reference_key, amount_minor_units, token_mint, status, created_at, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.TxSignature,
		p.ReferenceKey,
		p.AmountMinorUnits,
		p.TokenMint,
		string(p.Status),
		p.CreatedAt,
		p.DecidedAt,
	)
	if err != nil && isDuplicateKeyError(err) {
		// A lost claim race is an expected outcome, not a query error.
		observability.RecordDBQuery("postgres", "insert_payment", time.Since(start).Seconds(), nil)
		return storage.ErrDuplicateKey
	}
	observability.RecordDBQuery("postgres", "insert_payment", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetBySignature retrieves a payment by transaction signature.
func (s *PaymentStore) GetBySignature(ctx context.Context, txSignature string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, tx_signature, reference_key, amount_minor_units, token_mint, status, created_at, decided_at
		FROM payments
		WHERE tx_signature = $1
	`
	return s.getOne(ctx, query, txSignature)
}

// GetByReferenceKey retrieves a payment by reference key.
func (s *PaymentStore) GetByReferenceKey(ctx context.Context, referenceKey string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, tx_signature, reference_key, amount_minor_units, token_mint, status, created_at, decided_at
		FROM payments
		WHERE reference_key = $1
	`
	return s.getOne(ctx, query, referenceKey)
}

func (s *PaymentStore) getOne(ctx context.Context, query string, arg any) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	var status string

	start := time.Now()
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.TxSignature,
		&p.ReferenceKey,
		&p.AmountMinorUnits,
		&p.TokenMint,
		&status,
		&p.CreatedAt,
		&p.DecidedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			observability.RecordDBQuery("postgres", "get_payment", time.Since(start).Seconds(), nil)
			return nil, storage.ErrNotFound
		}
		observability.RecordDBQuery("postgres", "get_payment", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("get payment: %w", err)
	}
	observability.RecordDBQuery("postgres", "get_payment", time.Since(start).Seconds(), nil)

	p.Status = domain.PaymentStatus(status)
	return &p, nil
}

// Finalize transitions a PENDING payment to VERIFIED or FAILED. The
// status guard in the WHERE clause makes the transition at-most-once.
func (s *PaymentStore) Finalize(ctx context.Context, paymentID string, status domain.PaymentStatus, decidedAt int64) error {
	if status != domain.PaymentStatusVerified && status != domain.PaymentStatusFailed {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE payments
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, paymentID, string(status), decidedAt)
	observability.RecordDBQuery("postgres", "finalize_payment", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("finalize payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
