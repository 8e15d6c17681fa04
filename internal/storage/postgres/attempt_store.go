package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// AttemptStore implements storage.AttemptStore using PostgreSQL.
type AttemptStore struct {
	pool *Pool
}

// NewAttemptStore creates a new AttemptStore.
func NewAttemptStore(pool *Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

var _ storage.AttemptStore = (*AttemptStore)(nil)

// Insert adds a new attempt entry.
func (s *AttemptStore) Insert(ctx context.Context, a *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (
			id, payment_id, attempt_type, outcome, risk_score, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		a.PaymentID,
		a.AttemptType,
		a.Outcome,
		a.RiskScore,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment attempt: %w", err)
	}
	return nil
}

// GetByPaymentID retrieves all attempts for a payment, ordered by
// creation time ASC.
func (s *AttemptStore) GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PaymentAttempt, error) {
	query := `
		SELECT id, payment_id, attempt_type, outcome, risk_score, created_at
		FROM payment_attempts
		WHERE payment_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get attempts by payment id: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// scanAttempts scans multiple rows into a slice of PaymentAttempt.
func scanAttempts(rows pgx.Rows) ([]*domain.PaymentAttempt, error) {
	var attempts []*domain.PaymentAttempt

	for rows.Next() {
		var a domain.PaymentAttempt

		err := rows.Scan(
			&a.ID,
			&a.PaymentID,
			&a.AttemptType,
			&a.Outcome,
			&a.RiskScore,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}

		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}

	return attempts, nil
}
