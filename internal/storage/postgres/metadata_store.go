package postgres

import (
	"context"
	"fmt"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// MetadataStore implements storage.MetadataStore using PostgreSQL.
type MetadataStore struct {
	pool *Pool
}

// NewMetadataStore creates a new MetadataStore.
func NewMetadataStore(pool *Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

var _ storage.MetadataStore = (*MetadataStore)(nil)

// Set writes a key/value pair for a payment, overwriting any previous
// value for the key.
func (s *MetadataStore) Set(ctx context.Context, m *domain.PaymentMetadata) error {
	query := `
		INSERT INTO payment_metadata (payment_id, key, value, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id, key) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := s.pool.Exec(ctx, query, m.PaymentID, m.Key, m.Value, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("set payment metadata: %w", err)
	}
	return nil
}

// GetByPaymentID retrieves all metadata rows for a payment.
func (s *MetadataStore) GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PaymentMetadata, error) {
	query := `
		SELECT payment_id, key, value, created_at
		FROM payment_metadata
		WHERE payment_id = $1
		ORDER BY key ASC
	`

	rows, err := s.pool.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get metadata by payment id: %w", err)
	}
	defer rows.Close()

	var result []*domain.PaymentMetadata
	for rows.Next() {
		var m domain.PaymentMetadata
		if err := rows.Scan(&m.PaymentID, &m.Key, &m.Value, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata rows: %w", err)
	}

	return result, nil
}
