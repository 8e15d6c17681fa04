package postgres

import (
	"context"
	"fmt"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// WebhookEventStore implements storage.WebhookEventStore using PostgreSQL.
type WebhookEventStore struct {
	pool *Pool
}

// NewWebhookEventStore creates a new WebhookEventStore.
func NewWebhookEventStore(pool *Pool) *WebhookEventStore {
	return &WebhookEventStore{pool: pool}
}

var _ storage.WebhookEventStore = (*WebhookEventStore)(nil)

// Insert adds a raw delivery record.
func (s *WebhookEventStore) Insert(ctx context.Context, e *domain.WebhookEventLog) error {
	query := `
		INSERT INTO webhook_events (
			id, webhook_type, event_data, processed, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		e.WebhookType,
		e.EventData,
		e.Processed,
		e.ErrorMessage,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// GetRecent retrieves up to limit most recent delivery records, newest first.
func (s *WebhookEventStore) GetRecent(ctx context.Context, limit int) ([]*domain.WebhookEventLog, error) {
	query := `
		SELECT id, webhook_type, event_data, processed, error_message, created_at
		FROM webhook_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent webhook events: %w", err)
	}
	defer rows.Close()

	var result []*domain.WebhookEventLog
	for rows.Next() {
		var e domain.WebhookEventLog
		err := rows.Scan(
			&e.ID,
			&e.WebhookType,
			&e.EventData,
			&e.Processed,
			&e.ErrorMessage,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event row: %w", err)
		}
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook event rows: %w", err)
	}

	return result, nil
}
