package memory

import (
	"context"
	"sort"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// WebhookEventStore is an in-memory implementation of storage.WebhookEventStore.
type WebhookEventStore struct {
	mu   sync.RWMutex
	data []*domain.WebhookEventLog
}

// NewWebhookEventStore creates a new in-memory webhook event store.
func NewWebhookEventStore() *WebhookEventStore {
	return &WebhookEventStore{}
}

var _ storage.WebhookEventStore = (*WebhookEventStore)(nil)

// Insert adds a raw delivery record.
func (s *WebhookEventStore) Insert(_ context.Context, e *domain.WebhookEventLog) error {
	if e == nil || e.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.data = append(s.data, &copy)
	return nil
}

// GetRecent retrieves up to limit most recent records, newest first.
func (s *WebhookEventStore) GetRecent(_ context.Context, limit int) ([]*domain.WebhookEventLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WebhookEventLog, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	return result, nil
}

// All returns every stored record (test helper).
func (s *WebhookEventStore) All() []*domain.WebhookEventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WebhookEventLog, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}
	return result
}
