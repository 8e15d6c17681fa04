package memory

import (
	"context"
	"sort"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// AttemptStore is an in-memory implementation of storage.AttemptStore.
type AttemptStore struct {
	mu   sync.RWMutex
	data []*domain.PaymentAttempt
}

// NewAttemptStore creates a new in-memory attempt store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{}
}

var _ storage.AttemptStore = (*AttemptStore)(nil)

// Insert adds a new attempt entry.
func (s *AttemptStore) Insert(_ context.Context, a *domain.PaymentAttempt) error {
	if a == nil || a.PaymentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *a
	s.data = append(s.data, &copy)
	return nil
}

// GetByPaymentID retrieves all attempts for a payment, ordered by
// creation time ASC.
func (s *AttemptStore) GetByPaymentID(_ context.Context, paymentID string) ([]*domain.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PaymentAttempt
	for _, a := range s.data {
		if a.PaymentID == paymentID {
			copy := *a
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}
