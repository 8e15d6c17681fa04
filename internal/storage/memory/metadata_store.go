package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// MetadataStore is an in-memory implementation of storage.MetadataStore.
type MetadataStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PaymentMetadata // keyed by payment_id|key
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		data: make(map[string]*domain.PaymentMetadata),
	}
}

var _ storage.MetadataStore = (*MetadataStore)(nil)

func metadataKey(paymentID, key string) string {
	return fmt.Sprintf("%s|%s", paymentID, key)
}

// Set writes a key/value pair, overwriting any previous value.
func (s *MetadataStore) Set(_ context.Context, m *domain.PaymentMetadata) error {
	if m == nil || m.PaymentID == "" || m.Key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *m
	s.data[metadataKey(m.PaymentID, m.Key)] = &copy
	return nil
}

// GetByPaymentID retrieves all metadata rows for a payment.
func (s *MetadataStore) GetByPaymentID(_ context.Context, paymentID string) ([]*domain.PaymentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PaymentMetadata
	for _, m := range s.data {
		if m.PaymentID == paymentID {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result, nil
}
