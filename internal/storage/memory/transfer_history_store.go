package memory

import (
	"context"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// TransferHistoryStore is an in-memory implementation of
// storage.TransferHistoryStore.
type TransferHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.TransferHistoryEntry
}

// NewTransferHistoryStore creates a new in-memory transfer history store.
func NewTransferHistoryStore() *TransferHistoryStore {
	return &TransferHistoryStore{}
}

var _ storage.TransferHistoryStore = (*TransferHistoryStore)(nil)

// Record adds one processed transfer.
func (s *TransferHistoryStore) Record(_ context.Context, e *domain.TransferHistoryEntry) error {
	if e == nil || e.FromAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.data = append(s.data, &copy)
	return nil
}

// CountFromAddress returns the number of transfers sent by fromAddress
// at or after since (Unix milliseconds).
func (s *TransferHistoryStore) CountFromAddress(_ context.Context, fromAddress string, since int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.data {
		if e.FromAddress == fromAddress && e.Timestamp >= since {
			count++
		}
	}
	return count, nil
}
