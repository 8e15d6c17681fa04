package memory

import (
	"context"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// AuditLogStore is an in-memory implementation of storage.AuditLogStore.
type AuditLogStore struct {
	mu   sync.RWMutex
	data []*domain.PolicyAuditEntry
}

// NewAuditLogStore creates a new in-memory audit log store.
func NewAuditLogStore() *AuditLogStore {
	return &AuditLogStore{}
}

var _ storage.AuditLogStore = (*AuditLogStore)(nil)

// Insert adds the rule evaluations of one policy run.
func (s *AuditLogStore) Insert(_ context.Context, entries []*domain.PolicyAuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e == nil || e.RuleName == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		copy := *e
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByPaymentID retrieves all audit rows for a payment.
func (s *AuditLogStore) GetByPaymentID(_ context.Context, paymentID string) ([]*domain.PolicyAuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PolicyAuditEntry
	for _, e := range s.data {
		if e.PaymentID == paymentID {
			copy := *e
			result = append(result, &copy)
		}
	}
	return result, nil
}
