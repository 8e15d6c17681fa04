// Package memory provides in-memory storage implementations used by
// tests and the offline replay tooling.
package memory

import (
	"context"
	"sync"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// PaymentStore is an in-memory implementation of storage.PaymentStore.
// The single mutex gives the same atomicity as the database unique
// constraints: the insert check-and-claim happens under one lock.
type PaymentStore struct {
	mu          sync.RWMutex
	bySignature map[string]*domain.PaymentRecord
	byReference map[string]*domain.PaymentRecord
}

// NewPaymentStore creates a new in-memory payment store.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{
		bySignature: make(map[string]*domain.PaymentRecord),
		byReference: make(map[string]*domain.PaymentRecord),
	}
}

var _ storage.PaymentStore = (*PaymentStore)(nil)

// Insert adds a new payment. Returns ErrDuplicateKey if the signature
// or the reference key already exists.
func (s *PaymentStore) Insert(_ context.Context, p *domain.PaymentRecord) error {
	if p == nil || p.ID == "" || p.TxSignature == "" || p.ReferenceKey == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySignature[p.TxSignature]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byReference[p.ReferenceKey]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.bySignature[p.TxSignature] = &copy
	s.byReference[p.ReferenceKey] = &copy
	return nil
}

// GetBySignature retrieves a payment by transaction signature.
func (s *PaymentStore) GetBySignature(_ context.Context, txSignature string) (*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.bySignature[txSignature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// GetByReferenceKey retrieves a payment by reference key.
func (s *PaymentStore) GetByReferenceKey(_ context.Context, referenceKey string) (*domain.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byReference[referenceKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

// Finalize transitions a PENDING payment to VERIFIED or FAILED.
func (s *PaymentStore) Finalize(_ context.Context, paymentID string, status domain.PaymentStatus, decidedAt int64) error {
	if status != domain.PaymentStatusVerified && status != domain.PaymentStatusFailed {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.bySignature {
		if p.ID == paymentID {
			if p.Status != domain.PaymentStatusPending {
				return storage.ErrNotFound
			}
			p.Status = status
			p.DecidedAt = decidedAt
			return nil
		}
	}
	return storage.ErrNotFound
}
