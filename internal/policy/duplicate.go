package policy

import (
	"context"
	"errors"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/refkey"
	"solana-payment-gateway/internal/storage"
)

const duplicateRiskWeight = 90

// DuplicateRule re-checks that no decided payment already exists for
// the event's signature or reference key. The idempotency claim
// upstream already guarantees this for claimed deliveries; the rule
// also covers events evaluated outside the claiming pipeline.
type DuplicateRule struct {
	payments storage.PaymentStore
}

// NewDuplicateRule creates a DuplicateRule backed by the payment store.
func NewDuplicateRule(payments storage.PaymentStore) *DuplicateRule {
	return &DuplicateRule{payments: payments}
}

var _ Rule = (*DuplicateRule)(nil)

// Name returns the rule identifier.
func (r *DuplicateRule) Name() string { return domain.ViolationDuplicateTx }

// Evaluate triggers when a decided payment already exists for the
// signature or the resolved reference key. The pipeline's own PENDING
// claim does not count as a duplicate.
func (r *DuplicateRule) Evaluate(ctx context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	if existing, err := r.payments.GetBySignature(ctx, event.Signature); err == nil {
		if existing.Status != domain.PaymentStatusPending {
			return r.violation("signature", event.Signature), nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	key := refkey.Resolve(event.RawDescription, event.Signature)
	if existing, err := r.payments.GetByReferenceKey(ctx, key); err == nil {
		if existing.Status != domain.PaymentStatusPending && existing.TxSignature != event.Signature {
			return r.violation("referenceKey", key), nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return nil, nil
}

func (r *DuplicateRule) violation(matchedBy, value string) *domain.PolicyViolation {
	return &domain.PolicyViolation{
		Type:        domain.ViolationDuplicateTx,
		Severity:    domain.SeverityHigh,
		Description: "payment already exists for this transaction",
		Details:     map[string]string{"matchedBy": matchedBy, "value": value},
		RiskWeight:  duplicateRiskWeight,
	}
}
