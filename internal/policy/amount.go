package policy

import (
	"context"
	"fmt"

	"solana-payment-gateway/internal/domain"
)

// LamportsPerUnit is the number of minor units in one base unit (SOL).
const LamportsPerUnit = 1_000_000_000

// DefaultMinAmountMinorUnits is the minimum accepted payment:
// 0.99 units in minor units. Amounts exactly at the threshold pass.
const DefaultMinAmountMinorUnits = 990_000_000

const amountRiskWeight = 30

// AmountRule flags transfers below the minimum accepted amount.
type AmountRule struct {
	minAmount int64
}

// NewAmountRule creates an AmountRule. A non-positive minAmount falls
// back to the default threshold.
func NewAmountRule(minAmount int64) *AmountRule {
	if minAmount <= 0 {
		minAmount = DefaultMinAmountMinorUnits
	}
	return &AmountRule{minAmount: minAmount}
}

var _ Rule = (*AmountRule)(nil)

// Name returns the rule identifier.
func (r *AmountRule) Name() string { return domain.ViolationAmountTooLow }

// Evaluate triggers when the amount is strictly below the threshold.
func (r *AmountRule) Evaluate(_ context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	if event.AmountMinorUnits >= r.minAmount {
		return nil, nil
	}

	return &domain.PolicyViolation{
		Type:        domain.ViolationAmountTooLow,
		Severity:    domain.SeverityMedium,
		Description: "transfer amount below minimum accepted payment",
		Details: map[string]string{
			"amount":    fmt.Sprintf("%d", event.AmountMinorUnits),
			"threshold": fmt.Sprintf("%d", r.minAmount),
		},
		RiskWeight: amountRiskWeight,
	}, nil
}
