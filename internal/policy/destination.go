package policy

import (
	"context"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/solana"
)

const destinationRiskWeight = 80

// DestinationRule flags transfers whose recipient is not the configured
// treasury address. An unconfigured treasury triggers on every event:
// accepting funds to an unknown destination is never safe.
type DestinationRule struct {
	treasury string
}

// NewDestinationRule creates a DestinationRule for the given treasury
// address.
func NewDestinationRule(treasury string) *DestinationRule {
	return &DestinationRule{treasury: treasury}
}

var _ Rule = (*DestinationRule)(nil)

// Name returns the rule identifier.
func (r *DestinationRule) Name() string { return domain.ViolationInvalidDestination }

// Evaluate triggers when the destination does not match the treasury.
func (r *DestinationRule) Evaluate(_ context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	if r.treasury == "" {
		return &domain.PolicyViolation{
			Type:        domain.ViolationInvalidDestination,
			Severity:    domain.SeverityHigh,
			Description: "treasury address not configured",
			Details:     map[string]string{"toAddress": event.ToAddress},
			RiskWeight:  destinationRiskWeight,
		}, nil
	}

	if event.ToAddress == r.treasury {
		return nil, nil
	}

	details := map[string]string{
		"toAddress": event.ToAddress,
		"expected":  r.treasury,
	}
	if !solana.IsValidAddress(event.ToAddress) {
		details["malformedAddress"] = "true"
	} else if !solana.IsOnCurve(event.ToAddress) {
		// A valid key that is not on the curve is a PDA, not a wallet.
		details["offCurveAddress"] = "true"
	}

	return &domain.PolicyViolation{
		Type:        domain.ViolationInvalidDestination,
		Severity:    domain.SeverityHigh,
		Description: "transfer destination is not the treasury address",
		Details:     details,
		RiskWeight:  destinationRiskWeight,
	}, nil
}
