package policy

import (
	"context"
	"fmt"
	"time"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// Suspicious-pattern thresholds.
const (
	patternWindow     = 5 * time.Minute
	patternMaxTx      = 10 // violation when count exceeds this
	patternRiskWeight = 70

	// roundAmountCeiling bounds the "looks automated" check: exact
	// multiples of the base unit under this ceiling.
	roundAmountCeiling = 5 * LamportsPerUnit
)

// PatternRule flags automated-looking activity: a burst of transactions
// from one sender in a short window, or conspicuously round amounts.
type PatternRule struct {
	history storage.TransferHistoryStore
	now     func() time.Time
}

// NewPatternRule creates a PatternRule backed by the transfer history.
func NewPatternRule(history storage.TransferHistoryStore) *PatternRule {
	return &PatternRule{history: history, now: time.Now}
}

var _ Rule = (*PatternRule)(nil)

// Name returns the rule identifier.
func (r *PatternRule) Name() string { return domain.ViolationSuspiciousPattern }

// Evaluate checks the velocity window first; the round-amount variant
// only applies when the burst check does not trigger (one violation per
// rule).
func (r *PatternRule) Evaluate(ctx context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	// Without a history store the velocity check has no data; only the
	// round-amount variant applies.
	var count int
	if r.history != nil {
		since := r.now().Add(-patternWindow).UnixMilli()
		n, err := r.history.CountFromAddress(ctx, event.FromAddress, since)
		if err != nil {
			return nil, err
		}
		count = n
	}

	if count > patternMaxTx {
		return &domain.PolicyViolation{
			Type:        domain.ViolationSuspiciousPattern,
			Severity:    domain.SeverityMedium,
			Description: "high transaction velocity from sender",
			Details: map[string]string{
				"fromAddress": event.FromAddress,
				"count":       fmt.Sprintf("%d", count),
				"windowSec":   fmt.Sprintf("%d", int(patternWindow.Seconds())),
			},
			RiskWeight: patternRiskWeight,
		}, nil
	}

	amount := event.AmountMinorUnits
	if amount > 0 && amount < roundAmountCeiling && amount%LamportsPerUnit == 0 {
		return &domain.PolicyViolation{
			Type:        domain.ViolationSuspiciousPattern,
			Severity:    domain.SeverityLow,
			Description: "round amount suggests automated transfer",
			Details: map[string]string{
				"amount": fmt.Sprintf("%d", amount),
			},
			// Observational only: contributes nothing to the score.
			RiskWeight: 0,
		}, nil
	}

	return nil, nil
}
