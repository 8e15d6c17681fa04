package policy

import (
	"context"
	"fmt"
	"time"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// Rate-limit thresholds.
const (
	rateLimitWindow     = 60 * time.Second
	rateLimitMaxTx      = 5 // violation when count exceeds this
	rateLimitRiskWeight = 60
)

// RateLimitRule flags senders exceeding the per-minute transaction
// budget. Counts come from the shared transfer history and are
// best-effort: a borderline false negative under concurrency is
// acceptable.
type RateLimitRule struct {
	history storage.TransferHistoryStore
	now     func() time.Time
}

// NewRateLimitRule creates a RateLimitRule backed by the transfer history.
func NewRateLimitRule(history storage.TransferHistoryStore) *RateLimitRule {
	return &RateLimitRule{history: history, now: time.Now}
}

var _ Rule = (*RateLimitRule)(nil)

// Name returns the rule identifier.
func (r *RateLimitRule) Name() string { return domain.ViolationRateLimitExceeded }

// Evaluate triggers when the sender exceeded the trailing-window budget.
func (r *RateLimitRule) Evaluate(ctx context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	if r.history == nil {
		return nil, nil
	}
	since := r.now().Add(-rateLimitWindow).UnixMilli()
	count, err := r.history.CountFromAddress(ctx, event.FromAddress, since)
	if err != nil {
		return nil, err
	}

	if count <= rateLimitMaxTx {
		return nil, nil
	}

	return &domain.PolicyViolation{
		Type:        domain.ViolationRateLimitExceeded,
		Severity:    domain.SeverityMedium,
		Description: "sender exceeded transaction rate limit",
		Details: map[string]string{
			"fromAddress": event.FromAddress,
			"count":       fmt.Sprintf("%d", count),
			"windowSec":   fmt.Sprintf("%d", int(rateLimitWindow.Seconds())),
		},
		RiskWeight: rateLimitRiskWeight,
	}, nil
}
