package policy

import (
	"context"
	"log"

	"solana-payment-gateway/internal/domain"
)

// MintRule observes token transfers whose mint has not been vetted.
// It currently logs only and never blocks; the rule exists so the
// audit trail records which mints flow through before vetting is
// enforced.
type MintRule struct {
	vetted map[string]bool
	logger *log.Logger
}

// NewMintRule creates a MintRule with the vetted mint set.
func NewMintRule(vettedMints []string, logger *log.Logger) *MintRule {
	vetted := make(map[string]bool, len(vettedMints))
	for _, m := range vettedMints {
		vetted[m] = true
	}
	return &MintRule{vetted: vetted, logger: logger}
}

var _ Rule = (*MintRule)(nil)

// Name returns the rule identifier.
func (r *MintRule) Name() string { return domain.ViolationUnauthorizedMint }

// Evaluate never produces a violation. Unvetted mints are logged for
// followup.
func (r *MintRule) Evaluate(_ context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	if !event.IsToken() {
		return nil, nil
	}
	if r.vetted[event.TokenMint] {
		return nil, nil
	}
	if r.logger != nil {
		r.logger.Printf("[policy] unvetted mint %s in tx %s", event.TokenMint, event.Signature)
	}
	return nil, nil
}
