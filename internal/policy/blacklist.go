package policy

import (
	"context"
	"fmt"
	"regexp"

	"solana-payment-gateway/internal/domain"
)

const blacklistRiskWeight = 100

// BlacklistRule flags transfers touching a denylisted address on either
// side. Patterns are regular expressions matched against the full
// address; a match is fatal for the decision regardless of the summed
// score.
type BlacklistRule struct {
	patterns []*regexp.Regexp
}

// NewBlacklistRule compiles the denylist patterns. Returns an error on
// an invalid pattern so misconfiguration fails at startup, not at
// evaluation time.
func NewBlacklistRule(patterns []string) (*BlacklistRule, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile denylist pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &BlacklistRule{patterns: compiled}, nil
}

var _ Rule = (*BlacklistRule)(nil)

// Name returns the rule identifier.
func (r *BlacklistRule) Name() string { return domain.ViolationBlacklistedAddress }

// Evaluate triggers when either counterparty matches a denylist pattern.
func (r *BlacklistRule) Evaluate(_ context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error) {
	for _, re := range r.patterns {
		for _, addr := range []string{event.FromAddress, event.ToAddress} {
			if addr != "" && re.MatchString(addr) {
				return &domain.PolicyViolation{
					Type:        domain.ViolationBlacklistedAddress,
					Severity:    domain.SeverityCritical,
					Description: "address matches denylist",
					Details: map[string]string{
						"address": addr,
						"pattern": re.String(),
					},
					RiskWeight: blacklistRiskWeight,
				}, nil
			}
		}
	}
	return nil, nil
}
