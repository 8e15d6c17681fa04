package policy

import (
	"context"
	"fmt"
	"log"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// Risk-tier thresholds for the recommendation banner.
const (
	highRiskThreshold   = 80
	mediumRiskThreshold = 60
)

// denyScoreThreshold is the score at which a payment is denied outright.
const denyScoreThreshold = 100

// Config holds the tunable parts of the rule set.
type Config struct {
	// TreasuryAddress is the only accepted transfer destination.
	TreasuryAddress string

	// MinAmountMinorUnits is the smallest accepted payment. Zero means
	// the default threshold.
	MinAmountMinorUnits int64

	// DenylistPatterns are regular expressions matched against both
	// counterparty addresses.
	DenylistPatterns []string

	// VettedMints are token mints cleared for payment.
	VettedMints []string
}

// Engine runs the rule set against transfer events. It is read-only
// with respect to history: rules query stores but never write.
type Engine struct {
	rules  []Rule
	logger *log.Logger
}

// NewEngine builds the standard rule set from the config and store
// dependencies. Custom rule sets can be assembled with NewEngineWithRules.
func NewEngine(cfg Config, payments storage.PaymentStore, history storage.TransferHistoryStore, logger *log.Logger) (*Engine, error) {
	blacklist, err := NewBlacklistRule(cfg.DenylistPatterns)
	if err != nil {
		return nil, fmt.Errorf("build blacklist rule: %w", err)
	}

	rules := []Rule{
		NewAmountRule(cfg.MinAmountMinorUnits),
		NewDestinationRule(cfg.TreasuryAddress),
		NewDuplicateRule(payments),
		NewPatternRule(history),
		NewRateLimitRule(history),
		blacklist,
		NewMintRule(cfg.VettedMints, logger),
	}

	return NewEngineWithRules(rules, logger), nil
}

// NewEngineWithRules creates an engine running the given rules in order.
func NewEngineWithRules(rules []Rule, logger *log.Logger) *Engine {
	return &Engine{rules: rules, logger: logger}
}

// Evaluate runs every rule and derives the decision. Rule errors are
// logged and treated as non-triggers: a store hiccup must not turn into
// a false denial, and the triggered rules still decide.
//
// Risk contributions are summed without an upper cap; only the deny
// threshold and the critical/blacklist conditions gate the decision.
func (e *Engine) Evaluate(ctx context.Context, event *domain.TransferEvent) *Evaluation {
	eval := &Evaluation{
		Outcomes: make([]RuleOutcome, 0, len(e.rules)),
	}

	var violations []domain.PolicyViolation
	riskScore := 0
	hasCritical := false
	hasBlacklist := false

	for _, rule := range e.rules {
		violation, err := rule.Evaluate(ctx, event)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("[policy] rule %s failed for tx %s: %v", rule.Name(), event.Signature, err)
			}
			eval.Outcomes = append(eval.Outcomes, RuleOutcome{RuleName: rule.Name(), Err: err})
			continue
		}

		eval.Outcomes = append(eval.Outcomes, RuleOutcome{RuleName: rule.Name(), Violation: violation})
		if violation == nil {
			continue
		}

		violations = append(violations, *violation)
		riskScore += violation.RiskWeight
		if violation.Severity == domain.SeverityCritical {
			hasCritical = true
		}
		if violation.Type == domain.ViolationBlacklistedAddress {
			hasBlacklist = true
		}
	}

	allowed := riskScore < denyScoreThreshold && !hasCritical && !hasBlacklist

	eval.Result = domain.PolicyEvaluationResult{
		Allowed:         allowed,
		Violations:      violations,
		RiskScore:       riskScore,
		Recommendations: buildRecommendations(violations, riskScore),
	}
	return eval
}

// recommendationFor maps a violation category to its remediation string.
var recommendationFor = map[string]string{
	domain.ViolationAmountTooLow:       "Verify the payment amount meets the minimum before retrying",
	domain.ViolationInvalidDestination: "Confirm the configured treasury address and the transfer destination",
	domain.ViolationDuplicateTx:        "Transaction already credited; do not retry this payment",
	domain.ViolationSuspiciousPattern:  "Review recent activity from this sender for automation",
	domain.ViolationRateLimitExceeded:  "Throttle submissions from this sender",
	domain.ViolationBlacklistedAddress: "Block this address and escalate to compliance",
}

// buildRecommendations returns one remediation string per distinct
// violation category present, plus a risk-tier banner.
func buildRecommendations(violations []domain.PolicyViolation, riskScore int) []string {
	var recs []string
	seen := make(map[string]bool)

	for _, v := range violations {
		rec, ok := recommendationFor[v.Type]
		if !ok || seen[rec] {
			continue
		}
		seen[rec] = true
		recs = append(recs, rec)
	}

	switch {
	case riskScore >= highRiskThreshold:
		recs = append(recs, "HIGH RISK: manual review required")
	case riskScore >= mediumRiskThreshold:
		recs = append(recs, "MEDIUM RISK: additional verification recommended")
	}

	return recs
}
