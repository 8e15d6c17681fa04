// Package policy evaluates canonical transfer events against the risk
// rule set and produces an auditable allow/deny decision.
package policy

import (
	"context"

	"solana-payment-gateway/internal/domain"
)

// Rule is a single risk policy check. A rule produces zero or one
// violation per event and never writes state: all persistence happens
// in the orchestrator after the decision.
type Rule interface {
	// Name returns the stable rule identifier used in the audit log.
	Name() string

	// Evaluate checks the event. A nil violation means the rule did not
	// trigger. Errors are treated as best-effort misses by the engine,
	// not as pipeline failures.
	Evaluate(ctx context.Context, event *domain.TransferEvent) (*domain.PolicyViolation, error)
}

// RuleOutcome records one rule's result for the audit trail.
type RuleOutcome struct {
	RuleName  string
	Violation *domain.PolicyViolation // nil when not triggered
	Err       error                   // non-nil when the rule could not run
}

// Evaluation bundles the decision with the per-rule outcomes.
type Evaluation struct {
	Result   domain.PolicyEvaluationResult
	Outcomes []RuleOutcome
}
