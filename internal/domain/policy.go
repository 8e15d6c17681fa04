package domain

// ViolationSeverity grades a policy rule breach.
type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "LOW"
	SeverityMedium   ViolationSeverity = "MEDIUM"
	SeverityHigh     ViolationSeverity = "HIGH"
	SeverityCritical ViolationSeverity = "CRITICAL"
)

// Violation type constants. One per policy rule.
const (
	ViolationAmountTooLow       = "AMOUNT_TOO_LOW"
	ViolationInvalidDestination = "INVALID_DESTINATION"
	ViolationDuplicateTx        = "DUPLICATE_TRANSACTION"
	ViolationSuspiciousPattern  = "SUSPICIOUS_PATTERN"
	ViolationRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ViolationBlacklistedAddress = "BLACKLISTED_ADDRESS"
	ViolationUnauthorizedMint   = "UNAUTHORIZED_MINT"
)

// PolicyViolation is a named, severity-tagged rule breach.
type PolicyViolation struct {
	Type        string            // violation type constant
	Severity    ViolationSeverity
	Description string            // human-readable summary
	Details     map[string]string // rule-specific context
	RiskWeight  int               // contribution to the summed risk score
}

// PolicyEvaluationResult is the outcome of running all policy rules
// against one transfer event. Recomputed per attempt, never mutated.
type PolicyEvaluationResult struct {
	Allowed         bool
	Violations      []PolicyViolation
	RiskScore       int // summed weights, no upper cap
	Recommendations []string
}

// HasViolation reports whether a violation of the given type is present.
func (r *PolicyEvaluationResult) HasViolation(violationType string) bool {
	for _, v := range r.Violations {
		if v.Type == violationType {
			return true
		}
	}
	return false
}

// PolicyAuditEntry records one rule evaluation for the audit trail.
// Corresponds to policy_audit_log table.
type PolicyAuditEntry struct {
	PaymentID   string
	TxSignature string
	RuleName    string
	Triggered   bool
	Severity    string // empty when not triggered
	RiskWeight  int
	RiskScore   int // total score of the evaluation this row belongs to
	CreatedAt   int64
}
