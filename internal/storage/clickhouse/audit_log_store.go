package clickhouse

import (
	"context"
	"fmt"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// AuditLogStore implements storage.AuditLogStore using ClickHouse.
// Rows are append-only; MergeTree ordering by (payment_id, created_at)
// keeps per-payment lookups cheap.
type AuditLogStore struct {
	conn *Conn
}

// NewAuditLogStore creates a new AuditLogStore.
func NewAuditLogStore(conn *Conn) *AuditLogStore {
	return &AuditLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditLogStore = (*AuditLogStore)(nil)

// Insert adds the rule evaluations of one policy run as a single batch.
func (s *AuditLogStore) Insert(ctx context.Context, entries []*domain.PolicyAuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO policy_audit_log (
			payment_id, tx_signature, rule_name, triggered, severity, risk_weight, risk_score, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		err = batch.Append(
			e.PaymentID, e.TxSignature, e.RuleName, e.Triggered,
			e.Severity, int32(e.RiskWeight), int32(e.RiskScore), uint64(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPaymentID retrieves all audit rows for a payment.
func (s *AuditLogStore) GetByPaymentID(ctx context.Context, paymentID string) ([]*domain.PolicyAuditEntry, error) {
	query := `
		SELECT payment_id, tx_signature, rule_name, triggered, severity, risk_weight, risk_score, created_at
		FROM policy_audit_log
		WHERE payment_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.conn.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("query audit log by payment id: %w", err)
	}
	defer rows.Close()

	var result []*domain.PolicyAuditEntry
	for rows.Next() {
		var e domain.PolicyAuditEntry
		var riskWeight, riskScore int32
		var createdAt uint64

		err := rows.Scan(
			&e.PaymentID, &e.TxSignature, &e.RuleName, &e.Triggered,
			&e.Severity, &riskWeight, &riskScore, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit log row: %w", err)
		}

		e.RiskWeight = int(riskWeight)
		e.RiskScore = int(riskScore)
		e.CreatedAt = int64(createdAt)
		result = append(result, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log rows: %w", err)
	}

	return result, nil
}
