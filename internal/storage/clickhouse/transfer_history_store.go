package clickhouse

import (
	"context"
	"fmt"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

// TransferHistoryStore implements storage.TransferHistoryStore using
// ClickHouse. Counts are served from the raw transfer rows; the policy
// rules tolerate eventually-consistent results, so no merge wait is
// needed after inserts.
type TransferHistoryStore struct {
	conn *Conn
}

// NewTransferHistoryStore creates a new TransferHistoryStore.
func NewTransferHistoryStore(conn *Conn) *TransferHistoryStore {
	return &TransferHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferHistoryStore = (*TransferHistoryStore)(nil)

// Record adds one processed transfer.
func (s *TransferHistoryStore) Record(ctx context.Context, e *domain.TransferHistoryEntry) error {
	if e == nil || e.FromAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transfer_history (
			tx_signature, from_address, to_address, amount_minor_units, timestamp_ms
		) VALUES (?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.TxSignature, e.FromAddress, e.ToAddress,
		e.AmountMinorUnits, uint64(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert transfer history: %w", err)
	}
	return nil
}

// CountFromAddress returns the number of transfers sent by fromAddress
// at or after since (Unix milliseconds).
func (s *TransferHistoryStore) CountFromAddress(ctx context.Context, fromAddress string, since int64) (int, error) {
	query := `
		SELECT count(*) FROM transfer_history
		WHERE from_address = ? AND timestamp_ms >= ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, fromAddress, uint64(since)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers from address: %w", err)
	}
	return int(count), nil
}
