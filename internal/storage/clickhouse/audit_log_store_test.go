package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-payment-gateway/internal/domain"
)

func TestAuditLogStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditLogStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op.
	require.NoError(t, store.Insert(ctx, nil))

	entries := []*domain.PolicyAuditEntry{
		{
			PaymentID:   "pay-1",
			TxSignature: "TxSig001",
			RuleName:    domain.ViolationAmountTooLow,
			Triggered:   true,
			Severity:    string(domain.SeverityMedium),
			RiskWeight:  30,
			RiskScore:   30,
			CreatedAt:   1704067200000,
		},
		{
			PaymentID:   "pay-1",
			TxSignature: "TxSig001",
			RuleName:    domain.ViolationInvalidDestination,
			Triggered:   false,
			RiskScore:   30,
			CreatedAt:   1704067200001,
		},
	}
	require.NoError(t, store.Insert(ctx, entries))

	got, err := store.GetByPaymentID(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.ViolationAmountTooLow, got[0].RuleName)
	assert.True(t, got[0].Triggered)
	assert.Equal(t, string(domain.SeverityMedium), got[0].Severity)
	assert.Equal(t, 30, got[0].RiskWeight)
	assert.Equal(t, 30, got[0].RiskScore)
	assert.Equal(t, int64(1704067200000), got[0].CreatedAt)

	assert.Equal(t, domain.ViolationInvalidDestination, got[1].RuleName)
	assert.False(t, got[1].Triggered)
	assert.Empty(t, got[1].Severity)
	assert.Zero(t, got[1].RiskWeight)
}

func TestAuditLogStore_GetMissingPayment(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditLogStore(conn)

	got, err := store.GetByPaymentID(context.Background(), "pay-missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
