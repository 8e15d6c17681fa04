package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/storage"
)

func testPayment(id, signature, referenceKey string) *domain.PaymentRecord {
	return &domain.PaymentRecord{
		ID:               id,
		TxSignature:      signature,
		ReferenceKey:     referenceKey,
		AmountMinorUnits: 1_500_000_000,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        1704067200000,
	}
}

func TestPaymentStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)
	ctx := context.Background()

	payment := testPayment("11111111-0000-0000-0000-000000000001", "TxSig001", "order_001")
	payment.TokenMint = "MintAddress123"

	err := store.Insert(ctx, payment)
	require.NoError(t, err)

	bySig, err := store.GetBySignature(ctx, "TxSig001")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, bySig.ID)
	assert.Equal(t, payment.ReferenceKey, bySig.ReferenceKey)
	assert.Equal(t, payment.AmountMinorUnits, bySig.AmountMinorUnits)
	assert.Equal(t, payment.TokenMint, bySig.TokenMint)
	assert.Equal(t, domain.PaymentStatusPending, bySig.Status)
	assert.Zero(t, bySig.DecidedAt)

	byRef, err := store.GetByReferenceKey(ctx, "order_001")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byRef.ID)
}

func TestPaymentStore_DuplicateSignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, testPayment("11111111-0000-0000-0000-000000000001", "TxSig001", "order_001"))
	require.NoError(t, err)

	// Same signature, different reference key.
	err = store.Insert(ctx, testPayment("11111111-0000-0000-0000-000000000002", "TxSig001", "order_002"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPaymentStore_DuplicateReferenceKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, testPayment("11111111-0000-0000-0000-000000000001", "TxSig001", "order_001"))
	require.NoError(t, err)

	// Different signature, same reference key.
	err = store.Insert(ctx, testPayment("11111111-0000-0000-0000-000000000002", "TxSig002", "order_001"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPaymentStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)
	ctx := context.Background()

	_, err := store.GetBySignature(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByReferenceKey(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPaymentStore_FinalizeOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)
	ctx := context.Background()

	payment := testPayment("11111111-0000-0000-0000-000000000001", "TxSig001", "order_001")
	require.NoError(t, store.Insert(ctx, payment))

	err := store.Finalize(ctx, payment.ID, domain.PaymentStatusVerified, 1704067260000)
	require.NoError(t, err)

	decided, err := store.GetBySignature(ctx, "TxSig001")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusVerified, decided.Status)
	assert.Equal(t, int64(1704067260000), decided.DecidedAt)

	// A second transition is rejected.
	err = store.Finalize(ctx, payment.ID, domain.PaymentStatusFailed, 1704067320000)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The record is unchanged.
	unchanged, err := store.GetBySignature(ctx, "TxSig001")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusVerified, unchanged.Status)
	assert.Equal(t, int64(1704067260000), unchanged.DecidedAt)
}

func TestPaymentStore_FinalizeMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPaymentStore(pool)

	err := store.Finalize(context.Background(), "11111111-0000-0000-0000-00000000dead", domain.PaymentStatusFailed, 1704067260000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
