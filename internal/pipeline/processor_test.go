package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"solana-payment-gateway/internal/chain"
	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/policy"
	"solana-payment-gateway/internal/refkey"
	"solana-payment-gateway/internal/solana"
	"solana-payment-gateway/internal/storage/memory"
	"solana-payment-gateway/internal/webhook"
)

const (
	testSecret   = "test-shared-secret"
	testTreasury = "Treasury1111111111111111111111111111111111"
	testSender   = "Sender111111111111111111111111111111111111"
)

type testEnv struct {
	processor *Processor
	payments  *memory.PaymentStore
	attempts  *memory.AttemptStore
	events    *memory.WebhookEventStore
	audit     *memory.AuditLogStore
	history   *memory.TransferHistoryStore
}

func newTestEnv(t *testing.T, verifier chain.Verifier) *testEnv {
	t.Helper()

	logger := log.New(os.Stderr, "[test] ", log.LstdFlags)
	payments := memory.NewPaymentStore()
	attempts := memory.NewAttemptStore()
	events := memory.NewWebhookEventStore()
	audit := memory.NewAuditLogStore()
	history := memory.NewTransferHistoryStore()

	engine, err := policy.NewEngine(policy.Config{TreasuryAddress: testTreasury}, payments, history, logger)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	stores := Stores{
		Payments:      payments,
		Attempts:      attempts,
		Metadata:      memory.NewMetadataStore(),
		WebhookEvents: events,
		AuditLog:      audit,
		History:       history,
	}
	processor := NewProcessor(stores, verifier, engine, nil, testSecret, logger)

	return &testEnv{
		processor: processor,
		payments:  payments,
		attempts:  attempts,
		events:    events,
		audit:     audit,
		history:   history,
	}
}

func finalizedVerifier() chain.Verifier {
	return &chain.StaticVerifier{Result: chain.Confirmation{IsValid: true, Status: solana.CommitmentFinalized}}
}

// transferBody builds a signed native-transfer delivery. Amounts above
// the policy minimum and non-round avoid incidental violations.
func transferBody(signature, description string, amount int64) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{
		"type": "TRANSFER",
		"signature": %q,
		"timestamp": 1704067200,
		"slot": 242000000,
		"description": %q,
		"nativeTransfers": [
			{"amount": %q, "fromUserAccount": %q, "toUserAccount": %q}
		]
	}`, signature, description, fmt.Sprint(amount), testSender, testTreasury))
	return body, webhook.ComputeSignature(body, testSecret)
}

func TestProcess_HappyPath(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body, sig := transferBody("tx-happy", "payment ref:order_42", 1_234_567_890)
	result := env.processor.Process(ctx, body, sig)

	if !result.Success || !result.Processed || result.Duplicate {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.PaymentUpdates) != 1 {
		t.Fatalf("expected one payment update, got %d", len(result.PaymentUpdates))
	}
	update := result.PaymentUpdates[0]
	if update.Status != domain.PaymentStatusVerified {
		t.Errorf("status = %s, want VERIFIED", update.Status)
	}
	if update.ReferenceKey != "order_42" {
		t.Errorf("reference key = %s, want order_42", update.ReferenceKey)
	}

	stored, err := env.payments.GetBySignature(ctx, "tx-happy")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if stored.Status != domain.PaymentStatusVerified {
		t.Errorf("stored status = %s, want VERIFIED", stored.Status)
	}
	if stored.DecidedAt == 0 {
		t.Error("DecidedAt not set")
	}

	attempts, err := env.attempts.GetByPaymentID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetByPaymentID failed: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected verification + policy attempts, got %d", len(attempts))
	}
	if attempts[0].AttemptType != domain.AttemptTypeVerification || attempts[1].AttemptType != domain.AttemptTypePolicy {
		t.Errorf("attempt types = %s, %s", attempts[0].AttemptType, attempts[1].AttemptType)
	}

	audit, err := env.audit.GetByPaymentID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("audit GetByPaymentID failed: %v", err)
	}
	if len(audit) != 7 {
		t.Errorf("expected one audit row per rule, got %d", len(audit))
	}

	n, err := env.history.CountFromAddress(ctx, testSender, 0)
	if err != nil {
		t.Fatalf("CountFromAddress failed: %v", err)
	}
	if n != 1 {
		t.Errorf("history count = %d, want 1", n)
	}
}

func TestProcess_InvalidSignature(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body, _ := transferBody("tx-sig", "ref:order_1", 1_234_567_890)
	result := env.processor.Process(ctx, body, "deadbeef")

	if result.Success {
		t.Error("forged signature must not succeed")
	}
	if result.Error != "Invalid webhook signature" {
		t.Errorf("error = %q, want %q", result.Error, "Invalid webhook signature")
	}
	if _, err := env.payments.GetBySignature(ctx, "tx-sig"); err == nil {
		t.Error("no payment may be created for a forged delivery")
	}

	// The delivery is still logged.
	logged, err := env.events.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(logged) != 1 || logged[0].Processed {
		t.Fatalf("expected one unprocessed delivery record, got %+v", logged)
	}
}

func TestProcess_NoTransferData(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())

	body := []byte(`{"type":"TRANSFER","signature":"tx-empty"}`)
	sig := webhook.ComputeSignature(body, testSecret)
	result := env.processor.Process(context.Background(), body, sig)

	if result.Success {
		t.Error("transfer-less delivery must not succeed")
	}
	if result.Error != "No transfer data found in webhook" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestProcess_ChainUnconfirmed(t *testing.T) {
	verifier := &chain.StaticVerifier{Result: chain.Confirmation{
		IsValid: false,
		Status:  solana.CommitmentProcessed,
		Error:   "transaction not yet confirmed (status=processed)",
	}}
	env := newTestEnv(t, verifier)
	ctx := context.Background()

	body, sig := transferBody("tx-unconfirmed", "ref:order_2", 1_234_567_890)
	result := env.processor.Process(ctx, body, sig)

	if result.Success {
		t.Error("unconfirmed transaction must not verify")
	}
	if !result.Processed {
		t.Error("a failed confirmation is still a processed decision")
	}

	stored, err := env.payments.GetBySignature(ctx, "tx-unconfirmed")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if stored.Status != domain.PaymentStatusFailed {
		t.Errorf("stored status = %s, want FAILED", stored.Status)
	}

	// Only the verification attempt: policy never ran.
	attempts, err := env.attempts.GetByPaymentID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetByPaymentID failed: %v", err)
	}
	if len(attempts) != 1 || attempts[0].AttemptType != domain.AttemptTypeVerification {
		t.Errorf("attempts = %+v", attempts)
	}
}

func TestProcess_PolicyDenied(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	// Wrong destination (80) + below minimum (30): score 110.
	body := []byte(fmt.Sprintf(`{
		"type": "TRANSFER",
		"signature": "tx-denied",
		"description": "ref:order_3",
		"nativeTransfers": [
			{"amount": "100", "fromUserAccount": %q, "toUserAccount": "Elsewhere111111111111111111111111111111111"}
		]
	}`, testSender))
	sig := webhook.ComputeSignature(body, testSecret)

	result := env.processor.Process(ctx, body, sig)
	if result.Success {
		t.Error("denied payment must not succeed")
	}
	if !result.Processed {
		t.Error("a policy denial is still a processed decision")
	}
	if result.PaymentUpdates[0].Status != domain.PaymentStatusFailed {
		t.Errorf("status = %s, want FAILED", result.PaymentUpdates[0].Status)
	}
	if result.PaymentUpdates[0].RiskScore < 100 {
		t.Errorf("risk score = %d, want >= 100", result.PaymentUpdates[0].RiskScore)
	}
}

func TestProcess_DuplicateDelivery(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body, sig := transferBody("tx-dup", "ref:order_4", 1_234_567_890)

	first := env.processor.Process(ctx, body, sig)
	if !first.Success || !first.Processed {
		t.Fatalf("first delivery: %+v", first)
	}

	second := env.processor.Process(ctx, body, sig)
	if !second.Success || !second.Processed {
		t.Errorf("replay must succeed idempotently: %+v", second)
	}
	if !second.Duplicate {
		t.Error("replay must be marked duplicate")
	}
	if second.PaymentUpdates[0].PaymentID != first.PaymentUpdates[0].PaymentID {
		t.Error("replay resolved to a different payment")
	}
	if second.PaymentUpdates[0].Status != domain.PaymentStatusVerified {
		t.Errorf("replay status = %s, want VERIFIED", second.PaymentUpdates[0].Status)
	}
}

func TestProcess_ReplayOfPendingClaim(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	// A first delivery claimed the payment but has not decided it yet.
	claimed := &domain.PaymentRecord{
		ID:               "payment-pending",
		TxSignature:      "tx-pending",
		ReferenceKey:     "order_8",
		AmountMinorUnits: 1_234_567_890,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        1,
	}
	if err := env.payments.Insert(ctx, claimed); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	body, sig := transferBody("tx-pending", "ref:order_8", 1_234_567_890)
	result := env.processor.Process(ctx, body, sig)

	if !result.Success || !result.Processed || !result.Duplicate {
		t.Fatalf("replay of a pending claim must resolve idempotently: %+v", result)
	}
	// The in-flight status is echoed as is; the decision arrives with
	// the provider's next redelivery.
	if result.PaymentUpdates[0].Status != domain.PaymentStatusPending {
		t.Errorf("status = %s, want PENDING", result.PaymentUpdates[0].Status)
	}
	if result.PaymentUpdates[0].PaymentID != "payment-pending" {
		t.Errorf("resolved to %s, want payment-pending", result.PaymentUpdates[0].PaymentID)
	}
}

func TestProcess_ReferenceKeyCollision(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	// Distinct transactions claiming the same order: the second is a
	// replay of the business payment, not a second credit.
	bodyA, sigA := transferBody("tx-ref-a", "ref:order_5", 1_234_567_890)
	bodyB, sigB := transferBody("tx-ref-b", "ref:order_5", 1_234_567_891)

	first := env.processor.Process(ctx, bodyA, sigA)
	if !first.Processed {
		t.Fatalf("first delivery: %+v", first)
	}

	second := env.processor.Process(ctx, bodyB, sigB)
	if !second.Duplicate {
		t.Errorf("second transaction for the same reference key must resolve as a replay, not a second credit: %+v", second)
	}
	if second.PaymentUpdates[0].TxSignature != "tx-ref-a" {
		t.Errorf("resolved to %s, want tx-ref-a", second.PaymentUpdates[0].TxSignature)
	}
}

func TestProcess_DerivedReferenceKey(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body, sig := transferBody("tx-no-ref", "plain transfer", 1_234_567_890)
	result := env.processor.Process(ctx, body, sig)
	if !result.Processed {
		t.Fatalf("delivery failed: %+v", result)
	}

	want := refkey.Resolve("plain transfer", "tx-no-ref")
	if result.PaymentUpdates[0].ReferenceKey != want {
		t.Errorf("reference key = %s, want %s", result.PaymentUpdates[0].ReferenceKey, want)
	}
}

func TestProcess_ConcurrentDeliveries(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body, sig := transferBody("tx-race", "ref:order_6", 1_234_567_890)

	const n = 16
	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.processor.Process(ctx, body, sig)
		}(i)
	}
	wg.Wait()

	var fresh int
	for _, r := range results {
		if !r.Success {
			t.Errorf("delivery failed: %+v", r)
		}
		if !r.Duplicate {
			fresh++
		}
	}
	if fresh != 1 {
		t.Errorf("%d deliveries claimed the payment, want exactly 1", fresh)
	}
}

// brokenPaymentStore fails every operation, simulating a storage outage.
type brokenPaymentStore struct{}

var errStoreDown = errors.New("connection refused")

func (brokenPaymentStore) Insert(context.Context, *domain.PaymentRecord) error {
	return errStoreDown
}

func (brokenPaymentStore) GetBySignature(context.Context, string) (*domain.PaymentRecord, error) {
	return nil, errStoreDown
}

func (brokenPaymentStore) GetByReferenceKey(context.Context, string) (*domain.PaymentRecord, error) {
	return nil, errStoreDown
}

func (brokenPaymentStore) Finalize(context.Context, string, domain.PaymentStatus, int64) error {
	return errStoreDown
}

func TestProcess_StorageOutage(t *testing.T) {
	logger := log.New(os.Stderr, "[test] ", log.LstdFlags)
	history := memory.NewTransferHistoryStore()

	engine, err := policy.NewEngine(policy.Config{TreasuryAddress: testTreasury}, brokenPaymentStore{}, history, logger)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	stores := Stores{
		Payments:      brokenPaymentStore{},
		Attempts:      memory.NewAttemptStore(),
		Metadata:      memory.NewMetadataStore(),
		WebhookEvents: memory.NewWebhookEventStore(),
		History:       history,
	}
	processor := NewProcessor(stores, finalizedVerifier(), engine, nil, testSecret, logger)

	body, sig := transferBody("tx-outage", "ref:order_9", 1_234_567_890)
	result := processor.Process(context.Background(), body, sig)

	if result.Success || result.Processed {
		t.Fatalf("a storage outage must not produce a decision: %+v", result)
	}
	if !result.StorageUnavailable() {
		t.Errorf("rejection must be flagged as a storage failure: error = %q", result.Error)
	}
}

func TestProcess_TokenTransferMetadata(t *testing.T) {
	env := newTestEnv(t, finalizedVerifier())
	ctx := context.Background()

	body := []byte(fmt.Sprintf(`{
		"type": "TRANSFER",
		"signature": "tx-token",
		"description": "ref:order_7",
		"tokenTransfers": [
			{"mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			 "tokenAmount": "995000001",
			 "fromUserAccount": %q,
			 "toUserAccount": %q}
		]
	}`, testSender, testTreasury))
	sig := webhook.ComputeSignature(body, testSecret)

	result := env.processor.Process(ctx, body, sig)
	if !result.Processed {
		t.Fatalf("delivery failed: %+v", result)
	}
	if result.PaymentUpdates[0].TokenMint != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Errorf("token mint = %s", result.PaymentUpdates[0].TokenMint)
	}

	stored, err := env.payments.GetBySignature(ctx, "tx-token")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	rows, err := env.processor.stores.Metadata.GetByPaymentID(ctx, stored.ID)
	if err != nil {
		t.Fatalf("metadata GetByPaymentID failed: %v", err)
	}
	got := make(map[string]string, len(rows))
	for _, m := range rows {
		got[m.Key] = m.Value
	}
	if got[domain.MetadataKeyTokenMint] != "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" {
		t.Errorf("token_mint metadata = %q", got[domain.MetadataKeyTokenMint])
	}
	if got[domain.MetadataKeyIsTokenTransfer] != "true" {
		t.Errorf("is_token_transfer metadata = %q", got[domain.MetadataKeyIsTokenTransfer])
	}
}
