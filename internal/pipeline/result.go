package pipeline

import (
	"strings"

	"solana-payment-gateway/internal/domain"
)

// storageErrorPrefix marks rejections caused by the persistence layer
// rather than the delivery itself.
const storageErrorPrefix = "storage error: "

// PaymentUpdate summarizes the payment a delivery resolved to.
type PaymentUpdate struct {
	PaymentID        string               `json:"payment_id"`
	TxSignature      string               `json:"tx_signature"`
	ReferenceKey     string               `json:"reference_key"`
	AmountMinorUnits int64                `json:"amount_minor_units"`
	TokenMint        string               `json:"token_mint,omitempty"`
	Status           domain.PaymentStatus `json:"status"`
	RiskScore        int                  `json:"risk_score"`
}

// Result is the outcome of processing one webhook delivery.
//
// Success means the delivery resolved to a payment record, including
// idempotent replays of an already-decided transaction. Processed is
// true for any delivery that reached a payment record, fresh or replay;
// Duplicate marks the replays. Rejected deliveries have all three false.
//
// A replay echoes the record's current status. When it races a first
// delivery that has claimed but not yet decided, that status is
// PENDING; the provider's next redelivery picks up the decision.
type Result struct {
	Success   bool   `json:"success"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error,omitempty"`

	PaymentUpdates []PaymentUpdate `json:"payment_updates,omitempty"`
}

// rejected builds a Result for a delivery turned away before a payment
// record was created.
func rejected(message string) *Result {
	return &Result{Success: false, Error: message}
}

// StorageUnavailable reports whether the delivery was rejected because
// storage could not claim or resolve it. The payload itself may be
// fine, so the provider should redeliver.
func (r *Result) StorageUnavailable() bool {
	return !r.Success && strings.HasPrefix(r.Error, storageErrorPrefix)
}
