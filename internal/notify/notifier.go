// Package notify delivers payment status updates to interested
// consumers. Delivery is best effort: the pipeline's decision is
// already persisted before any notification is attempted, and a failed
// notification never changes the outcome.
package notify

import (
	"context"
	"log"

	"solana-payment-gateway/internal/domain"
)

// StatusUpdate is the notification emitted once a payment reaches a
// final status.
type StatusUpdate struct {
	PaymentID    string               `json:"payment_id"`
	TxSignature  string               `json:"tx_signature"`
	ReferenceKey string               `json:"reference_key"`
	Status       domain.PaymentStatus `json:"status"`
	RiskScore    int                  `json:"risk_score"`
	DecidedAt    int64                `json:"decided_at"`
}

// Notifier delivers a status update.
type Notifier interface {
	Notify(ctx context.Context, update *StatusUpdate) error
}

// LogNotifier writes status updates to the application log. It is the
// default sink when no websocket consumers are configured.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a notifier writing to the given logger.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ Notifier = (*LogNotifier)(nil)

// Notify logs the update. Never fails.
func (n *LogNotifier) Notify(_ context.Context, update *StatusUpdate) error {
	n.logger.Printf("[notify] payment %s (%s) -> %s, risk score %d",
		update.PaymentID, update.ReferenceKey, update.Status, update.RiskScore)
	return nil
}

// MultiNotifier fans an update out to several notifiers and returns
// the first error, after attempting all of them.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers into one.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

var _ Notifier = (*MultiNotifier)(nil)

// Notify delivers the update to every underlying notifier.
func (n *MultiNotifier) Notify(ctx context.Context, update *StatusUpdate) error {
	var firstErr error
	for _, notifier := range n.notifiers {
		if err := notifier.Notify(ctx, update); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
