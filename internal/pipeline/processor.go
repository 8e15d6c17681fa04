// Package pipeline orchestrates webhook processing: authentication,
// parsing, idempotent claiming, chain confirmation, policy evaluation,
// persistence, and notification.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"solana-payment-gateway/internal/chain"
	"solana-payment-gateway/internal/domain"
	"solana-payment-gateway/internal/notify"
	"solana-payment-gateway/internal/observability"
	"solana-payment-gateway/internal/policy"
	"solana-payment-gateway/internal/refkey"
	"solana-payment-gateway/internal/storage"
	"solana-payment-gateway/internal/webhook"
)

// Stores bundles the persistence dependencies of the processor.
type Stores struct {
	Payments      storage.PaymentStore
	Attempts      storage.AttemptStore
	Metadata      storage.MetadataStore
	WebhookEvents storage.WebhookEventStore
	AuditLog      storage.AuditLogStore
	History       storage.TransferHistoryStore
}

// Processor runs the full delivery pipeline. Safe for concurrent use:
// all state lives in the stores, and concurrent deliveries of the same
// transaction serialize on the payment insert.
type Processor struct {
	stores   Stores
	verifier chain.Verifier
	engine   *policy.Engine
	notifier notify.Notifier
	secret   string
	logger   *log.Logger

	now func() time.Time
}

// NewProcessor wires a processor. AuditLog and History may be nil when
// ClickHouse is not configured; the corresponding writes are skipped.
func NewProcessor(stores Stores, verifier chain.Verifier, engine *policy.Engine, notifier notify.Notifier, sharedSecret string, logger *log.Logger) *Processor {
	return &Processor{
		stores:   stores,
		verifier: verifier,
		engine:   engine,
		notifier: notifier,
		secret:   sharedSecret,
		logger:   logger,
		now:      time.Now,
	}
}

// Process handles one webhook delivery end to end. It never returns an
// error: every outcome, including rejections and storage failures, is
// expressed in the Result so the transport layer can map it onto a
// response without interpreting error chains.
func (p *Processor) Process(ctx context.Context, rawBody []byte, signatureHeader string) *Result {
	started := p.now()
	observability.RecordDeliveryReceived()
	defer func() {
		observability.RecordPipelineDuration(p.now().Sub(started).Seconds())
	}()

	if !webhook.VerifySignature(rawBody, signatureHeader, p.secret) {
		p.logger.Printf("[pipeline] rejected delivery: invalid signature")
		observability.RecordDeliveryRejected(reasonInvalidSignature)
		p.logDelivery(ctx, "", rawBody, false, ErrInvalidSignature.Error())
		return rejected(ErrInvalidSignature.Error())
	}

	webhookType := peekType(rawBody)

	event, err := webhook.Parse(rawBody)
	if err != nil {
		p.logger.Printf("[pipeline] rejected delivery: %v", err)
		observability.RecordDeliveryRejected(parseReason(err))
		p.logDelivery(ctx, webhookType, rawBody, false, err.Error())
		return rejected(err.Error())
	}

	referenceKey := refkey.Resolve(event.RawDescription, event.Signature)

	payment := &domain.PaymentRecord{
		ID:               uuid.NewString(),
		TxSignature:      event.Signature,
		ReferenceKey:     referenceKey,
		AmountMinorUnits: event.AmountMinorUnits,
		TokenMint:        event.TokenMint,
		Status:           domain.PaymentStatusPending,
		CreatedAt:        started.UnixMilli(),
	}

	if err := p.stores.Payments.Insert(ctx, payment); err != nil {
		// Any claim failure, duplicate key or otherwise, resolves
		// through a lookup: if a record exists the delivery is a
		// replay, and replays must succeed idempotently.
		return p.resolveReplay(ctx, event, referenceKey, webhookType, rawBody, err)
	}

	p.logger.Printf("[pipeline] claimed payment %s for tx %s (ref %s)", payment.ID, payment.TxSignature, referenceKey)

	// The claim is durable from here on. The record stays PENDING if
	// anything below fails hard; a later redelivery resolves it as a
	// replay without re-crediting.
	if conf := p.confirmOnChain(ctx, payment); !conf.IsValid {
		return p.finalize(ctx, payment, event, webhookType, rawBody, domain.PaymentStatusFailed, 0, conf.Error)
	}

	eval := p.engine.Evaluate(ctx, event)
	p.recordPolicyRun(ctx, payment, eval)

	p.writeMetadata(ctx, payment, event)

	if !eval.Result.Allowed {
		reason := fmt.Sprintf("policy denied (score %d): %v", eval.Result.RiskScore, violationTypes(eval.Result.Violations))
		return p.finalize(ctx, payment, event, webhookType, rawBody, domain.PaymentStatusFailed, eval.Result.RiskScore, reason)
	}

	return p.finalize(ctx, payment, event, webhookType, rawBody, domain.PaymentStatusVerified, eval.Result.RiskScore, "")
}

// resolveReplay handles a failed claim by looking up the existing
// record for the transaction or reference key.
func (p *Processor) resolveReplay(ctx context.Context, event *domain.TransferEvent, referenceKey, webhookType string, rawBody []byte, claimErr error) *Result {
	existing, err := p.stores.Payments.GetBySignature(ctx, event.Signature)
	if errors.Is(err, storage.ErrNotFound) {
		existing, err = p.stores.Payments.GetByReferenceKey(ctx, referenceKey)
	}
	if err != nil {
		p.logger.Printf("[pipeline] claim failed for tx %s and no existing record found: %v (claim error: %v)", event.Signature, err, claimErr)
		observability.RecordDeliveryRejected(reasonStorage)
		p.logDelivery(ctx, webhookType, rawBody, false, claimErr.Error())
		return rejected(storageErrorPrefix + claimErr.Error())
	}

	p.logger.Printf("[pipeline] duplicate delivery for tx %s resolved to payment %s (%s)", event.Signature, existing.ID, existing.Status)
	observability.RecordDuplicateDelivery()
	p.logDelivery(ctx, webhookType, rawBody, true, "")

	return &Result{
		Success:   true,
		Processed: true,
		Duplicate: true,
		PaymentUpdates: []PaymentUpdate{{
			PaymentID:        existing.ID,
			TxSignature:      existing.TxSignature,
			ReferenceKey:     existing.ReferenceKey,
			AmountMinorUnits: existing.AmountMinorUnits,
			TokenMint:        existing.TokenMint,
			Status:           existing.Status,
		}},
	}
}

// confirmOnChain checks finality and records the verification attempt.
func (p *Processor) confirmOnChain(ctx context.Context, payment *domain.PaymentRecord) *chain.Confirmation {
	confirmStart := p.now()
	conf, err := p.verifier.Confirm(ctx, payment.TxSignature)
	if err != nil {
		// Verifiers fold RPC failures into the confirmation, so this
		// only fires on programming errors. Treat it the same way.
		conf = &chain.Confirmation{IsValid: false, Error: fmt.Sprintf("chain verification failed: %v", err)}
	}
	observability.RecordChainConfirm(p.now().Sub(confirmStart).Seconds(), !conf.IsValid)

	outcome := "confirmed"
	if !conf.IsValid {
		outcome = conf.Error
	}
	p.recordAttempt(ctx, payment.ID, domain.AttemptTypeVerification, outcome, 0)
	return conf
}

// recordPolicyRun persists the policy attempt and the per-rule audit
// trail. Both writes are best effort.
func (p *Processor) recordPolicyRun(ctx context.Context, payment *domain.PaymentRecord, eval *policy.Evaluation) {
	observability.RecordRiskScore(eval.Result.RiskScore)
	for _, v := range eval.Result.Violations {
		observability.RecordPolicyViolation(v.Type)
	}

	outcome := "allowed"
	if !eval.Result.Allowed {
		outcome = fmt.Sprintf("denied: %v", violationTypes(eval.Result.Violations))
	}
	p.recordAttempt(ctx, payment.ID, domain.AttemptTypePolicy, outcome, eval.Result.RiskScore)

	if p.stores.AuditLog == nil {
		return
	}
	now := p.now().UnixMilli()
	entries := make([]*domain.PolicyAuditEntry, 0, len(eval.Outcomes))
	for _, o := range eval.Outcomes {
		entry := &domain.PolicyAuditEntry{
			PaymentID:   payment.ID,
			TxSignature: payment.TxSignature,
			RuleName:    o.RuleName,
			Triggered:   o.Violation != nil,
			RiskScore:   eval.Result.RiskScore,
			CreatedAt:   now,
		}
		if o.Violation != nil {
			entry.Severity = string(o.Violation.Severity)
			entry.RiskWeight = o.Violation.RiskWeight
		}
		entries = append(entries, entry)
	}
	if err := p.stores.AuditLog.Insert(ctx, entries); err != nil {
		p.logger.Printf("[pipeline] audit log write failed for payment %s: %v", payment.ID, err)
	}
}

// finalize decides the payment, records the delivery, updates the
// velocity history, and notifies. Called exactly once per fresh claim.
func (p *Processor) finalize(ctx context.Context, payment *domain.PaymentRecord, event *domain.TransferEvent, webhookType string, rawBody []byte, status domain.PaymentStatus, riskScore int, failReason string) *Result {
	decidedAt := p.now().UnixMilli()
	if err := p.stores.Payments.Finalize(ctx, payment.ID, status, decidedAt); err != nil {
		p.logger.Printf("[pipeline] finalize failed for payment %s: %v", payment.ID, err)
		observability.RecordDeliveryRejected(reasonStorage)
		p.logDelivery(ctx, webhookType, rawBody, false, err.Error())
		return rejected(storageErrorPrefix + err.Error())
	}

	p.logger.Printf("[pipeline] payment %s decided: %s (score %d)", payment.ID, status, riskScore)
	observability.RecordPaymentDecided(string(status))
	p.logDelivery(ctx, webhookType, rawBody, true, failReason)
	p.recordHistory(ctx, event)
	p.sendNotification(ctx, payment, status, riskScore, decidedAt)

	return &Result{
		Success:   status == domain.PaymentStatusVerified,
		Processed: true,
		Error:     failReason,
		PaymentUpdates: []PaymentUpdate{{
			PaymentID:        payment.ID,
			TxSignature:      payment.TxSignature,
			ReferenceKey:     payment.ReferenceKey,
			AmountMinorUnits: payment.AmountMinorUnits,
			TokenMint:        payment.TokenMint,
			Status:           status,
			RiskScore:        riskScore,
		}},
	}
}

// writeMetadata attaches transfer facts to the payment. Best effort.
func (p *Processor) writeMetadata(ctx context.Context, payment *domain.PaymentRecord, event *domain.TransferEvent) {
	now := p.now().UnixMilli()
	rows := []*domain.PaymentMetadata{
		{PaymentID: payment.ID, Key: domain.MetadataKeyTransferKind, Value: string(event.Kind), CreatedAt: now},
		{PaymentID: payment.ID, Key: domain.MetadataKeyIsTokenTransfer, Value: strconv.FormatBool(event.IsToken()), CreatedAt: now},
	}
	if event.IsToken() {
		rows = append(rows, &domain.PaymentMetadata{
			PaymentID: payment.ID, Key: domain.MetadataKeyTokenMint, Value: event.TokenMint, CreatedAt: now,
		})
	}
	for _, m := range rows {
		if err := p.stores.Metadata.Set(ctx, m); err != nil {
			p.logger.Printf("[pipeline] metadata write failed for payment %s key %s: %v", payment.ID, m.Key, err)
		}
	}
}

// recordHistory feeds the velocity counters. Best effort.
func (p *Processor) recordHistory(ctx context.Context, event *domain.TransferEvent) {
	if p.stores.History == nil {
		return
	}
	err := p.stores.History.Record(ctx, &domain.TransferHistoryEntry{
		TxSignature:      event.Signature,
		FromAddress:      event.FromAddress,
		ToAddress:        event.ToAddress,
		AmountMinorUnits: event.AmountMinorUnits,
		Timestamp:        p.now().UnixMilli(),
	})
	if err != nil {
		p.logger.Printf("[pipeline] transfer history write failed for tx %s: %v", event.Signature, err)
	}
}

// sendNotification pushes the status update. Best effort: the decision
// is already durable.
func (p *Processor) sendNotification(ctx context.Context, payment *domain.PaymentRecord, status domain.PaymentStatus, riskScore int, decidedAt int64) {
	if p.notifier == nil {
		return
	}
	err := p.notifier.Notify(ctx, &notify.StatusUpdate{
		PaymentID:    payment.ID,
		TxSignature:  payment.TxSignature,
		ReferenceKey: payment.ReferenceKey,
		Status:       status,
		RiskScore:    riskScore,
		DecidedAt:    decidedAt,
	})
	observability.RecordNotification(err)
	if err != nil {
		p.logger.Printf("[pipeline] notification failed for payment %s: %v", payment.ID, err)
	}
}

// recordAttempt appends one audit attempt row. Best effort.
func (p *Processor) recordAttempt(ctx context.Context, paymentID, attemptType, outcome string, riskScore int) {
	err := p.stores.Attempts.Insert(ctx, &domain.PaymentAttempt{
		ID:          uuid.NewString(),
		PaymentID:   paymentID,
		AttemptType: attemptType,
		Outcome:     outcome,
		RiskScore:   riskScore,
		CreatedAt:   p.now().UnixMilli(),
	})
	if err != nil {
		p.logger.Printf("[pipeline] attempt write failed for payment %s: %v", paymentID, err)
	}
}

// logDelivery writes the raw delivery record. Best effort: a delivery
// log failure never changes the pipeline outcome.
func (p *Processor) logDelivery(ctx context.Context, webhookType string, rawBody []byte, processed bool, errMsg string) {
	err := p.stores.WebhookEvents.Insert(ctx, &domain.WebhookEventLog{
		ID:           uuid.NewString(),
		WebhookType:  webhookType,
		EventData:    string(rawBody),
		Processed:    processed,
		ErrorMessage: errMsg,
		CreatedAt:    p.now().UnixMilli(),
	})
	if err != nil {
		p.logger.Printf("[pipeline] webhook event log write failed: %v", err)
	}
}

// peekType extracts the payload "type" field for the delivery log.
// Returns empty on unparsable bodies; only called after the signature
// is verified.
func peekType(rawBody []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &head); err != nil {
		return ""
	}
	return head.Type
}

// parseReason maps a parse error onto a metrics label.
func parseReason(err error) string {
	switch {
	case errors.Is(err, webhook.ErrNoTransferData):
		return reasonNoTransferData
	case errors.Is(err, webhook.ErrMultipleTransfers):
		return reasonMultipleTransfers
	default:
		return reasonMalformedPayload
	}
}

// violationTypes lists violation type names for log and outcome text.
func violationTypes(violations []domain.PolicyViolation) []string {
	types := make([]string, 0, len(violations))
	for _, v := range violations {
		types = append(types, v.Type)
	}
	return types
}
