package domain

// WebhookEventLog is the raw delivery record written for every webhook,
// successful or not. Corresponds to webhook_events table.
type WebhookEventLog struct {
	ID           string // UUID
	WebhookType  string // "type" field of the payload, empty if unparsable
	EventData    string // verbatim raw body
	Processed    bool   // true for VERIFIED/FAILED outcomes, false for rejected deliveries
	ErrorMessage string // rejection or failure reason, empty on success
	CreatedAt    int64  // Unix timestamp in milliseconds
}

// TransferHistoryEntry is one processed transfer, recorded for the
// velocity counters consumed by the policy rules.
type TransferHistoryEntry struct {
	TxSignature      string
	FromAddress      string
	ToAddress        string
	AmountMinorUnits int64
	Timestamp        int64 // Unix timestamp in milliseconds
}
