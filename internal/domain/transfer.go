package domain

// TransferKind distinguishes native SOL movements from SPL token transfers.
type TransferKind string

const (
	TransferKindNative TransferKind = "NATIVE"
	TransferKindToken  TransferKind = "TOKEN"
)

// TransferEvent is the canonical payment event extracted from a webhook
// delivery. Immutable once parsed; exactly one event per delivery.
type TransferEvent struct {
	Signature        string       // Solana transaction signature
	Kind             TransferKind // NATIVE or TOKEN
	AmountMinorUnits int64        // lamports for native, raw token units for SPL
	TokenMint        string       // mint address, empty for native transfers
	FromAddress      string       // sender account
	ToAddress        string       // recipient account
	Slot             int64        // Solana slot number
	Timestamp        int64        // Unix timestamp in seconds
	RawDescription   string       // free-text description from the webhook
}

// IsToken reports whether the event is an SPL token transfer.
func (e *TransferEvent) IsToken() bool {
	return e.Kind == TransferKindToken
}
