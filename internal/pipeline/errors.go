package pipeline

import "errors"

// ErrInvalidSignature rejects a delivery whose HMAC does not match.
// The message text is part of the response contract with the webhook
// provider.
var ErrInvalidSignature = errors.New("Invalid webhook signature")

// Rejection reason labels for metrics.
const (
	reasonInvalidSignature  = "invalid_signature"
	reasonMalformedPayload  = "malformed_payload"
	reasonNoTransferData    = "no_transfer_data"
	reasonMultipleTransfers = "multiple_transfers"
	reasonStorage           = "storage_error"
)
