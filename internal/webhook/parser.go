package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"solana-payment-gateway/internal/domain"
)

// Parse errors. The pipeline maps these onto its rejection taxonomy.
var (
	// ErrMalformedPayload indicates the body is not valid JSON
	// (including empty bodies).
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrNoTransferData indicates a syntactically valid payload with
	// neither native nor token transfers.
	ErrNoTransferData = errors.New("No transfer data found in webhook")

	// ErrMultipleTransfers indicates more than one transfer entry in a
	// single delivery. Exactly one is expected; multi-transfer
	// deliveries are rejected rather than fanned out.
	ErrMultipleTransfers = errors.New("multiple transfers in webhook; exactly one expected")
)

// Parse normalizes a raw webhook body into a canonical TransferEvent.
//
// Amount positivity and address format are not validated here; that is
// the policy engine's job. Only structural problems fail the parse.
func Parse(rawBody []byte) (*domain.TransferEvent, error) {
	var p Payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	total := len(p.NativeTransfers) + len(p.TokenTransfers)
	switch {
	case total == 0:
		return nil, ErrNoTransferData
	case total > 1:
		return nil, ErrMultipleTransfers
	}

	if len(p.TokenTransfers) == 1 {
		return parseTokenTransfer(&p, &p.TokenTransfers[0])
	}
	return parseNativeTransfer(&p, &p.NativeTransfers[0])
}

func parseNativeTransfer(p *Payload, t *NativeTransfer) (*domain.TransferEvent, error) {
	amount, err := parseAmount(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: native transfer amount %q", ErrMalformedPayload, t.Amount)
	}

	return &domain.TransferEvent{
		Signature:        p.Signature,
		Kind:             domain.TransferKindNative,
		AmountMinorUnits: amount,
		FromAddress:      t.FromUserAccount,
		ToAddress:        t.ToUserAccount,
		Slot:             p.Slot,
		Timestamp:        p.Timestamp,
		RawDescription:   p.Description,
	}, nil
}

func parseTokenTransfer(p *Payload, t *TokenTransfer) (*domain.TransferEvent, error) {
	amount, err := parseAmount(t.TokenAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: token transfer amount %q", ErrMalformedPayload, t.TokenAmount)
	}

	return &domain.TransferEvent{
		Signature:        p.Signature,
		Kind:             domain.TransferKindToken,
		AmountMinorUnits: amount,
		TokenMint:        t.Mint,
		FromAddress:      t.FromUserAccount,
		ToAddress:        t.ToUserAccount,
		Slot:             p.Slot,
		Timestamp:        p.Timestamp,
		RawDescription:   p.Description,
	}, nil
}

// parseAmount parses a decimal minor-unit amount string.
func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
