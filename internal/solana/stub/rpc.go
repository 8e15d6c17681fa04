// Package stub provides an in-memory RPCClient for tests.
package stub

import (
	"context"
	"errors"

	"solana-payment-gateway/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	Statuses     map[string]*solana.SignatureStatus
	Transactions map[string]*solana.Transaction

	// Err, when set, is returned from every call to simulate an
	// unreachable cluster.
	Err error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Statuses:     make(map[string]*solana.SignatureStatus),
		Transactions: make(map[string]*solana.Transaction),
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetSignatureStatus returns the stubbed status, or nil when unknown.
func (c *RPCClient) GetSignatureStatus(_ context.Context, signature string) (*solana.SignatureStatus, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Statuses[signature], nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}
