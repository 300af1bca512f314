package solana

import (
	"context"
	"errors"
)

// ErrBlockhashExpired is returned by WaitForConfirmation when the chain
// advances past the transaction's last valid block height without the
// signature landing.
var ErrBlockhashExpired = errors.New("block height exceeded: blockhash expired")

// Client defines the RPC surface the creation pipeline consumes.
type Client interface {
	// GetSlot retrieves the current slot at the given commitment.
	GetSlot(ctx context.Context, commitment Commitment) (uint64, error)

	// GetLatestBlockhash retrieves a recent block reference.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (*Blockhash, error)

	// GetBlockHeight retrieves the current block height.
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)

	// GetBalance retrieves an address balance in lamports.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetFeeForMessage asks the cluster for the fee of a compiled
	// message (base64). Returns 0 when the cluster reports no value.
	GetFeeForMessage(ctx context.Context, messageBase64 string) (uint64, error)

	// GetMinimumBalanceForRentExemption returns the lamports needed to
	// rent-exempt an account of the given size.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error)

	// GetAccountInfo retrieves account info, nil if the account does
	// not exist.
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)

	// SimulateTransaction dry-runs a serialized transaction (base64)
	// without signature verification.
	SimulateTransaction(ctx context.Context, txBase64 string) (*SimulationResult, error)

	// SendTransaction submits a signed serialized transaction (base64)
	// and returns its signature.
	SendTransaction(ctx context.Context, txBase64 string, opts *SendOptions) (string, error)

	// GetSignatureStatuses retrieves confirmation status for signatures.
	// Entries are nil for unknown signatures.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// WaitForConfirmation blocks until the signature reaches the given
	// commitment, the blockhash expires, or the context is done.
	WaitForConfirmation(ctx context.Context, signature string, ref *Blockhash, commitment Commitment) error
}
