// Package wallet bridges transaction signing to an external key holder.
// The pipeline never touches private key material directly; it hands
// unsigned transactions to a Signer and receives them back signed.
package wallet

import (
	"context"
	"errors"

	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
)

// ErrRejected is returned when the key holder declines to sign. The
// caller must treat this as terminal: no retry, no endpoint switch.
var ErrRejected = errors.New("signing request rejected")

// ErrNotConnected is returned when no signer is attached.
var ErrNotConnected = errors.New("signer not connected")

// Signer is the signing bridge. Implementations may prompt a human,
// call out to a wallet process, or sign locally from a keyfile.
type Signer interface {
	// Address returns the public key transactions are paid from.
	Address() solkey.Pubkey

	// Connected reports whether the signer can currently sign.
	Connected() bool

	// SignTransaction fills the fee-payer signature slot of one
	// transaction. The transaction is signed in place.
	SignTransaction(ctx context.Context, tx *txn.Transaction) error

	// SignAllTransactions signs a batch in order. Implementations
	// either sign every transaction or return an error having signed
	// none; partial approval is not supported.
	SignAllTransactions(ctx context.Context, txs []*txn.Transaction) error
}
