package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
)

// LocalSigner signs with an in-process keypair loaded from a standard
// keyfile (JSON array of 64 bytes, as written by solana-keygen). Meant
// for the CLI and for devnet runs; server deployments attach a remote
// signer instead.
type LocalSigner struct {
	keypair *solkey.Keypair
}

// NewLocalSigner wraps an existing keypair.
func NewLocalSigner(kp *solkey.Keypair) *LocalSigner {
	return &LocalSigner{keypair: kp}
}

// LoadLocalSigner reads a keyfile from disk.
func LoadLocalSigner(path string) (*LocalSigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}

	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, fmt.Errorf("parse keyfile %s: %w", path, err)
	}

	kp, err := solkey.KeypairFromBytes(bytes)
	if err != nil {
		return nil, fmt.Errorf("keyfile %s: %w", path, err)
	}
	return &LocalSigner{keypair: kp}, nil
}

func (s *LocalSigner) Address() solkey.Pubkey {
	return s.keypair.Pubkey()
}

func (s *LocalSigner) Connected() bool {
	return s.keypair != nil
}

func (s *LocalSigner) SignTransaction(_ context.Context, tx *txn.Transaction) error {
	if s.keypair == nil {
		return ErrNotConnected
	}
	return tx.PartialSign(s.keypair)
}

func (s *LocalSigner) SignAllTransactions(ctx context.Context, txs []*txn.Transaction) error {
	for i, tx := range txs {
		if err := s.SignTransaction(ctx, tx); err != nil {
			return fmt.Errorf("sign transaction %d of %d: %w", i+1, len(txs), err)
		}
	}
	return nil
}

var _ Signer = (*LocalSigner)(nil)
