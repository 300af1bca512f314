package txn

import (
	"context"
	"errors"
	"fmt"
	"math"

	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/solkey"
)

// ErrSupplyOverflow is returned when supply * 10^decimals exceeds the
// 64-bit raw token amount.
var ErrSupplyOverflow = errors.New("supply scaled by decimals overflows raw amount")

// ErrSimulationFailed wraps a failed pre-signature dry-run. Surfaced
// to the caller without ever reaching the signer.
var ErrSimulationFailed = errors.New("transaction simulation failed")

// ScaleSupply converts a whole-token supply to raw units.
func ScaleSupply(supply uint64, decimals int) (uint64, error) {
	amount := supply
	for i := 0; i < decimals; i++ {
		if amount > math.MaxUint64/10 {
			return 0, ErrSupplyOverflow
		}
		amount *= 10
	}
	return amount, nil
}

// Group is one built, unsigned transaction together with the block
// reference it was compiled against.
type Group struct {
	Tx        *Transaction
	Blockhash *solana.Blockhash
}

// Builder constructs the ordered transaction groups of the creation
// sequence. Each group fetches its own fresh block reference
// immediately before signing; stale references fail confirmation on
// slow networks.
type Builder struct {
	client solana.Client
}

// NewBuilder creates a Builder over an RPC client. The orchestrator
// rebuilds it after an endpoint failover.
func NewBuilder(client solana.Client) *Builder {
	return &Builder{client: client}
}

// BuildMintGroup builds group 1: allocate the mint account, rent-funded
// and sized for mint state, then initialize it with the payer as both
// mint and freeze authority. The mint keypair must co-sign.
func (b *Builder) BuildMintGroup(ctx context.Context, payer solkey.Pubkey, mint *solkey.Keypair, decimals int) (*Group, error) {
	rent, err := b.client.GetMinimumBalanceForRentExemption(ctx, MintAccountSize)
	if err != nil {
		return nil, fmt.Errorf("fetch rent exemption: %w", err)
	}

	blockhash, err := b.client.GetLatestBlockhash(ctx, solana.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	mintPub := mint.Pubkey()
	instructions := []Instruction{
		NewCreateAccount(payer, mintPub, rent, MintAccountSize, solkey.TokenProgramID),
		NewInitializeMint2(mintPub, uint8(decimals), payer, payer),
	}

	msg, err := CompileMessage(payer, blockhash.Hash, instructions)
	if err != nil {
		return nil, fmt.Errorf("compile mint group: %w", err)
	}

	return &Group{Tx: NewTransaction(msg), Blockhash: blockhash}, nil
}

// BuildIssueGroup builds group 2: create the payer's associated token
// account, mint the full supply into it, then append requested
// authority revocations in fixed order (mint before freeze) so
// confirmations are deterministic.
func (b *Builder) BuildIssueGroup(ctx context.Context, payer, mint solkey.Pubkey, decimals int, supply uint64, revokeMint, revokeFreeze bool) (*Group, solkey.Pubkey, error) {
	amount, err := ScaleSupply(supply, decimals)
	if err != nil {
		return nil, solkey.Pubkey{}, err
	}

	ata, err := solkey.AssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, solkey.Pubkey{}, err
	}

	blockhash, err := b.client.GetLatestBlockhash(ctx, solana.CommitmentConfirmed)
	if err != nil {
		return nil, solkey.Pubkey{}, fmt.Errorf("fetch blockhash: %w", err)
	}

	instructions := []Instruction{
		NewCreateAssociatedAccountIdempotent(payer, ata, payer, mint),
		NewMintTo(mint, ata, payer, amount),
	}
	if revokeMint {
		instructions = append(instructions, NewRevokeAuthority(mint, AuthorityMintTokens, payer))
	}
	if revokeFreeze {
		instructions = append(instructions, NewRevokeAuthority(mint, AuthorityFreezeAccount, payer))
	}

	msg, err := CompileMessage(payer, blockhash.Hash, instructions)
	if err != nil {
		return nil, solkey.Pubkey{}, fmt.Errorf("compile issue group: %w", err)
	}

	return &Group{Tx: NewTransaction(msg), Blockhash: blockhash}, ata, nil
}

// BuildMetadataGroup builds group 3: link the descriptor URI, name and
// symbol to the mint. Only built when an image descriptor exists.
// revokeUpdate makes the metadata immutable, permanently.
func (b *Builder) BuildMetadataGroup(ctx context.Context, payer, mint solkey.Pubkey, name, symbol, uri string, revokeUpdate bool) (*Group, error) {
	metadataAccount, err := solkey.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}

	blockhash, err := b.client.GetLatestBlockhash(ctx, solana.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	instructions := []Instruction{
		NewCreateMetadataV3(metadataAccount, mint, payer, payer, payer, name, symbol, uri, !revokeUpdate),
	}

	msg, err := CompileMessage(payer, blockhash.Hash, instructions)
	if err != nil {
		return nil, fmt.Errorf("compile metadata group: %w", err)
	}

	return &Group{Tx: NewTransaction(msg), Blockhash: blockhash}, nil
}

// Simulate dry-runs a group against the cluster before any signature
// is requested. A simulation error never reaches the signer.
func (b *Builder) Simulate(ctx context.Context, group *Group) error {
	encoded, err := group.Tx.SerializeBase64()
	if err != nil {
		return err
	}
	result, err := b.client.SimulateTransaction(ctx, encoded)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	if result.Failed() {
		return fmt.Errorf("%w: %v", ErrSimulationFailed, result.Err)
	}
	return nil
}
