// Package readiness runs the pre-flight checks that gate a token
// creation attempt: endpoint connectivity, signer presence, field
// validation, rate limiting, fee estimation and the balance floor.
package readiness

import (
	"context"
	"fmt"
	"log"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/observability"
	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
	"solana-token-forge/internal/validate"
	"solana-token-forge/internal/wallet"
)

// groupCount returns how many transactions the creation sequence will
// submit for a request.
func groupCount(p *domain.TokenParams) uint64 {
	if p.HasImage() {
		return 3
	}
	return 2
}

// Checker performs the full readiness evaluation. Results are computed
// fresh on every call; balance and endpoint health drift between calls.
type Checker struct {
	pool    *endpoint.Pool
	limiter *RateLimiter
	verbose bool
}

// NewChecker builds a checker over an endpoint pool. The limiter is
// shared with the orchestrator so attempts started elsewhere count
// against the same quota.
func NewChecker(pool *endpoint.Pool, limiter *RateLimiter, verbose bool) *Checker {
	return &Checker{pool: pool, limiter: limiter, verbose: verbose}
}

// Check evaluates every gate and collects all failures rather than
// stopping at the first one.
func (c *Checker) Check(ctx context.Context, signer wallet.Signer, params *domain.TokenParams) *domain.ReadinessResult {
	result := &domain.ReadinessResult{}
	defer func() { observability.RecordReadinessCheck(result.Success) }()

	result.Errors = append(result.Errors, validate.Params(params)...)

	if signer == nil || !signer.Connected() {
		result.Errors = append(result.Errors, "wallet is not connected")
		return result
	}
	address := signer.Address().String()

	if allowed, retryAfter := c.limiter.Allow(address); !allowed {
		observability.RecordRateLimitRejection()
		result.Errors = append(result.Errors,
			fmt.Sprintf("rate limit exceeded: try again in %d seconds", int(retryAfter.Seconds())+1))
	}

	if err := c.pool.CheckConnection(ctx); err != nil {
		result.Errors = append(result.Errors, "no RPC endpoint is reachable")
		return result
	}
	result.ConnectionStatus = true
	result.CurrentEndpointName = c.pool.Current().DisplayName

	client := c.pool.Client()
	network := c.pool.Network()

	fee, err := c.estimateFee(ctx, client, signer.Address().String(), params)
	if err != nil {
		c.logf("fee estimation failed: %v", err)
		result.Errors = append(result.Errors, "could not estimate the network fee")
	} else {
		result.EstimatedFee = fee
	}

	balance, err := client.GetBalance(ctx, address)
	if err != nil {
		c.logf("balance lookup failed: %v", err)
		result.Errors = append(result.Errors, "could not read the wallet balance")
		return result
	}

	required := network.MinBalanceLamports()
	result.BalanceCheck = domain.BalanceCheck{
		BalanceLamports:  balance,
		RequiredLamports: required,
		Sufficient:       balance >= required,
	}
	if !result.BalanceCheck.Sufficient {
		result.Errors = append(result.Errors,
			fmt.Sprintf("balance %.4f SOL is below the required %.4f SOL",
				lamportsToSol(balance), lamportsToSol(required)))
	}

	result.Success = len(result.Errors) == 0
	return result
}

// estimateFee prices a representative single-transfer message and
// scales it by the number of transactions the sequence will submit,
// padded by the network's fee multiplier.
func (c *Checker) estimateFee(ctx context.Context, client solana.Client, payerAddress string, params *domain.TokenParams) (uint64, error) {
	payer, err := solkey.ParsePubkey(payerAddress)
	if err != nil {
		return 0, err
	}

	blockhash, err := client.GetLatestBlockhash(ctx, solana.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("fetch blockhash: %w", err)
	}

	msg, err := txn.CompileMessage(payer, blockhash.Hash, []txn.Instruction{
		txn.NewTransfer(payer, payer, 1),
	})
	if err != nil {
		return 0, err
	}
	encoded, err := msg.SerializeBase64()
	if err != nil {
		return 0, err
	}

	perTx, err := client.GetFeeForMessage(ctx, encoded)
	if err != nil {
		return 0, fmt.Errorf("fee for message: %w", err)
	}
	if perTx == 0 {
		perTx = 5000 // cluster returned no value; assume the base signature fee
	}

	total := perTx * groupCount(params)
	return uint64(float64(total) * c.pool.Network().FeeMultiplier()), nil
}

func (c *Checker) logf(format string, args ...interface{}) {
	if c.verbose {
		log.Printf("[readiness] "+format, args...)
	}
}

func lamportsToSol(lamports uint64) float64 {
	return float64(lamports) / 1_000_000_000
}
