package domain

// BalanceCheck compares the signer's balance against the computed
// minimum for the target network.
type BalanceCheck struct {
	BalanceLamports  uint64
	RequiredLamports uint64
	Sufficient       bool
}

// ReadinessResult aggregates every pre-flight check. It is produced
// fresh per attempt; balance and endpoint health are time-varying, so
// results are never cached.
type ReadinessResult struct {
	Success             bool
	Errors              []string
	EstimatedFee        uint64 // lamports, multiplier applied
	BalanceCheck        BalanceCheck
	ConnectionStatus    bool
	CurrentEndpointName string
}
