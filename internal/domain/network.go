package domain

// Network identifies the target Solana cluster.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
)

// Valid reports whether the network is one of the supported clusters.
func (n Network) Valid() bool {
	return n == NetworkMainnet || n == NetworkDevnet
}

// ExplorerURL returns the explorer link for a transaction signature
// on this network.
func (n Network) ExplorerURL(signature string) string {
	if n == NetworkDevnet {
		return "https://explorer.solana.com/tx/" + signature + "?cluster=devnet"
	}
	return "https://explorer.solana.com/tx/" + signature
}

// MinBalanceLamports is the balance floor required before a creation
// attempt is allowed to start. Mainnet carries a higher floor because
// rent and fees there are paid with real funds.
func (n Network) MinBalanceLamports() uint64 {
	if n == NetworkMainnet {
		return 50_000_000 // 0.05 SOL
	}
	return 10_000_000 // 0.01 SOL
}

// FeeMultiplier is applied to RPC fee estimates. Mainnet fee markets
// are less predictable than devnet, so estimates are padded there.
func (n Network) FeeMultiplier() float64 {
	if n == NetworkMainnet {
		return 1.5
	}
	return 1.0
}
