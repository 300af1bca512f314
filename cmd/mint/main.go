// Package main provides a one-shot CLI that creates an SPL token:
// readiness check, mint creation, supply issuance, authority revokes
// and the optional metadata stage, printing the explorer link at the end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/forge"
	"solana-token-forge/internal/metastore"
	"solana-token-forge/internal/readiness"
	"solana-token-forge/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	network := flag.String("network", envOr("NETWORK", "devnet"), "Target cluster (mainnet or devnet)")
	keyfile := flag.String("keyfile", os.Getenv("KEYFILE"), "Path to the signer keyfile (solana-keygen JSON)")
	name := flag.String("name", "", "Token name")
	symbol := flag.String("symbol", "", "Token symbol")
	decimals := flag.Int("decimals", 9, "Token decimals")
	supply := flag.Uint64("supply", 0, "Total supply in whole tokens")
	description := flag.String("description", "", "Token description")
	imagePath := flag.String("image", "", "Path to the logo image (optional)")
	revokeMint := flag.Bool("revoke-mint", false, "Revoke the mint authority after issuance")
	revokeFreeze := flag.Bool("revoke-freeze", false, "Revoke the freeze authority after issuance")
	revokeUpdate := flag.Bool("revoke-update", false, "Make the metadata immutable")
	checkOnly := flag.Bool("check-only", false, "Run the readiness check and exit")
	verbose := flag.Bool("verbose", false, "Enable progress logging")

	flag.Parse()

	logger := log.New(os.Stderr, "[mint] ", log.LstdFlags)

	net := domain.Network(*network)
	if !net.Valid() {
		logger.Fatalf("--network must be mainnet or devnet, got %q", *network)
	}
	if *keyfile == "" {
		logger.Fatal("--keyfile is required")
	}

	params := &domain.TokenParams{
		Name:                  *name,
		Symbol:                *symbol,
		Decimals:              *decimals,
		Supply:                *supply,
		Description:           *description,
		RevokeMintAuthority:   *revokeMint,
		RevokeFreezeAuthority: *revokeFreeze,
		RevokeUpdateAuthority: *revokeUpdate,
	}
	if *imagePath != "" {
		data, err := os.ReadFile(*imagePath)
		if err != nil {
			logger.Fatalf("Failed to read image: %v", err)
		}
		params.Image = data
		params.ImageName = filepath.Base(*imagePath)
		params.ImageType = mime.TypeByExtension(filepath.Ext(*imagePath))
	}

	signer, err := wallet.LoadLocalSigner(*keyfile)
	if err != nil {
		logger.Fatalf("Failed to load signer: %v", err)
	}

	pool, err := endpoint.NewPool(net, endpoint.DefaultEndpoints(net), endpoint.WithVerbose(*verbose))
	if err != nil {
		logger.Fatalf("Failed to create endpoint pool: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	limiter := readiness.NewRateLimiter(readiness.MaxAttemptsPerWindow(net))
	checker := readiness.NewChecker(pool, limiter, *verbose)

	fmt.Printf("Signer:  %s\n", signer.Address())
	fmt.Printf("Network: %s\n\n", net)

	result := checker.Check(ctx, signer, params)
	fmt.Printf("Endpoint:      %s\n", result.CurrentEndpointName)
	fmt.Printf("Estimated fee: %.6f SOL\n", sol(result.EstimatedFee))
	fmt.Printf("Balance:       %.6f SOL (required %.6f SOL)\n",
		sol(result.BalanceCheck.BalanceLamports), sol(result.BalanceCheck.RequiredLamports))
	if !result.Success {
		fmt.Println("\nNot ready:")
		for _, msg := range result.Errors {
			fmt.Printf("  - %s\n", msg)
		}
		os.Exit(1)
	}
	fmt.Println("\nAll readiness checks passed.")
	if *checkOnly {
		return
	}

	opts := []forge.OrchestratorOption{
		forge.WithRateLimiter(limiter),
		forge.WithVerbose(*verbose),
	}
	if params.HasImage() {
		// The CLI keeps blobs in memory; point at S3 for real deployments.
		opts = append(opts, forge.WithMetadataAttacher(metastore.NewAttacher(metastore.NewMemoryStore())))
	}
	orchestrator := forge.NewOrchestrator(pool, signer, opts...)

	fmt.Println("\nCreating token...")
	created, err := orchestrator.Create(ctx, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n%s\n", forge.Sanitize(err, "token creation"))
		os.Exit(1)
	}

	fmt.Printf("\nToken created\n")
	fmt.Printf("  Mint:          %s\n", created.MintAddress)
	fmt.Printf("  Token account: %s\n", created.TokenAccountAddress)
	fmt.Printf("  Signature:     %s\n", created.TransactionSignature)
	fmt.Printf("  Explorer:      %s\n", created.ExplorerURL)

	if created.MetadataPending {
		fmt.Println("\nAttaching metadata...")
		outcome := <-created.Metadata
		if outcome.Err != nil {
			fmt.Printf("  Metadata stage failed, token stands without a logo: %s\n",
				forge.Sanitize(outcome.Err, "metadata upload"))
			return
		}
		fmt.Printf("  Metadata URI: %s\n", outcome.URI)
		fmt.Printf("  Signature:    %s\n", outcome.Signature)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sol(lamports uint64) float64 {
	return float64(lamports) / 1_000_000_000
}
