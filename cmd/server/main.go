// Package main provides the token creation service:
// - HTTP API: readiness checks and token creation requests
// - PostgreSQL for mint records, ClickHouse for attempt telemetry
// - Kafka lifecycle events and S3 metadata storage (both optional)
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/events"
	"solana-token-forge/internal/forge"
	"solana-token-forge/internal/metastore"
	"solana-token-forge/internal/observability"
	"solana-token-forge/internal/readiness"
	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/storage"
	chstore "solana-token-forge/internal/storage/clickhouse"
	"solana-token-forge/internal/storage/memory"
	"solana-token-forge/internal/storage/migrations"
	pgstore "solana-token-forge/internal/storage/postgres"
	"solana-token-forge/internal/wallet"
)

// Server holds all components of the creation service.
type Server struct {
	network      domain.Network
	pool         *endpoint.Pool
	checker      *readiness.Checker
	orchestrator *forge.Orchestrator
	signer       wallet.Signer
	records      storage.MintRecordStore
	logger       *log.Logger

	// State
	mu              sync.Mutex
	started         time.Time
	tokensCreated   int
	creationsFailed int
	readinessRuns   int
}

// allStores holds all storage implementations.
type allStores struct {
	mintRecordStore      storage.MintRecordStore
	creationAttemptStore storage.CreationAttemptStore
}

func main() {
	// Load .env file if exists; system env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	network := flag.String("network", envOr("NETWORK", "devnet"), "Target cluster (mainnet or devnet)")
	rpcEndpoints := flag.String("rpc-endpoints", os.Getenv("RPC_ENDPOINTS"), "Comma-separated RPC endpoint URL overrides")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "WebSocket endpoint for push confirmations (empty falls back to polling)")
	keyfile := flag.String("keyfile", os.Getenv("KEYFILE"), "Path to the service signer keyfile (solana-keygen JSON)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	kafkaBrokers := flag.String("kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated Kafka brokers (empty disables events)")
	s3Bucket := flag.String("s3-bucket", os.Getenv("S3_BUCKET"), "S3 bucket for metadata blobs (empty uses in-memory store)")
	s3BaseURL := flag.String("s3-base-url", os.Getenv("S3_BASE_URL"), "Public URL prefix the bucket is served under")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	verbose := flag.Bool("verbose", false, "Enable progress logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	net := domain.Network(*network)
	if !net.Valid() {
		logger.Fatalf("--network must be mainnet or devnet, got %q", *network)
	}
	if *keyfile == "" {
		logger.Fatal("--keyfile is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if *s3Bucket != "" && *s3BaseURL == "" {
		logger.Fatal("--s3-base-url is required with --s3-bucket")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	signer, err := wallet.LoadLocalSigner(*keyfile)
	if err != nil {
		logger.Fatalf("Failed to load signer: %v", err)
	}
	logger.Printf("Signer address: %s", signer.Address())

	pool, err := endpoint.NewPool(net, resolveEndpoints(net, *rpcEndpoints), endpoint.WithVerbose(*verbose))
	if err != nil {
		logger.Fatalf("Failed to create endpoint pool: %v", err)
	}

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	limiter := readiness.NewRateLimiter(readiness.MaxAttemptsPerWindow(net))
	checker := readiness.NewChecker(pool, limiter, *verbose)

	opts := []forge.OrchestratorOption{
		forge.WithRateLimiter(limiter),
		forge.WithAttemptRecorder(attemptRecorder{stores.creationAttemptStore}),
		forge.WithRecordStore(recordStore{stores.mintRecordStore}),
		forge.WithMetadataAttacher(metastore.NewAttacher(createBlobStore(ctx, logger, *s3Bucket, *s3BaseURL))),
		forge.WithVerbose(*verbose),
	}
	if *kafkaBrokers != "" {
		publisher := events.NewKafkaPublisher(strings.Split(*kafkaBrokers, ","))
		defer publisher.Close()
		opts = append(opts, forge.WithPublisher(publisher))
		logger.Printf("Publishing lifecycle events to %s", *kafkaBrokers)
	}
	if *wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to connect websocket: %v", err)
		}
		defer ws.Close()
		opts = append(opts, forge.WithConfirmationFeed(ws))
		logger.Printf("Push confirmations via %s", *wsEndpoint)
	}

	server := &Server{
		network:      net,
		pool:         pool,
		checker:      checker,
		orchestrator: forge.NewOrchestrator(pool, signer, opts...),
		signer:       signer,
		records:      stores.mintRecordStore,
		logger:       logger,
		started:      time.Now(),
	}

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s (network: %s)", *listenAddr, net)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// envOr returns the env var value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveEndpoints builds the endpoint list from the override flag, or
// falls back to the built-in set for the network.
func resolveEndpoints(network domain.Network, override string) []endpoint.Endpoint {
	if override == "" {
		return endpoint.DefaultEndpoints(network)
	}
	var list []endpoint.Endpoint
	for i, url := range strings.Split(override, ",") {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		list = append(list, endpoint.Endpoint{
			URL:         url,
			DisplayName: fmt.Sprintf("custom-%d", i+1),
			Priority:    i + 1,
		})
	}
	return list
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			mintRecordStore:      memory.NewMintRecordStore(),
			creationAttemptStore: memory.NewCreationAttemptStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		mintRecordStore:      pgstore.NewMintRecordStore(pool),
		creationAttemptStore: chstore.NewCreationAttemptStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createBlobStore picks the metadata blob store: S3 when a bucket is
// configured, in-memory otherwise.
func createBlobStore(ctx context.Context, logger *log.Logger, bucket, baseURL string) metastore.BlobStore {
	if bucket == "" {
		logger.Println("No S3 bucket configured, metadata blobs stay in memory")
		return metastore.NewMemoryStore()
	}
	store, err := metastore.NewS3Store(ctx, bucket, baseURL)
	if err != nil {
		logger.Fatalf("Failed to create S3 store: %v", err)
	}
	return store
}

// recordStore adapts storage.MintRecordStore to the orchestrator.
type recordStore struct {
	store storage.MintRecordStore
}

func (s recordStore) SaveMintRecord(ctx context.Context, record *domain.MintRecord) error {
	return s.store.Insert(ctx, record)
}

func (s recordStore) AttachMetadataURI(ctx context.Context, mint, uri string) error {
	return s.store.AttachMetadataURI(ctx, mint, uri)
}

// attemptRecorder adapts storage.CreationAttemptStore to the orchestrator.
type attemptRecorder struct {
	store storage.CreationAttemptStore
}

func (r attemptRecorder) RecordAttempt(ctx context.Context, attempt *domain.CreationAttempt) error {
	return r.store.Insert(ctx, attempt)
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/tokens", s.handleTokens)
	mux.HandleFunc("/api/tokens/readiness", s.handleReadiness)
	return requestID(mux)
}

// requestID tags every request so log lines and responses correlate.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// createTokenRequest is the JSON body for POST /api/tokens and
// POST /api/tokens/readiness. The image travels base64-encoded.
type createTokenRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	Supply      uint64 `json:"supply"`
	Description string `json:"description,omitempty"`

	ImageBase64 string `json:"image_base64,omitempty"`
	ImageName   string `json:"image_name,omitempty"`
	ImageType   string `json:"image_type,omitempty"`

	RevokeMintAuthority   bool `json:"revoke_mint_authority"`
	RevokeFreezeAuthority bool `json:"revoke_freeze_authority"`
	RevokeUpdateAuthority bool `json:"revoke_update_authority"`
}

// tokenParams decodes the request into pipeline parameters.
func (r *createTokenRequest) tokenParams() (*domain.TokenParams, error) {
	params := &domain.TokenParams{
		Name:                  r.Name,
		Symbol:                r.Symbol,
		Decimals:              r.Decimals,
		Supply:                r.Supply,
		Description:           r.Description,
		ImageName:             r.ImageName,
		ImageType:             r.ImageType,
		RevokeMintAuthority:   r.RevokeMintAuthority,
		RevokeFreezeAuthority: r.RevokeFreezeAuthority,
		RevokeUpdateAuthority: r.RevokeUpdateAuthority,
	}
	if r.ImageBase64 != "" {
		image, err := base64.StdEncoding.DecodeString(r.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("image_base64 is not valid base64")
		}
		params.Image = image
	}
	return params, nil
}

// createTokenResponse is the JSON response for POST /api/tokens.
type createTokenResponse struct {
	Success              bool   `json:"success"`
	Mint                 string `json:"mint,omitempty"`
	TokenAccount         string `json:"token_account,omitempty"`
	TransactionSignature string `json:"tx_signature,omitempty"`
	ExplorerURL          string `json:"explorer_url,omitempty"`
	MetadataPending      bool   `json:"metadata_pending,omitempty"`
	Error                string `json:"error,omitempty"`
}

// handleTokens serves POST (create) and GET (list) on /api/tokens.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreate(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCreate runs the full creation sequence synchronously. The
// metadata stage continues in the background after the response.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, createTokenResponse{Error: "request body is not valid JSON"})
		return
	}
	params, err := req.tokenParams()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, createTokenResponse{Error: err.Error()})
		return
	}

	// Every gate passes before the first transaction is built.
	ready := s.checker.Check(r.Context(), s.signer, params)
	if !ready.Success {
		writeJSON(w, http.StatusUnprocessableEntity, createTokenResponse{
			Error: strings.Join(ready.Errors, "; "),
		})
		return
	}

	result, err := s.orchestrator.Create(r.Context(), params)
	if err != nil {
		s.mu.Lock()
		s.creationsFailed++
		s.mu.Unlock()
		s.logger.Printf("Creation failed: %v", err)
		// Raw errors never reach the client.
		writeJSON(w, http.StatusUnprocessableEntity, createTokenResponse{
			Error: forge.Sanitize(err, "token creation"),
		})
		return
	}

	s.mu.Lock()
	s.tokensCreated++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, createTokenResponse{
		Success:              true,
		Mint:                 result.MintAddress,
		TokenAccount:         result.TokenAccountAddress,
		TransactionSignature: result.TransactionSignature,
		ExplorerURL:          result.ExplorerURL,
		MetadataPending:      result.MetadataPending,
	})
}

// handleList returns recent mint records, optionally filtered by creator.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		records []*domain.MintRecord
		err     error
	)
	if creator := r.URL.Query().Get("creator"); creator != "" {
		records, err = s.records.GetByCreator(r.Context(), creator)
	} else {
		records, err = s.records.GetRecent(r.Context(), 50)
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("List mint records: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*domain.MintRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// readinessResponse is the JSON response for POST /api/tokens/readiness.
type readinessResponse struct {
	Success          bool     `json:"success"`
	Errors           []string `json:"errors,omitempty"`
	EstimatedFee     uint64   `json:"estimated_fee_lamports"`
	BalanceLamports  uint64   `json:"balance_lamports"`
	RequiredLamports uint64   `json:"required_lamports"`
	ConnectionStatus bool     `json:"connection_status"`
	Endpoint         string   `json:"endpoint,omitempty"`
}

// handleReadiness runs every pre-flight gate without touching state.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "request body is not valid JSON", http.StatusBadRequest)
		return
	}
	params, err := req.tokenParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.checker.Check(r.Context(), s.signer, params)

	s.mu.Lock()
	s.readinessRuns++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, readinessResponse{
		Success:          result.Success,
		Errors:           result.Errors,
		EstimatedFee:     result.EstimatedFee,
		BalanceLamports:  result.BalanceCheck.BalanceLamports,
		RequiredLamports: result.BalanceCheck.RequiredLamports,
		ConnectionStatus: result.ConnectionStatus,
		Endpoint:         result.CurrentEndpointName,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string `json:"status"`
	Network         string `json:"network"`
	Signer          string `json:"signer"`
	Endpoint        string `json:"endpoint"`
	Uptime          string `json:"uptime"`
	TokensCreated   int    `json:"tokens_created"`
	CreationsFailed int    `json:"creations_failed"`
	ReadinessRuns   int    `json:"readiness_runs"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:          "running",
		Network:         string(s.network),
		Signer:          s.signer.Address().String(),
		Endpoint:        s.pool.Current().DisplayName,
		Uptime:          time.Since(s.started).String(),
		TokensCreated:   s.tokensCreated,
		CreationsFailed: s.creationsFailed,
		ReadinessRuns:   s.readinessRuns,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
