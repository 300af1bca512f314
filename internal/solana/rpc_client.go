package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-token-forge/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultConfirmPollInterval is the delay between signature status
	// polls while waiting for confirmation.
	DefaultConfirmPollInterval = 2 * time.Second
)

// HTTPClient implements Client using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint            string
	client              *http.Client
	maxRetries          int
	retryDelay          time.Duration
	maxDelay            time.Duration
	backoffMult         float64
	confirmPollInterval time.Duration
	requestID           atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithConfirmPollInterval sets the signature status poll interval.
func WithConfirmPollInterval(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.confirmPollInterval = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:            endpoint,
		client:              &http.Client{Timeout: DefaultTimeout},
		maxRetries:          DefaultMaxRetries,
		retryDelay:          DefaultRetryDelay,
		maxDelay:            DefaultMaxDelay,
		backoffMult:         DefaultBackoffMult,
		confirmPollInterval: DefaultConfirmPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the RPC URL this client talks to.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call with retries and exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	started := time.Now()
	err := c.doCall(ctx, method, params, result)
	observability.RecordRPCLatency(method, time.Since(started).Seconds())
	if err != nil {
		observability.RecordRPCError(method)
	}
	return err
}

func (c *HTTPClient) doCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// commitmentParam builds the standard commitment config object.
func commitmentParam(commitment Commitment) map[string]interface{} {
	if commitment == "" {
		commitment = CommitmentConfirmed
	}
	return map[string]interface{}{"commitment": string(commitment)}
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context, commitment Commitment) (uint64, error) {
	var result uint64
	params := []interface{}{commitmentParam(commitment)}
	if err := c.call(ctx, "getSlot", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// getLatestBlockhashResult is the raw RPC response for getLatestBlockhash.
type getLatestBlockhashResult struct {
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// GetLatestBlockhash retrieves a recent block reference.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context, commitment Commitment) (*Blockhash, error) {
	var result getLatestBlockhashResult
	params := []interface{}{commitmentParam(commitment)}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}
	if result.Value.Blockhash == "" {
		return nil, fmt.Errorf("empty blockhash in response")
	}
	return &Blockhash{
		Hash:                 result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetBlockHeight retrieves the current block height.
func (c *HTTPClient) GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error) {
	var result uint64
	params := []interface{}{commitmentParam(commitment)}
	if err := c.call(ctx, "getBlockHeight", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// getBalanceResult is the raw RPC response for getBalance.
type getBalanceResult struct {
	Value uint64 `json:"value"`
}

// GetBalance retrieves an address balance in lamports.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result getBalanceResult
	params := []interface{}{address}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// getFeeForMessageResult is the raw RPC response for getFeeForMessage.
type getFeeForMessageResult struct {
	Value *uint64 `json:"value"`
}

// GetFeeForMessage asks the cluster for a compiled message's fee.
func (c *HTTPClient) GetFeeForMessage(ctx context.Context, messageBase64 string) (uint64, error) {
	var result getFeeForMessageResult
	params := []interface{}{
		messageBase64,
		commitmentParam(CommitmentConfirmed),
	}
	if err := c.call(ctx, "getFeeForMessage", params, &result); err != nil {
		return 0, err
	}
	if result.Value == nil {
		// Cluster could not price the message (e.g. expired blockhash).
		return 0, nil
	}
	return *result.Value, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum
// for an account of the given size.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	var result uint64
	params := []interface{}{dataLen}
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	params := []interface{}{
		address,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

// simulateTransactionResult is the raw RPC response for simulateTransaction.
type simulateTransactionResult struct {
	Value struct {
		Err  interface{} `json:"err"`
		Logs []string    `json:"logs"`
	} `json:"value"`
}

// SimulateTransaction dry-runs a serialized transaction without
// signature verification, replacing its blockhash with a current one.
func (c *HTTPClient) SimulateTransaction(ctx context.Context, txBase64 string) (*SimulationResult, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":               "base64",
			"sigVerify":              false,
			"replaceRecentBlockhash": true,
			"commitment":             string(CommitmentConfirmed),
		},
	}

	var result simulateTransactionResult
	if err := c.call(ctx, "simulateTransaction", params, &result); err != nil {
		return nil, err
	}

	return &SimulationResult{
		Err:  result.Value.Err,
		Logs: result.Value.Logs,
	}, nil
}

// SendTransaction submits a signed serialized transaction.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string, opts *SendOptions) (string, error) {
	config := map[string]interface{}{
		"encoding": "base64",
	}
	if opts != nil {
		if opts.SkipPreflight {
			config["skipPreflight"] = true
		}
		if opts.MaxRetries != nil {
			config["maxRetries"] = *opts.MaxRetries
		}
	}

	var signature string
	params := []interface{}{txBase64, config}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// getSignatureStatusesResult is the raw RPC response for getSignatureStatuses.
type getSignatureStatusesResult struct {
	Value []*signatureStatusValue `json:"value"`
}

type signatureStatusValue struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	ConfirmationStatus string      `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}

// GetSignatureStatuses retrieves confirmation status for signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []interface{}{signatures}

	var result getSignatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}

	statuses := make([]*SignatureStatus, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		statuses[i] = &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: Commitment(v.ConfirmationStatus),
			Err:                v.Err,
		}
	}
	return statuses, nil
}

// commitmentReached reports whether an observed status satisfies the
// requested commitment.
func commitmentReached(observed, requested Commitment) bool {
	rank := func(c Commitment) int {
		switch c {
		case CommitmentProcessed:
			return 1
		case CommitmentConfirmed:
			return 2
		case CommitmentFinalized:
			return 3
		}
		return 0
	}
	return rank(observed) >= rank(requested)
}

// WaitForConfirmation polls signature status until the requested
// commitment is reached or the blockhash expires.
func (c *HTTPClient) WaitForConfirmation(ctx context.Context, signature string, ref *Blockhash, commitment Commitment) error {
	if commitment == "" {
		commitment = CommitmentConfirmed
	}

	ticker := time.NewTicker(c.confirmPollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.GetSignatureStatuses(ctx, []string{signature})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			st := statuses[0]
			if st.Err != nil {
				return fmt.Errorf("transaction failed on-chain: %v", st.Err)
			}
			if commitmentReached(st.ConfirmationStatus, commitment) {
				return nil
			}
		}

		// Expiry check only when the caller supplied a block reference.
		if ref != nil && ref.LastValidBlockHeight > 0 {
			height, hErr := c.GetBlockHeight(ctx, CommitmentConfirmed)
			if hErr == nil && height > ref.LastValidBlockHeight {
				return ErrBlockhashExpired
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)
