// Package stub provides a fake chain client for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-token-forge/internal/solana"
)

// Client implements solana.Client for testing. Behavior is driven by
// exported fields; zero value answers every call successfully.
type Client struct {
	mu sync.Mutex

	// Canned responses.
	Slot          uint64
	BlockHeight   uint64
	Blockhash     solana.Blockhash
	Balances      map[string]uint64
	Fee           uint64
	RentExemption uint64
	Accounts      map[string]*solana.AccountInfo
	SimResult     *solana.SimulationResult

	// Errors returned per method; nil means success.
	SlotErr      error
	BlockhashErr error
	BalanceErr   error
	FeeErr       error
	SendErr      error
	ConfirmErr   error
	SimErr       error

	// SendErrs, when set, are consumed one per SendTransaction call
	// before SendErr applies. Lets a test fail the Nth send only.
	SendErrs []error

	// sendCount numbers the signatures handed out.
	sendCount int

	// Calls records method names in invocation order.
	Calls []string
}

// NewClient creates a stub with sane defaults.
func NewClient() *Client {
	return &Client{
		Slot:        100,
		BlockHeight: 90,
		Blockhash: solana.Blockhash{
			Hash:                 "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oLubtRqqLEnWz",
			LastValidBlockHeight: 250,
		},
		Balances:      make(map[string]uint64),
		Fee:           5000,
		RentExemption: 1_461_600,
		Accounts:      make(map[string]*solana.AccountInfo),
	}
}

func (c *Client) record(method string) {
	c.mu.Lock()
	c.Calls = append(c.Calls, method)
	c.mu.Unlock()
}

// CallsFor returns how many times a method was invoked.
func (c *Client) CallsFor(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Calls {
		if m == method {
			n++
		}
	}
	return n
}

// CallOrder returns a copy of the recorded call sequence.
func (c *Client) CallOrder() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Calls))
	copy(out, c.Calls)
	return out
}

func (c *Client) GetSlot(_ context.Context, _ solana.Commitment) (uint64, error) {
	c.record("getSlot")
	if c.SlotErr != nil {
		return 0, c.SlotErr
	}
	return c.Slot, nil
}

func (c *Client) GetLatestBlockhash(_ context.Context, _ solana.Commitment) (*solana.Blockhash, error) {
	c.record("getLatestBlockhash")
	if c.BlockhashErr != nil {
		return nil, c.BlockhashErr
	}
	bh := c.Blockhash
	return &bh, nil
}

func (c *Client) GetBlockHeight(_ context.Context, _ solana.Commitment) (uint64, error) {
	c.record("getBlockHeight")
	return c.BlockHeight, nil
}

func (c *Client) GetBalance(_ context.Context, address string) (uint64, error) {
	c.record("getBalance")
	if c.BalanceErr != nil {
		return 0, c.BalanceErr
	}
	return c.Balances[address], nil
}

func (c *Client) GetFeeForMessage(_ context.Context, _ string) (uint64, error) {
	c.record("getFeeForMessage")
	if c.FeeErr != nil {
		return 0, c.FeeErr
	}
	return c.Fee, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(_ context.Context, _ int) (uint64, error) {
	c.record("getMinimumBalanceForRentExemption")
	return c.RentExemption, nil
}

func (c *Client) GetAccountInfo(_ context.Context, address string) (*solana.AccountInfo, error) {
	c.record("getAccountInfo")
	return c.Accounts[address], nil
}

func (c *Client) SimulateTransaction(_ context.Context, _ string) (*solana.SimulationResult, error) {
	c.record("simulateTransaction")
	if c.SimErr != nil {
		return nil, c.SimErr
	}
	if c.SimResult != nil {
		return c.SimResult, nil
	}
	return &solana.SimulationResult{}, nil
}

func (c *Client) SendTransaction(_ context.Context, _ string, _ *solana.SendOptions) (string, error) {
	c.record("sendTransaction")
	c.mu.Lock()
	if len(c.SendErrs) > 0 {
		err := c.SendErrs[0]
		c.SendErrs = c.SendErrs[1:]
		c.mu.Unlock()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
	} else if c.SendErr != nil {
		c.mu.Unlock()
		return "", c.SendErr
	}
	c.sendCount++
	sig := fmt.Sprintf("stubsig%d", c.sendCount)
	c.mu.Unlock()
	return sig, nil
}

func (c *Client) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.record("getSignatureStatuses")
	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i := range signatures {
		statuses[i] = &solana.SignatureStatus{
			Slot:               c.Slot,
			ConfirmationStatus: solana.CommitmentConfirmed,
		}
	}
	return statuses, nil
}

func (c *Client) WaitForConfirmation(_ context.Context, _ string, _ *solana.Blockhash, _ solana.Commitment) error {
	c.record("confirm")
	return c.ConfirmErr
}

// Compile-time interface check.
var _ solana.Client = (*Client)(nil)
