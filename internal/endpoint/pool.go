// Package endpoint manages the ordered set of candidate RPC endpoints
// for one network and the failover between them. One Pool instance is
// owned per session; its current index is the only mutable state.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/solana"
)

// ProbeTimeout bounds each of the two liveness probes.
const ProbeTimeout = 5 * time.Second

// ErrAllEndpointsDown is returned when every endpoint failed both
// probes. Fatal for the attempt; not retried internally.
var ErrAllEndpointsDown = errors.New("all endpoints failed connectivity probes")

// Endpoint is one candidate RPC endpoint.
type Endpoint struct {
	URL         string
	DisplayName string
	Priority    int // lower probes first
}

// DefaultEndpoints returns the built-in endpoint set for a network.
func DefaultEndpoints(network domain.Network) []Endpoint {
	if network == domain.NetworkDevnet {
		return []Endpoint{
			{URL: "https://api.devnet.solana.com", DisplayName: "Solana Devnet", Priority: 1},
			{URL: "https://rpc.ankr.com/solana_devnet", DisplayName: "Ankr Devnet", Priority: 2},
		}
	}
	return []Endpoint{
		{URL: "https://api.mainnet-beta.solana.com", DisplayName: "Solana Mainnet", Priority: 1},
		{URL: "https://rpc.ankr.com/solana", DisplayName: "Ankr", Priority: 2},
		{URL: "https://solana-api.projectserum.com", DisplayName: "Serum", Priority: 3},
	}
}

// ClientFactory builds an RPC client for an endpoint URL. Injected so
// tests can supply stub clients.
type ClientFactory func(url string) solana.Client

// Pool holds the ordered endpoints and the current selection.
type Pool struct {
	mu        sync.Mutex
	endpoints []Endpoint
	clients   []solana.Client
	current   int
	network   domain.Network
	verbose   bool
}

// Option configures a Pool.
type Option func(*poolConfig)

type poolConfig struct {
	factory ClientFactory
	verbose bool
}

// WithClientFactory overrides how per-endpoint clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(c *poolConfig) {
		c.factory = f
	}
}

// WithVerbose enables probe logging.
func WithVerbose(v bool) Option {
	return func(c *poolConfig) {
		c.verbose = v
	}
}

// NewPool creates a pool over the given endpoints, sorted by priority.
func NewPool(network domain.Network, endpoints []Endpoint, opts ...Option) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("endpoint pool requires at least one endpoint")
	}

	cfg := poolConfig{
		factory: func(url string) solana.Client {
			return solana.NewHTTPClient(url)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sorted := make([]Endpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	clients := make([]solana.Client, len(sorted))
	for i, ep := range sorted {
		clients[i] = cfg.factory(ep.URL)
	}

	return &Pool{
		endpoints: sorted,
		clients:   clients,
		network:   network,
		verbose:   cfg.verbose,
	}, nil
}

// Network returns the pool's target network.
func (p *Pool) Network() domain.Network {
	return p.network
}

// Current returns the currently selected endpoint.
func (p *Pool) Current() Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoints[p.current]
}

// Client returns the RPC client for the current endpoint.
func (p *Pool) Client() solana.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients[p.current]
}

// SwitchToNext advances to the next endpoint in priority order.
// Returns false when no further endpoint exists. Used by the
// orchestrator mid-retry; distinct from the full re-probe in
// CheckConnection.
func (p *Pool) SwitchToNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current+1 >= len(p.endpoints) {
		return false
	}
	p.current++
	p.logf("switched to endpoint %s", p.endpoints[p.current].DisplayName)
	return true
}

// CheckConnection resets to the highest-priority endpoint and probes
// each in order until one answers. An endpoint is accepted when at
// least one of two independent probes (current slot, recent blockhash)
// succeeds within its bound. Exhausting the pool returns
// ErrAllEndpointsDown.
func (p *Pool) CheckConnection(ctx context.Context) error {
	p.mu.Lock()
	p.current = 0
	p.mu.Unlock()

	for {
		p.mu.Lock()
		idx := p.current
		ep := p.endpoints[idx]
		client := p.clients[idx]
		p.mu.Unlock()

		if p.probe(ctx, client) {
			p.logf("endpoint %s is live", ep.DisplayName)
			return nil
		}
		p.logf("endpoint %s failed both probes", ep.DisplayName)

		if !p.SwitchToNext() {
			return fmt.Errorf("%w: tried %d endpoints", ErrAllEndpointsDown, len(p.endpoints))
		}
	}
}

// probe runs the two independent liveness probes. Either passing
// within its bound accepts the endpoint.
func (p *Pool) probe(ctx context.Context, client solana.Client) bool {
	slotCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	_, slotErr := client.GetSlot(slotCtx, solana.CommitmentConfirmed)
	cancel()
	if slotErr == nil {
		return true
	}

	bhCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	_, bhErr := client.GetLatestBlockhash(bhCtx, solana.CommitmentConfirmed)
	cancel()
	return bhErr == nil
}

func (p *Pool) logf(format string, args ...interface{}) {
	if p.verbose {
		log.Printf("[endpoint] "+format, args...)
	}
}
