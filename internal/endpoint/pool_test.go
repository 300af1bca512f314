package endpoint

import (
	"context"
	"errors"
	"testing"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/solana/stub"
)

var errDown = errors.New("connection refused")

func downClient() *stub.Client {
	c := stub.NewClient()
	c.SlotErr = errDown
	c.BlockhashErr = errDown
	return c
}

func threeEndpoints() []Endpoint {
	return []Endpoint{
		{URL: "http://one", DisplayName: "one", Priority: 1},
		{URL: "http://two", DisplayName: "two", Priority: 2},
		{URL: "http://three", DisplayName: "three", Priority: 3},
	}
}

func poolWithClients(t *testing.T, clients map[string]*stub.Client) *Pool {
	t.Helper()
	pool, err := NewPool(domain.NetworkDevnet, threeEndpoints(),
		WithClientFactory(func(url string) solana.Client {
			return clients[url]
		}))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func TestCheckConnection_FirstEndpointLive(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := poolWithClients(t, clients)

	if err := pool.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if name := pool.Current().DisplayName; name != "one" {
		t.Errorf("expected current endpoint one, got %s", name)
	}
	if clients["http://two"].CallsFor("getSlot") != 0 {
		t.Error("later endpoints must not be probed when the first is live")
	}
}

func TestCheckConnection_FailoverToThird(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   downClient(),
		"http://two":   downClient(),
		"http://three": stub.NewClient(),
	}
	pool := poolWithClients(t, clients)

	if err := pool.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if name := pool.Current().DisplayName; name != "three" {
		t.Errorf("expected current endpoint three, got %s", name)
	}

	// Both probes ran against each dead endpoint.
	for _, url := range []string{"http://one", "http://two"} {
		c := clients[url]
		if c.CallsFor("getSlot") != 1 || c.CallsFor("getLatestBlockhash") != 1 {
			t.Errorf("%s: expected both probes to run once, got slot=%d blockhash=%d",
				url, c.CallsFor("getSlot"), c.CallsFor("getLatestBlockhash"))
		}
	}
}

func TestCheckConnection_SecondProbeAccepts(t *testing.T) {
	// getSlot fails but getLatestBlockhash succeeds: endpoint accepted.
	c := stub.NewClient()
	c.SlotErr = errDown
	clients := map[string]*stub.Client{
		"http://one":   c,
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := poolWithClients(t, clients)

	if err := pool.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if name := pool.Current().DisplayName; name != "one" {
		t.Errorf("expected endpoint one accepted on second probe, got %s", name)
	}
}

func TestCheckConnection_AllDown(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   downClient(),
		"http://two":   downClient(),
		"http://three": downClient(),
	}
	pool := poolWithClients(t, clients)

	err := pool.CheckConnection(context.Background())
	if !errors.Is(err, ErrAllEndpointsDown) {
		t.Fatalf("expected ErrAllEndpointsDown, got %v", err)
	}
}

func TestCheckConnection_ResetsToHighestPriority(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := poolWithClients(t, clients)

	pool.SwitchToNext()
	pool.SwitchToNext()
	if name := pool.Current().DisplayName; name != "three" {
		t.Fatalf("expected three after two switches, got %s", name)
	}

	if err := pool.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection: %v", err)
	}
	if name := pool.Current().DisplayName; name != "one" {
		t.Errorf("expected reset to one, got %s", name)
	}
}

func TestSwitchToNext_Exhausted(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := poolWithClients(t, clients)

	if !pool.SwitchToNext() || !pool.SwitchToNext() {
		t.Fatal("expected two successful switches")
	}
	if pool.SwitchToNext() {
		t.Error("expected exhaustion after last endpoint")
	}
}

func TestNewPool_SortsByPriority(t *testing.T) {
	eps := []Endpoint{
		{URL: "http://b", DisplayName: "b", Priority: 2},
		{URL: "http://a", DisplayName: "a", Priority: 1},
	}
	pool, err := NewPool(domain.NetworkMainnet, eps,
		WithClientFactory(func(string) solana.Client { return stub.NewClient() }))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	if name := pool.Current().DisplayName; name != "a" {
		t.Errorf("expected priority 1 endpoint first, got %s", name)
	}
}
