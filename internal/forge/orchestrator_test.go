package forge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/solana/stub"
	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
	"solana-token-forge/internal/wallet"
)

// rejectingSigner declines every signature request.
type rejectingSigner struct {
	address solkey.Pubkey
}

func (s *rejectingSigner) Address() solkey.Pubkey { return s.address }
func (s *rejectingSigner) Connected() bool        { return true }
func (s *rejectingSigner) SignTransaction(context.Context, *txn.Transaction) error {
	return errors.New("User rejected the request")
}
func (s *rejectingSigner) SignAllTransactions(ctx context.Context, txs []*txn.Transaction) error {
	return s.SignTransaction(ctx, nil)
}

// fakeAttacher returns a fixed descriptor URI.
type fakeAttacher struct {
	uri string
	err error
}

func (a *fakeAttacher) UploadAndDescribe(context.Context, *domain.TokenParams) (string, error) {
	return a.uri, a.err
}

// fakeRecordStore captures persistence calls.
type fakeRecordStore struct {
	mu      sync.Mutex
	records []*domain.MintRecord
	uris    map[string]string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{uris: make(map[string]string)}
}

func (s *fakeRecordStore) SaveMintRecord(_ context.Context, r *domain.MintRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *fakeRecordStore) AttachMetadataURI(_ context.Context, mint, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uris[mint] = uri
	return nil
}

// fakeRecorder captures attempt telemetry.
type fakeRecorder struct {
	mu       sync.Mutex
	attempts []*domain.CreationAttempt
}

func (r *fakeRecorder) RecordAttempt(_ context.Context, a *domain.CreationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

// fakePublisher captures lifecycle events.
type fakePublisher struct {
	mu      sync.Mutex
	created []*domain.MintRecord
	failed  []string
}

func (p *fakePublisher) TokenCreated(_ context.Context, r *domain.MintRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, r)
	return nil
}

func (p *fakePublisher) CreationFailed(_ context.Context, _ string, _ domain.Network, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, reason)
	return nil
}

func testSigner(t *testing.T) *wallet.LocalSigner {
	t.Helper()
	kp, err := solkey.NewKeypair()
	if err != nil {
		t.Fatalf("new keypair: %v", err)
	}
	return wallet.NewLocalSigner(kp)
}

func threeClientPool(t *testing.T, clients map[string]*stub.Client) *endpoint.Pool {
	t.Helper()
	pool, err := endpoint.NewPool(domain.NetworkDevnet,
		[]endpoint.Endpoint{
			{URL: "http://one", DisplayName: "one", Priority: 1},
			{URL: "http://two", DisplayName: "two", Priority: 2},
			{URL: "http://three", DisplayName: "three", Priority: 3},
		},
		endpoint.WithClientFactory(func(url string) solana.Client {
			return clients[url]
		}))
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool
}

func goodParams() *domain.TokenParams {
	return &domain.TokenParams{
		Name:     "Demo Token",
		Symbol:   "demo",
		Decimals: 9,
		Supply:   1_000_000,
	}
}

func TestCreate_Success(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	records := newFakeRecordStore()
	recorder := &fakeRecorder{}
	events := &fakePublisher{}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithRecordStore(records),
		WithAttemptRecorder(recorder),
		WithPublisher(events))

	result, err := orch.Create(context.Background(), goodParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.MintAddress == "" || result.TokenAccountAddress == "" {
		t.Error("expected populated addresses")
	}
	if result.TransactionSignature == "" {
		t.Error("expected issuance signature")
	}
	if result.MetadataPending {
		t.Error("no image supplied, metadata must not be pending")
	}

	// Two groups submitted against the first endpoint only.
	if n := clients["http://one"].CallsFor("sendTransaction"); n != 2 {
		t.Errorf("expected 2 sends, got %d", n)
	}
	if n := clients["http://two"].CallsFor("sendTransaction"); n != 0 {
		t.Errorf("expected no sends on second endpoint, got %d", n)
	}

	if len(records.records) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(records.records))
	}
	rec := records.records[0]
	if rec.Symbol != "DEMO" {
		t.Errorf("expected normalized symbol DEMO, got %s", rec.Symbol)
	}
	if rec.ExplorerURL == "" {
		t.Error("expected explorer url")
	}

	if len(recorder.attempts) != 1 || recorder.attempts[0].Outcome != domain.AttemptOutcomeConfirmed {
		t.Errorf("expected one confirmed attempt, got %+v", recorder.attempts)
	}
	if recorder.attempts[0].GroupsConfirmed != 2 {
		t.Errorf("expected 2 groups confirmed, got %d", recorder.attempts[0].GroupsConfirmed)
	}
	if len(events.created) != 1 {
		t.Errorf("expected one created event, got %d", len(events.created))
	}
}

func TestCreate_SequencingWithinAttempt(t *testing.T) {
	client := stub.NewClient()
	clients := map[string]*stub.Client{
		"http://one":   client,
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)

	orch := NewOrchestrator(pool, testSigner(t), WithBackoff(time.Millisecond))
	if _, err := orch.Create(context.Background(), goodParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Group 2 is never submitted before group 1's confirmation resolves.
	var sequenced []string
	for _, call := range client.CallOrder() {
		if call == "sendTransaction" || call == "confirm" {
			sequenced = append(sequenced, call)
		}
	}
	expected := []string{"sendTransaction", "confirm", "sendTransaction", "confirm"}
	if len(sequenced) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, sequenced)
	}
	for i := range expected {
		if sequenced[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, sequenced)
		}
	}
}

func TestCreate_UserRejectedIsTerminal(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	recorder := &fakeRecorder{}
	events := &fakePublisher{}

	rejecting := &rejectingSigner{address: testSigner(t).Address()}
	orch := NewOrchestrator(pool, rejecting,
		WithBackoff(time.Millisecond),
		WithAttemptRecorder(recorder),
		WithPublisher(events))

	_, err := orch.Create(context.Background(), goodParams())
	if err == nil {
		t.Fatal("expected rejection error")
	}

	// Exactly one attempt, no endpoint switch, nothing submitted.
	if len(recorder.attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(recorder.attempts))
	}
	if recorder.attempts[0].Outcome != domain.AttemptOutcomeFailed {
		t.Errorf("expected FAILED outcome, got %s", recorder.attempts[0].Outcome)
	}
	if recorder.attempts[0].ErrorKind != ErrorKindSigning {
		t.Errorf("expected signing error kind, got %s", recorder.attempts[0].ErrorKind)
	}
	if pool.Current().DisplayName != "one" {
		t.Errorf("terminal error must not switch endpoints, on %s", pool.Current().DisplayName)
	}
	for url, c := range clients {
		if n := c.CallsFor("sendTransaction"); n != 0 {
			t.Errorf("%s: expected no sends, got %d", url, n)
		}
	}
	if len(events.failed) != 1 {
		t.Fatalf("expected one failure event, got %d", len(events.failed))
	}
	if events.failed[0] != "The signature request was declined in your wallet." {
		t.Errorf("unexpected sanitized reason %q", events.failed[0])
	}
}

func TestCreate_TimeoutRetriesThreeTimesWithFailover(t *testing.T) {
	timeout := errors.New("rpc call timeout")
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	for _, c := range clients {
		c.SendErr = timeout
	}
	pool := threeClientPool(t, clients)
	recorder := &fakeRecorder{}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithAttemptRecorder(recorder))

	_, err := orch.Create(context.Background(), goodParams())
	if err == nil {
		t.Fatal("expected timeout failure")
	}

	if len(recorder.attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(recorder.attempts))
	}
	for i, a := range recorder.attempts[:2] {
		if a.Outcome != domain.AttemptOutcomeRetried {
			t.Errorf("attempt %d: expected RETRIED, got %s", i+1, a.Outcome)
		}
	}
	if recorder.attempts[2].Outcome != domain.AttemptOutcomeFailed {
		t.Errorf("final attempt: expected FAILED, got %s", recorder.attempts[2].Outcome)
	}

	// One endpoint switch per retry: one -> two -> three.
	if pool.Current().DisplayName != "three" {
		t.Errorf("expected endpoint three after two switches, got %s", pool.Current().DisplayName)
	}
	names := []string{recorder.attempts[0].Endpoint, recorder.attempts[1].Endpoint, recorder.attempts[2].Endpoint}
	if names[0] != "one" || names[1] != "two" || names[2] != "three" {
		t.Errorf("expected attempts on one/two/three, got %v", names)
	}
}

func TestCreate_NeverRerunsConfirmedMintGroup(t *testing.T) {
	first := stub.NewClient()
	// Group 1 lands, group 2's send fails; the retry must resume at
	// group 2 on the next endpoint.
	first.SendErrs = []error{nil, errors.New("connection reset")}
	second := stub.NewClient()
	clients := map[string]*stub.Client{
		"http://one":   first,
		"http://two":   second,
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	recorder := &fakeRecorder{}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithAttemptRecorder(recorder))

	result, err := orch.Create(context.Background(), goodParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.MintAddress == "" {
		t.Fatal("expected mint address")
	}

	// The second endpoint only ever saw group 2: no rent lookup, no
	// second mint account.
	if n := second.CallsFor("getMinimumBalanceForRentExemption"); n != 0 {
		t.Errorf("retry re-ran group 1: %d rent lookups on second endpoint", n)
	}
	if n := second.CallsFor("sendTransaction"); n != 1 {
		t.Errorf("expected exactly 1 send on second endpoint, got %d", n)
	}

	if len(recorder.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(recorder.attempts))
	}
	if recorder.attempts[0].GroupsConfirmed != 1 {
		t.Errorf("first attempt: expected 1 group confirmed, got %d", recorder.attempts[0].GroupsConfirmed)
	}
	if recorder.attempts[1].GroupsConfirmed != 2 {
		t.Errorf("second attempt: expected 2 groups confirmed, got %d", recorder.attempts[1].GroupsConfirmed)
	}
}

func TestCreate_MetadataStageDegradesGracefully(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	records := newFakeRecordStore()

	params := goodParams()
	params.Image = []byte{0x89, 0x50, 0x4e, 0x47}
	params.ImageType = "image/png"

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithRecordStore(records),
		WithMetadataAttacher(&fakeAttacher{uri: "https://cdn.example/sha256-abc.json"}))

	result, err := orch.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !result.MetadataPending {
		t.Fatal("expected pending metadata stage")
	}

	select {
	case outcome := <-result.Metadata:
		if outcome.Err != nil {
			t.Fatalf("metadata stage: %v", outcome.Err)
		}
		if outcome.URI != "https://cdn.example/sha256-abc.json" {
			t.Errorf("unexpected uri %s", outcome.URI)
		}
		if outcome.Signature == "" {
			t.Error("expected metadata signature")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("metadata stage did not complete")
	}

	records.mu.Lock()
	defer records.mu.Unlock()
	if records.uris[result.MintAddress] == "" {
		t.Error("expected metadata uri attached to the record")
	}
}

func TestCreate_MetadataUploadFailureIsNonFatal(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)

	params := goodParams()
	params.Image = []byte{0x89, 0x50, 0x4e, 0x47}
	params.ImageType = "image/png"

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithMetadataAttacher(&fakeAttacher{err: errors.New("store unavailable")}))

	result, err := orch.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("a failed logo must not fail the creation: %v", err)
	}

	select {
	case outcome := <-result.Metadata:
		if outcome.Err == nil {
			t.Fatal("expected metadata error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("metadata stage did not report")
	}
}

// fakeFeed answers signature subscriptions with a canned notification.
type fakeFeed struct {
	mu     sync.Mutex
	subs   int
	notify solana.SignatureNotification
	err    error
	closed bool // deliver a closed channel without a notification
}

func (f *fakeFeed) SubscribeSignature(_ context.Context, sig string, _ solana.Commitment) (<-chan solana.SignatureNotification, error) {
	f.mu.Lock()
	f.subs++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan solana.SignatureNotification, 1)
	if !f.closed {
		n := f.notify
		n.Signature = sig
		ch <- n
	}
	close(ch)
	return ch, nil
}

func (f *fakeFeed) Close() error { return nil }

func TestCreate_ConfirmsOverSubscriptionFeed(t *testing.T) {
	client := stub.NewClient()
	clients := map[string]*stub.Client{
		"http://one":   client,
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	feed := &fakeFeed{notify: solana.SignatureNotification{Slot: 101}}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithConfirmationFeed(feed))

	if _, err := orch.Create(context.Background(), goodParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// One subscription per submitted group, no status polling.
	if feed.subs != 2 {
		t.Errorf("expected 2 subscriptions, got %d", feed.subs)
	}
	if n := client.CallsFor("confirm"); n != 0 {
		t.Errorf("expected no polling with a live feed, got %d", n)
	}
}

func TestCreate_DroppedFeedFallsBackToPolling(t *testing.T) {
	client := stub.NewClient()
	clients := map[string]*stub.Client{
		"http://one":   client,
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	feed := &fakeFeed{closed: true}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithConfirmationFeed(feed))

	if _, err := orch.Create(context.Background(), goodParams()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := client.CallsFor("confirm"); n != 2 {
		t.Errorf("expected 2 polling waits after the feed dropped, got %d", n)
	}
}

func TestCreate_FeedReportsOnChainFailure(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	feed := &fakeFeed{notify: solana.SignatureNotification{
		Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}}
	recorder := &fakeRecorder{}

	orch := NewOrchestrator(pool, testSigner(t),
		WithBackoff(time.Millisecond),
		WithConfirmationFeed(feed),
		WithAttemptRecorder(recorder))

	_, err := orch.Create(context.Background(), goodParams())
	if err == nil {
		t.Fatal("expected on-chain failure")
	}
	if len(recorder.attempts) != MaxAttempts {
		t.Errorf("on-chain failures are retryable, expected %d attempts, got %d",
			MaxAttempts, len(recorder.attempts))
	}
}

func TestCreate_RejectsInvalidParams(t *testing.T) {
	clients := map[string]*stub.Client{
		"http://one":   stub.NewClient(),
		"http://two":   stub.NewClient(),
		"http://three": stub.NewClient(),
	}
	pool := threeClientPool(t, clients)
	orch := NewOrchestrator(pool, testSigner(t), WithBackoff(time.Millisecond))

	params := goodParams()
	params.Supply = 0

	_, err := orch.Create(context.Background(), params)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !Terminal(err) {
		t.Error("validation errors must be terminal")
	}
	if n := clients["http://one"].CallsFor("sendTransaction"); n != 0 {
		t.Errorf("expected no sends, got %d", n)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err      error
		kind     string
		terminal bool
	}{
		{errors.New("User rejected the request"), ErrorKindSigning, true},
		{errors.New("Attempt to debit an account but found no record of a prior credit"), ErrorKindFunds, true},
		{errors.New("insufficient lamports 100, need 2000000"), ErrorKindFunds, true},
		{errors.New("Invalid param: wrong size"), ErrorKindInput, true},
		{errors.New("rpc call timeout"), ErrorKindTransient, false},
		{errors.New("connection reset by peer"), ErrorKindTransient, false},
		{errors.New("HTTP 503"), ErrorKindTransient, false},
		{wallet.ErrRejected, ErrorKindSigning, true},
		{txn.ErrSupplyOverflow, ErrorKindInput, true},
		{endpoint.ErrAllEndpointsDown, ErrorKindConnectivity, false},
	}
	for _, c := range cases {
		if kind := Classify(c.err); kind != c.kind {
			t.Errorf("Classify(%q): expected %s, got %s", c.err, c.kind, kind)
		}
		if got := Terminal(c.err); got != c.terminal {
			t.Errorf("Terminal(%q): expected %v, got %v", c.err, c.terminal, got)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		err      error
		expected string
	}{
		{errors.New("User rejected the request"), "The signature request was declined in your wallet."},
		{errors.New("rpc call timeout after 30s"), "The network timed out. Please try again in a moment."},
		{errors.New("insufficient funds for rent"), "Your wallet does not hold enough SOL to cover rent and fees."},
		{errors.New("invalid address: bad checksum"), "One of the provided addresses is not valid."},
		{errors.New("some internal panic with stack trace"), "Something went wrong during token creation. Please try again."},
	}
	for _, c := range cases {
		if got := Sanitize(c.err, "token creation"); got != c.expected {
			t.Errorf("Sanitize(%q): expected %q, got %q", c.err, c.expected, got)
		}
	}
	if Sanitize(nil, "x") != "" {
		t.Error("nil error must sanitize to empty string")
	}
}
