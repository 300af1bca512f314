package forge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/observability"
	"solana-token-forge/internal/readiness"
	"solana-token-forge/internal/solana"
	"solana-token-forge/internal/solkey"
	"solana-token-forge/internal/txn"
	"solana-token-forge/internal/validate"
	"solana-token-forge/internal/wallet"
)

const (
	// MaxAttempts bounds the group-1/group-2 sequence. The metadata
	// stage is never retried.
	MaxAttempts = 3

	// retryBackoff is the fixed wait between attempts.
	retryBackoff = 2 * time.Second

	// metadataTimeout bounds the detached metadata stage.
	metadataTimeout = 2 * time.Minute
)

// MetadataAttacher uploads the logo and descriptor and returns the
// descriptor's content-addressed URI.
type MetadataAttacher interface {
	UploadAndDescribe(ctx context.Context, params *domain.TokenParams) (string, error)
}

// AttemptRecorder persists per-attempt telemetry. Recording failures
// are logged and never fail the creation itself.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *domain.CreationAttempt) error
}

// RecordStore persists the produced mint record.
type RecordStore interface {
	SaveMintRecord(ctx context.Context, record *domain.MintRecord) error
	AttachMetadataURI(ctx context.Context, mint, uri string) error
}

// Publisher announces creation lifecycle events to downstream
// consumers.
type Publisher interface {
	TokenCreated(ctx context.Context, record *domain.MintRecord) error
	CreationFailed(ctx context.Context, creator string, network domain.Network, reason string) error
}

// MetadataOutcome is the result of the detached metadata stage.
type MetadataOutcome struct {
	URI       string
	Signature string
	Err       error
}

// CreateResult is the produced artifact of a creation run. When
// MetadataPending is true the metadata stage is still running and its
// outcome arrives on Metadata; a failed metadata stage degrades the
// token to "created, logo pending", it never rolls the mint back.
type CreateResult struct {
	MintAddress          string
	TokenAccountAddress  string
	TransactionSignature string
	ExplorerURL          string
	MetadataPending      bool
	Metadata             <-chan MetadataOutcome
}

// Orchestrator drives the creation sequence with bounded retries. The
// retry policy (attempt count, backoff, terminal classification) and
// the endpoint selection strategy are deliberately separate mechanisms:
// the policy lives here, the selection in the pool.
type Orchestrator struct {
	pool     *endpoint.Pool
	signer   wallet.Signer
	attacher MetadataAttacher
	limiter  *readiness.RateLimiter
	attempts AttemptRecorder
	records  RecordStore
	events   Publisher
	feed     solana.WSClient

	backoff time.Duration
	verbose bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMetadataAttacher wires the metadata stage. Without it, requests
// carrying an image fail validation upstream.
func WithMetadataAttacher(a MetadataAttacher) OrchestratorOption {
	return func(o *Orchestrator) { o.attacher = a }
}

// WithRateLimiter counts started sequences against the shared quota.
func WithRateLimiter(l *readiness.RateLimiter) OrchestratorOption {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithAttemptRecorder wires attempt telemetry.
func WithAttemptRecorder(r AttemptRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.attempts = r }
}

// WithRecordStore wires mint record persistence.
func WithRecordStore(s RecordStore) OrchestratorOption {
	return func(o *Orchestrator) { o.records = s }
}

// WithPublisher wires lifecycle event publishing.
func WithPublisher(p Publisher) OrchestratorOption {
	return func(o *Orchestrator) { o.events = p }
}

// WithConfirmationFeed wires a WebSocket signature feed. Confirmations
// arrive over the subscription instead of status polling; polling
// remains the fallback when the feed drops.
func WithConfirmationFeed(ws solana.WSClient) OrchestratorOption {
	return func(o *Orchestrator) { o.feed = ws }
}

// WithBackoff overrides the inter-attempt wait. Tests shorten it.
func WithBackoff(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.backoff = d }
}

// WithVerbose enables progress logging.
func WithVerbose(v bool) OrchestratorOption {
	return func(o *Orchestrator) { o.verbose = v }
}

// NewOrchestrator builds an orchestrator over a pool and a signer.
func NewOrchestrator(pool *endpoint.Pool, signer wallet.Signer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		pool:    pool,
		signer:  signer,
		backoff: retryBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// sequenceState carries progress across attempts. Group 1 is never
// re-run once confirmed; a second run would mint an orphaned account.
type sequenceState struct {
	confirmedThrough int // furthest confirmed group
	mintSignature    string
	issueSignature   string
	tokenAccount     solkey.Pubkey
}

// Create runs the creation sequence. On success the returned result
// carries the on-chain addresses; when an image was supplied the
// metadata stage continues in the background.
func (o *Orchestrator) Create(ctx context.Context, params *domain.TokenParams) (*CreateResult, error) {
	if o.signer == nil || !o.signer.Connected() {
		return nil, wallet.ErrNotConnected
	}
	if errs := validate.Params(params); len(errs) > 0 {
		return nil, fmt.Errorf("invalid param: %s", errs[0])
	}

	payer := o.signer.Address()
	if o.limiter != nil {
		o.limiter.Record(payer.String())
	}
	observability.RecordCreationStarted()
	sequenceStart := time.Now()

	mintKP, err := solkey.NewKeypair()
	if err != nil {
		return nil, fmt.Errorf("generate mint keypair: %w", err)
	}

	state := &sequenceState{}
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		started := time.Now()
		endpointName := o.pool.Current().DisplayName

		lastErr = o.runCore(ctx, mintKP, params, state)
		if lastErr == nil {
			o.recordAttempt(ctx, mintKP, payer.String(), params, attempt, endpointName, state, domain.AttemptOutcomeConfirmed, nil, started)
			break
		}

		terminal := Terminal(lastErr)
		switchable := !terminal && attempt < MaxAttempts

		outcome := domain.AttemptOutcomeFailed
		if switchable {
			outcome = domain.AttemptOutcomeRetried
		}
		o.recordAttempt(ctx, mintKP, payer.String(), params, attempt, endpointName, state, outcome, lastErr, started)

		if !switchable {
			break
		}
		if !o.pool.SwitchToNext() {
			o.logf("attempt %d failed and no further endpoint exists: %v", attempt, lastErr)
			break
		}
		observability.RecordEndpointFailover()
		o.logf("attempt %d failed, retrying on %s: %v", attempt, o.pool.Current().DisplayName, lastErr)

		select {
		case <-time.After(o.backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	observability.RecordCreationDuration(time.Since(sequenceStart).Seconds())

	network := o.pool.Network()
	if lastErr != nil {
		o.logf("creation failed: %v", lastErr)
		if o.events != nil {
			if err := o.events.CreationFailed(ctx, payer.String(), network, Sanitize(lastErr, "token creation")); err != nil {
				o.logf("publish failure event: %v", err)
			}
		}
		return nil, lastErr
	}

	record := &domain.MintRecord{
		Mint:                 mintKP.Pubkey().String(),
		TokenAccount:         state.tokenAccount.String(),
		Creator:              payer.String(),
		Network:              network,
		Name:                 params.Name,
		Symbol:               validate.NormalizeSymbol(params.Symbol),
		Decimals:             params.Decimals,
		Supply:               params.Supply,
		TransactionSignature: state.issueSignature,
		ExplorerURL:          network.ExplorerURL(state.issueSignature),
		MintAuthorityRevoked: params.RevokeMintAuthority,
		FreezeAuthRevoked:    params.RevokeFreezeAuthority,
		CreatedAt:            time.Now().UnixMilli(),
	}
	if o.records != nil {
		if err := o.records.SaveMintRecord(ctx, record); err != nil {
			o.logf("save mint record: %v", err)
		}
	}
	if o.events != nil {
		if err := o.events.TokenCreated(ctx, record); err != nil {
			o.logf("publish created event: %v", err)
		}
	}

	result := &CreateResult{
		MintAddress:          record.Mint,
		TokenAccountAddress:  record.TokenAccount,
		TransactionSignature: record.TransactionSignature,
		ExplorerURL:          record.ExplorerURL,
	}

	if params.HasImage() && o.attacher != nil {
		ch := make(chan MetadataOutcome, 1)
		result.MetadataPending = true
		result.Metadata = ch
		go o.attachMetadata(context.WithoutCancel(ctx), mintKP.Pubkey(), params, ch)
	}

	return result, nil
}

// runCore executes the strict group-1 then group-2 chain, resuming
// from the furthest confirmed group. Each group simulates before any
// signature is requested.
func (o *Orchestrator) runCore(ctx context.Context, mintKP *solkey.Keypair, params *domain.TokenParams, state *sequenceState) error {
	client := o.pool.Client()
	builder := txn.NewBuilder(client)
	payer := o.signer.Address()

	if state.confirmedThrough < 1 {
		group, err := builder.BuildMintGroup(ctx, payer, mintKP, params.Decimals)
		if err != nil {
			return fmt.Errorf("build mint group: %w", err)
		}
		if err := builder.Simulate(ctx, group); err != nil {
			return err
		}
		if err := group.Tx.PartialSign(mintKP); err != nil {
			return err
		}
		if err := o.signer.SignTransaction(ctx, group.Tx); err != nil {
			return err
		}
		sig, err := o.submit(ctx, client, group)
		if err != nil {
			return fmt.Errorf("mint group: %w", err)
		}
		state.mintSignature = sig
		state.confirmedThrough = 1
		observability.RecordGroupConfirmed("mint")
		o.logf("group 1 confirmed: %s", sig)
	}

	if state.confirmedThrough < 2 {
		group, ata, err := builder.BuildIssueGroup(ctx, payer, mintKP.Pubkey(), params.Decimals, params.Supply,
			params.RevokeMintAuthority, params.RevokeFreezeAuthority)
		if err != nil {
			return fmt.Errorf("build issue group: %w", err)
		}
		if err := builder.Simulate(ctx, group); err != nil {
			return err
		}
		if err := o.signer.SignTransaction(ctx, group.Tx); err != nil {
			return err
		}
		sig, err := o.submit(ctx, client, group)
		if err != nil {
			return fmt.Errorf("issue group: %w", err)
		}
		state.tokenAccount = ata
		state.issueSignature = sig
		state.confirmedThrough = 2
		observability.RecordGroupConfirmed("issue")
		o.logf("group 2 confirmed: %s", sig)
	}

	return nil
}

// submit sends a signed group and waits for confirmation against its
// block reference.
func (o *Orchestrator) submit(ctx context.Context, client solana.Client, group *txn.Group) (string, error) {
	encoded, err := group.Tx.SerializeBase64()
	if err != nil {
		return "", err
	}
	sig, err := client.SendTransaction(ctx, encoded, &solana.SendOptions{})
	if err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	if err := o.awaitConfirmation(ctx, client, sig, group.Blockhash); err != nil {
		return sig, err
	}
	return sig, nil
}

// awaitConfirmation waits for a signature to reach confirmed
// commitment, preferring the push subscription when one is wired.
func (o *Orchestrator) awaitConfirmation(ctx context.Context, client solana.Client, sig string, ref *solana.Blockhash) error {
	if o.feed != nil {
		ch, err := o.feed.SubscribeSignature(ctx, sig, solana.CommitmentConfirmed)
		if err != nil {
			o.logf("signature subscribe failed, polling instead: %v", err)
		} else {
			select {
			case n, ok := <-ch:
				if ok {
					if n.Err != nil {
						return fmt.Errorf("transaction failed on-chain: %v", n.Err)
					}
					return nil
				}
				// Feed dropped mid-subscription; fall through to polling.
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return client.WaitForConfirmation(ctx, sig, ref, solana.CommitmentConfirmed)
}

// attachMetadata runs the detached metadata stage: upload the image
// and descriptor, then link the descriptor URI on-chain. A failure
// here leaves a fully minted token without a logo; it is reported on
// the channel, never retried, and never rolls anything back.
func (o *Orchestrator) attachMetadata(ctx context.Context, mint solkey.Pubkey, params *domain.TokenParams, ch chan<- MetadataOutcome) {
	defer close(ch)
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	uri, err := o.attacher.UploadAndDescribe(ctx, params)
	if err != nil {
		o.logf("metadata upload failed for %s: %v", mint, err)
		observability.RecordMetadataOutcome(err)
		ch <- MetadataOutcome{Err: fmt.Errorf("metadata upload: %w", err)}
		return
	}

	client := o.pool.Client()
	builder := txn.NewBuilder(client)
	payer := o.signer.Address()

	group, err := builder.BuildMetadataGroup(ctx, payer, mint, params.Name,
		validate.NormalizeSymbol(params.Symbol), uri, params.RevokeUpdateAuthority)
	if err != nil {
		observability.RecordMetadataOutcome(err)
		ch <- MetadataOutcome{URI: uri, Err: fmt.Errorf("build metadata group: %w", err)}
		return
	}
	if err := builder.Simulate(ctx, group); err != nil {
		observability.RecordMetadataOutcome(err)
		ch <- MetadataOutcome{URI: uri, Err: err}
		return
	}
	if err := o.signer.SignTransaction(ctx, group.Tx); err != nil {
		observability.RecordMetadataOutcome(err)
		ch <- MetadataOutcome{URI: uri, Err: err}
		return
	}
	sig, err := o.submit(ctx, client, group)
	if err != nil {
		observability.RecordMetadataOutcome(err)
		ch <- MetadataOutcome{URI: uri, Err: fmt.Errorf("metadata group: %w", err)}
		return
	}

	if o.records != nil {
		if err := o.records.AttachMetadataURI(ctx, mint.String(), uri); err != nil {
			o.logf("attach metadata uri: %v", err)
		}
	}
	observability.RecordGroupConfirmed("metadata")
	observability.RecordMetadataOutcome(nil)
	o.logf("group 3 confirmed: %s", sig)
	ch <- MetadataOutcome{URI: uri, Signature: sig}
}

// recordAttempt writes one telemetry row; failures are logged only.
func (o *Orchestrator) recordAttempt(ctx context.Context, mintKP *solkey.Keypair, creator string, params *domain.TokenParams,
	attemptNumber int, endpointName string, state *sequenceState, outcome string, attemptErr error, started time.Time) {
	errorKind := ""
	if attemptErr != nil {
		errorKind = Classify(attemptErr)
	}
	observability.RecordCreationAttempt(outcome, errorKind)
	if o.attempts == nil {
		return
	}
	attempt := &domain.CreationAttempt{
		AttemptID:       uuid.NewString(),
		Mint:            mintKP.Pubkey().String(),
		Creator:         creator,
		Network:         o.pool.Network(),
		AttemptNumber:   attemptNumber,
		Endpoint:        endpointName,
		GroupsConfirmed: state.confirmedThrough,
		Outcome:         outcome,
		DurationMS:      time.Since(started).Milliseconds(),
		StartedAt:       started.UnixMilli(),
	}
	if attemptErr != nil {
		attempt.ErrorKind = Classify(attemptErr)
		attempt.ErrorDetail = attemptErr.Error()
	}
	if err := o.attempts.RecordAttempt(ctx, attempt); err != nil {
		o.logf("record attempt: %v", err)
	}
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[forge] "+format, args...)
	}
}
