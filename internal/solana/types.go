package solana

// Commitment levels for queries and confirmation.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Blockhash is a recent block reference. Transactions referencing it
// stay valid until LastValidBlockHeight.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SimulationResult is the outcome of a transaction dry-run.
type SimulationResult struct {
	Err  interface{} // nil when the simulation succeeded
	Logs []string
}

// Failed reports whether the simulation returned an error.
func (r *SimulationResult) Failed() bool {
	return r != nil && r.Err != nil
}

// SignatureStatus is the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus Commitment
	Err                interface{}
}

// SendOptions control transaction submission.
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    *int
}
