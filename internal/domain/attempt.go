package domain

// Attempt outcome labels stored in creation_attempts.
const (
	AttemptOutcomeConfirmed = "CONFIRMED"
	AttemptOutcomeRetried   = "RETRIED"
	AttemptOutcomeFailed    = "FAILED"
)

// CreationAttempt is one attempt of the multi-group creation sequence.
// Append-only telemetry; corresponds to the creation_attempts table in
// ClickHouse.
type CreationAttempt struct {
	AttemptID      string // uuid
	Mint           string
	Creator        string
	Network        Network
	AttemptNumber  int
	Endpoint       string // display name of the endpoint used
	GroupsConfirmed int   // furthest confirmed group at attempt end (0-3)
	Outcome        string // CONFIRMED / RETRIED / FAILED
	ErrorKind      string // classification, empty on success
	ErrorDetail    string // raw error text, operator-facing only
	DurationMS     int64
	StartedAt      int64 // ms
}
