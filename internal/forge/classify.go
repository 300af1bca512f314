// Package forge runs the token creation sequence end to end: build,
// simulate, sign, submit and confirm each transaction group, with
// bounded retries and endpoint failover between attempts.
package forge

import (
	"errors"
	"strings"

	"solana-token-forge/internal/endpoint"
	"solana-token-forge/internal/txn"
	"solana-token-forge/internal/wallet"
)

// Error kinds recorded in attempt telemetry.
const (
	ErrorKindSigning      = "signing"
	ErrorKindFunds        = "insufficient_funds"
	ErrorKindInput        = "malformed_input"
	ErrorKindConnectivity = "connectivity"
	ErrorKindTransient    = "transient"
)

// terminalSubstrings mark errors that retrying cannot fix.
var terminalSubstrings = map[string]string{
	"user rejected":        ErrorKindSigning,
	"rejected the request": ErrorKindSigning,
	"insufficient funds":   ErrorKindFunds,
	"insufficient lamports": ErrorKindFunds,
	"debit an account but found no record": ErrorKindFunds,
	"invalid param":   ErrorKindInput,
	"invalid address": ErrorKindInput,
	"invalid base58":  ErrorKindInput,
}

// Classify maps an error to its telemetry kind.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, wallet.ErrRejected) {
		return ErrorKindSigning
	}
	if errors.Is(err, txn.ErrSupplyOverflow) {
		return ErrorKindInput
	}
	if errors.Is(err, endpoint.ErrAllEndpointsDown) {
		return ErrorKindConnectivity
	}

	msg := strings.ToLower(err.Error())
	for sub, kind := range terminalSubstrings {
		if strings.Contains(msg, sub) {
			return kind
		}
	}
	return ErrorKindTransient
}

// Terminal reports whether an error must not be retried: user
// rejection, insufficient funds and malformed input cannot be fixed by
// resubmitting. Everything else (timeouts, connection drops, transient
// RPC errors) is retryable.
func Terminal(err error) bool {
	switch Classify(err) {
	case ErrorKindSigning, ErrorKindFunds, ErrorKindInput:
		return true
	}
	return false
}
