package forge

import "strings"

// User-facing sentences for known failure shapes. Raw error text, RPC
// internals and stack traces never cross this boundary; operators get
// the detail through logs and attempt telemetry instead.
var sanitizedMessages = []struct {
	substring string
	message   string
}{
	{"user rejected", "The signature request was declined in your wallet."},
	{"rejected the request", "The signature request was declined in your wallet."},
	{"insufficient funds", "Your wallet does not hold enough SOL to cover rent and fees."},
	{"insufficient lamports", "Your wallet does not hold enough SOL to cover rent and fees."},
	{"debit an account but found no record", "Your wallet does not hold enough SOL to cover rent and fees."},
	{"timeout", "The network timed out. Please try again in a moment."},
	{"timed out", "The network timed out. Please try again in a moment."},
	{"deadline exceeded", "The network timed out. Please try again in a moment."},
	{"blockhash expired", "The network was too slow to confirm the transaction. Please try again."},
	{"invalid address", "One of the provided addresses is not valid."},
	{"invalid base58", "One of the provided addresses is not valid."},
	{"all endpoints failed", "No network endpoint is reachable right now. Please try again later."},
	{"connection refused", "Could not reach the network. Please check your connection and try again."},
}

// Sanitize maps an error to a fixed user-readable sentence, falling
// back to a generic message with the given context when nothing
// matches.
func Sanitize(err error, context string) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	for _, entry := range sanitizedMessages {
		if strings.Contains(msg, entry.substring) {
			return entry.message
		}
	}
	return "Something went wrong during " + context + ". Please try again."
}
