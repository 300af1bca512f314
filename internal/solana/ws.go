package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface used for
// push-based transaction confirmation.
type WSClient interface {
	// SubscribeSignature subscribes to the confirmation of one
	// transaction signature. The returned channel delivers exactly one
	// notification and is then closed; signature subscriptions are
	// one-shot on the server side.
	SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is a signatureSubscribe message.
type SignatureNotification struct {
	Signature string
	Slot      uint64
	Err       interface{}
}
