package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       120 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to the one-shot delivery channel.
	subs   map[int64]chan SignatureNotification
	subsMu sync.Mutex

	// pendingSubs maps request ID to channel waiting for subscription ID.
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClientImpl{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan SignatureNotification),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// wsRequest is a JSON-RPC 2.0 request over WebSocket.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage is any inbound WebSocket JSON-RPC message.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *wsNotifyParams `json:"params"`
}

type wsNotifyParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type signatureNotifyResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Err interface{} `json:"err"`
	} `json:"value"`
}

// SubscribeSignature subscribes to the confirmation of one signature.
// The server delivers a single notification and then removes the
// subscription; the returned channel is closed after delivery.
func (c *WSClientImpl) SubscribeSignature(ctx context.Context, signature string, commitment Commitment) (<-chan SignatureNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}
	if commitment == "" {
		commitment = CommitmentConfirmed
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": string(commitment)},
		},
	}

	// Create channel to receive subscription ID
	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	// Send subscribe request
	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		c.dropPending(reqID)
		return nil, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		c.dropPending(reqID)
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	// Wait for subscription confirmation (30s timeout for slow providers)
	var subID int64
	select {
	case subID = <-confirmCh:
	case <-time.After(30 * time.Second):
		c.dropPending(reqID)
		return nil, fmt.Errorf("subscription timeout after 30s")
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case <-ctx.Done():
		c.dropPending(reqID)
		return nil, ctx.Err()
	}

	ch := make(chan SignatureNotification, 1)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	return ch, nil
}

func (c *WSClientImpl) dropPending(reqID uint64) {
	c.pendingSubsMu.Lock()
	delete(c.pendingSubs, reqID)
	c.pendingSubsMu.Unlock()
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	// Close all subscription channels
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff.
			// Signature subscriptions are one-shot and do not survive a
			// reconnect; their waiters fall back to RPC polling.
			c.failAllSubs()

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// failAllSubs closes every live subscription channel without delivery.
func (c *WSClientImpl) failAllSubs() {
	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()
}

// reconnect attempts to re-establish the connection.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.connect(ctx)
}

// handleMessage dispatches one inbound message.
func (c *WSClientImpl) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	// Subscription confirmation: {id, result: <subID>}
	if msg.ID != 0 && msg.Method == "" {
		var subID int64
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			return
		}
		c.pendingSubsMu.Lock()
		ch, ok := c.pendingSubs[msg.ID]
		if ok {
			delete(c.pendingSubs, msg.ID)
		}
		c.pendingSubsMu.Unlock()
		if ok {
			ch <- subID
		}
		return
	}

	if msg.Method != "signatureNotification" || msg.Params == nil {
		return
	}

	var result signatureNotifyResult
	if err := json.Unmarshal(msg.Params.Result, &result); err != nil {
		return
	}

	c.subsMu.Lock()
	ch, ok := c.subs[msg.Params.Subscription]
	if ok {
		delete(c.subs, msg.Params.Subscription)
	}
	c.subsMu.Unlock()

	if ok {
		ch <- SignatureNotification{
			Slot: result.Context.Slot,
			Err:  result.Value.Err,
		}
		close(ch)
	}
}

// Compile-time interface check.
var _ WSClient = (*WSClientImpl)(nil)
