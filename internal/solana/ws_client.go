package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes the provider uses to reject credentials. Terminal: the
// client surfaces a fatal error instead of reconnecting.
const (
	closeUnauthorized = 4401
	closeForbidden    = 4403
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive failed reconnects before
	// the client gives up and surfaces a fatal error.
	MaxReconnectAttempts int
	// PingInterval is the keep-alive interval while connected.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Commitment is the finality level requested on subscribe.
	Commitment string
	// Logger receives connection lifecycle messages. Defaults to log.Default().
	Logger *log.Logger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 20,
		PingInterval:         10 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         10 * time.Second,
		Commitment:           "confirmed",
	}
}

// WSClientImpl implements WSClient using gorilla/websocket. It manages a
// single logs subscription: connect, subscribe, wait for the provider to
// confirm with an integer subscription id, then forward notifications.
// Any connection loss discards subscription state and re-runs the full
// connect/subscribe/confirm sequence.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	state     atomic.Int32
	requestID atomic.Uint64
	subID     atomic.Int64

	filter     LogsFilter
	subscribed atomic.Bool
	notifCh    chan LogNotification
	notifOnce  sync.Once
	fatalCh    chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a WebSocket client for the endpoint. No connection
// is opened until SubscribeLogs is called.
func NewWSClient(endpoint string, config *WSClientConfig) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 20
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		fatalCh:  make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// State returns the current connection state.
func (c *WSClientImpl) State() ConnState {
	return ConnState(c.state.Load())
}

// Fatal reports terminal conditions. At most one error is delivered.
func (c *WSClientImpl) Fatal() <-chan error {
	return c.fatalCh
}

// SubscribeLogs opens the connection, issues the subscribe request and
// waits for the provider's confirmation before returning the notification
// channel. Only one subscription per client.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}
	if c.subscribed.Swap(true) {
		return nil, fmt.Errorf("already subscribed")
	}

	c.filter = filter
	// Buffered so short bursts never stall the read loop.
	c.notifCh = make(chan LogNotification, 1024)

	if err := c.establish(ctx); err != nil {
		c.subscribed.Store(false)
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c.notifCh, nil
}

// establish dials the endpoint, sends logsSubscribe and blocks until the
// provider echoes an integer subscription id. The client is Active only
// after that confirmation.
func (c *WSClientImpl) establish(ctx context.Context) error {
	c.state.Store(int32(StateConnecting))

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: handshake rejected with status %d", ErrUnauthorized, resp.StatusCode)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	reqID := c.requestID.Add(1)
	mentions := map[string]interface{}{"mentions": c.filter.Mentions}
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": c.config.Commitment},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("write subscribe: %w", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// Read until the confirmation for our request id arrives. Anything
	// else received meanwhile is dispatched or dropped as usual.
	for {
		conn.SetReadDeadline(deadline)
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.state.Store(int32(StateDisconnected))
			if code := closeCode(err); code == closeUnauthorized || code == closeForbidden {
				return fmt.Errorf("%w: close code %d", ErrUnauthorized, code)
			}
			return fmt.Errorf("await subscription confirmation: %w", err)
		}

		subID, confirmed, err := c.parseConfirmation(message, reqID)
		if err != nil {
			conn.Close()
			c.state.Store(int32(StateDisconnected))
			return err
		}
		if !confirmed {
			c.handleMessage(message)
			continue
		}

		c.subID.Store(subID)
		break
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.state.Store(int32(StateActive))
	return nil
}

// parseConfirmation reports whether message is the subscribe response for
// reqID. An error envelope for reqID fails the subscribe.
func (c *WSClientImpl) parseConfirmation(message []byte, reqID uint64) (int64, bool, error) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err != nil || resp.ID != reqID {
		return 0, false, nil
	}
	if resp.Error != nil {
		return 0, false, fmt.Errorf("subscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Result <= 0 {
		return 0, false, nil
	}
	return resp.Result, true, nil
}

// Close closes the WebSocket connection and the notification channel.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	c.state.Store(int32(StateDisconnected))
	c.closeNotif()
	return nil
}

func (c *WSClientImpl) closeNotif() {
	c.notifOnce.Do(func() {
		if c.notifCh != nil {
			close(c.notifCh)
		}
	})
}

// fail records a terminal condition and stops delivery.
func (c *WSClientImpl) fail(err error) {
	c.state.Store(int32(StateDisconnected))
	select {
	case c.fatalCh <- err:
	default:
	}
	c.closeNotif()
}

// readLoop reads messages and dispatches them. On a non-terminal
// connection error it runs the bounded reconnect sequence.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if code := closeCode(err); code == closeUnauthorized || code == closeForbidden {
				c.logger.Printf("[ws] connection rejected: close code %d", code)
				c.fail(fmt.Errorf("%w: close code %d", ErrUnauthorized, code))
				return
			}
			c.logger.Printf("[ws] read error: %v", err)
			if !c.reconnect() {
				return
			}
			continue
		}

		c.handleMessage(message)
	}
}

// reconnect re-runs the full connect/subscribe/confirm sequence with a
// fixed delay between attempts, bounded by MaxReconnectAttempts. Returns
// false once the client is done, fatally failed or exhausted.
func (c *WSClientImpl) reconnect() bool {
	c.state.Store(int32(StateReconnecting))

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	for attempt := 1; attempt <= c.config.MaxReconnectAttempts; attempt++ {
		select {
		case <-c.done:
			return false
		case <-time.After(c.config.ReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.establish(ctx)
		cancel()

		if err == nil {
			c.logger.Printf("[ws] reconnected on attempt %d/%d", attempt, c.config.MaxReconnectAttempts)
			return true
		}
		if errors.Is(err, ErrUnauthorized) {
			c.fail(err)
			return false
		}
		c.logger.Printf("[ws] reconnect attempt %d/%d failed: %v", attempt, c.config.MaxReconnectAttempts, err)
	}

	c.fail(fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, c.config.MaxReconnectAttempts))
	return false
}

// handleMessage processes one inbound message. Confirmations update
// internal state and are not forwarded; log notifications and the
// full-transaction fallback shape become LogNotification values;
// malformed messages are logged and dropped.
func (c *WSClientImpl) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		c.logger.Printf("[ws] dropping unparseable message: %v", err)
		return
	}

	if notif.Params == nil || notif.Method == "" {
		// Late subscribe responses and provider error envelopes land here.
		var resp wsSubscribeResponse
		if err := json.Unmarshal(message, &resp); err == nil && resp.Error != nil {
			c.logger.Printf("[ws] error response: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
		}
		return
	}

	value := notif.Params.Result.Value

	sig := value.Signature
	if sig == "" && value.Transaction != nil && len(value.Transaction.Signatures) > 0 {
		// Fallback shape: full transaction with a nested signature list.
		sig = value.Transaction.Signatures[0]
	}
	if sig == "" {
		c.logger.Printf("[ws] dropping notification without signature")
		return
	}

	logNotif := LogNotification{
		Signature: sig,
		Logs:      value.Logs,
		Err:       value.Err,
	}
	if notif.Params.Result.Context != nil {
		logNotif.Slot = notif.Params.Result.Context.Slot
	}

	select {
	case c.notifCh <- logNotif:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
// A failed ping is logged only; the read loop owns failure handling.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.Printf("[ws] ping failed: %v", err)
				}
			}
			c.connMu.Unlock()
		}
	}
}

// closeCode extracts the WebSocket close code from a read error, or 0.
func closeCode(err error) int {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	return 0
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      uint64   `json:"id"`
	Result  int64    `json:"result"` // subscription ID
	Error   *wsError `json:"error,omitempty"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature   string        `json:"signature"`
	Logs        []string      `json:"logs"`
	Err         interface{}   `json:"err"`
	Transaction *wsFallbackTx `json:"transaction,omitempty"`
}

type wsFallbackTx struct {
	Signatures []string `json:"signatures"`
}
