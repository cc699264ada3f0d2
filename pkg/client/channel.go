// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/bookhubhq/bookhub/internal/logging"
)

// Disconnect reasons passed to OnDisconnect hooks. The names mirror
// the ones the storefront's socket layer logs, so operators see the
// same vocabulary on both sides.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonClientDisconnect = "io client disconnect"
	ReasonTransportClose   = "transport close"
)

// ErrOffline is returned by Connect when the channel previously gave
// up reconnecting; callers must Disconnect and Connect fresh.
var ErrOffline = errors.New("client: channel is offline after exhausting reconnection attempts")

var errServerDisconnect = errors.New("client: server closed the session")

// wireMessage is the {event,data} envelope from the server.
type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// connectionSuccess is the handshake payload carrying the session id.
type connectionSuccess struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Channel is a live realtime connection. Create one with Connect.
type Channel struct {
	opts    Options
	emitter *emitter
	health  *Health
	httpc   *http.Client

	mu        sync.Mutex
	sid       string
	transport Transport
	ws        *websocket.Conn

	hooks lifecycleHooks

	offline atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// lifecycleHooks hold the connection state callbacks. They run on the
// channel goroutine and must not block.
type lifecycleHooks struct {
	mu               sync.RWMutex
	connect          []func()
	disconnect       []func(reason string)
	connectError     []func(err error)
	reconnectAttempt []func(attempt int)
	reconnect        []func(attempt int)
	reconnectFailed  []func()
	upgrade          []func(transport Transport)
}

// newChannel performs the initial handshake synchronously and starts
// the serve loop. An initial connection failure is returned to the
// caller rather than retried: the reconnection budget protects an
// established channel, not a misconfigured one.
func newChannel(opts Options) (*Channel, error) {
	opts = opts.withDefaults()
	if opts.BaseURL == "" {
		return nil, errors.New("client: BaseURL is required")
	}

	c := &Channel{
		opts:    opts,
		emitter: newEmitter(),
		health:  newHealth(),
		httpc: &http.Client{
			// Long polls are held open for the server's poll window;
			// give them headroom beyond the dial timeout.
			Timeout: opts.DialTimeout + 30*time.Second,
		},
		done: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	if err := c.handshake(ctx); err != nil {
		cancel()
		c.fireConnectError(err)
		return nil, fmt.Errorf("client: handshake failed: %w", err)
	}

	c.health.set(Snapshot{Connected: true, Transport: c.Transport()})
	c.fireConnect()

	go c.run(ctx)
	return c, nil
}

// Session returns the server-assigned session id.
func (c *Channel) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

// Transport returns the transport currently in use.
func (c *Channel) Transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Connected reports whether the channel is currently established.
func (c *Channel) Connected() bool {
	return c.health.Current().Connected
}

// Offline reports whether the channel gave up reconnecting.
func (c *Channel) Offline() bool {
	return c.offline.Load()
}

// Health exposes the connection health tracker.
func (c *Channel) Health() *Health {
	return c.health
}

// On registers a handler for a server event such as book:created.
func (c *Channel) On(event string, h Handler) {
	c.emitter.on(event, h)
}

// OnConnect registers a hook for connection establishment, including
// reconnections.
func (c *Channel) OnConnect(f func()) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.connect = append(c.hooks.connect, f)
}

// OnDisconnect registers a hook called with the disconnect reason.
func (c *Channel) OnDisconnect(f func(reason string)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.disconnect = append(c.hooks.disconnect, f)
}

// OnConnectError registers a hook for handshake failures.
func (c *Channel) OnConnectError(f func(err error)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.connectError = append(c.hooks.connectError, f)
}

// OnReconnectAttempt registers a hook called before each retry.
func (c *Channel) OnReconnectAttempt(f func(attempt int)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.reconnectAttempt = append(c.hooks.reconnectAttempt, f)
}

// OnReconnect registers a hook called after a successful retry with
// the attempt number that succeeded.
func (c *Channel) OnReconnect(f func(attempt int)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.reconnect = append(c.hooks.reconnect, f)
}

// OnReconnectFailed registers a hook called when the retry budget is
// spent and the channel goes offline.
func (c *Channel) OnReconnectFailed(f func()) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.reconnectFailed = append(c.hooks.reconnectFailed, f)
}

// OnUpgrade registers a hook called when the transport upgrades.
func (c *Channel) OnUpgrade(f func(transport Transport)) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.upgrade = append(c.hooks.upgrade, f)
}

func (c *Channel) fireConnect() {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.connect {
		f()
	}
}

func (c *Channel) fireDisconnect(reason string) {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.disconnect {
		f(reason)
	}
}

func (c *Channel) fireConnectError(err error) {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.connectError {
		f(err)
	}
}

func (c *Channel) fireReconnectAttempt(attempt int) {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.reconnectAttempt {
		f(attempt)
	}
}

func (c *Channel) fireReconnect(attempt int) {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.reconnect {
		f(attempt)
	}
}

func (c *Channel) fireReconnectFailed() {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.reconnectFailed {
		f()
	}
}

func (c *Channel) fireUpgrade(transport Transport) {
	c.hooks.mu.RLock()
	defer c.hooks.mu.RUnlock()
	for _, f := range c.hooks.upgrade {
		f(transport)
	}
}

// handshake establishes a fresh session over the first configured
// transport and stores the session id.
func (c *Channel) handshake(ctx context.Context) error {
	switch c.opts.Transports[0] {
	case TransportWebsocket:
		return c.handshakeWebsocket(ctx)
	default:
		return c.handshakePolling(ctx)
	}
}

func (c *Channel) handshakePolling(ctx context.Context) error {
	batch, status, err := c.pollOnce(ctx, "")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("handshake status %d", status)
	}
	sid, _, err := extractSession(batch)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sid = sid
	c.transport = TransportPolling
	c.mu.Unlock()

	c.dispatch(batch)
	return nil
}

func (c *Channel) handshakeWebsocket(ctx context.Context) error {
	ws, err := c.dialWebsocket(ctx, "")
	if err != nil {
		return err
	}

	var first wireMessage
	_ = ws.SetReadDeadline(time.Now().Add(c.opts.DialTimeout))
	if err := ws.ReadJSON(&first); err != nil {
		_ = ws.Close()
		return fmt.Errorf("reading handshake frame: %w", err)
	}
	_ = ws.SetReadDeadline(time.Time{})

	sid, _, err := extractSession([]wireMessage{first})
	if err != nil {
		_ = ws.Close()
		return err
	}

	c.mu.Lock()
	c.sid = sid
	c.transport = TransportWebsocket
	c.ws = ws
	c.mu.Unlock()

	c.dispatch([]wireMessage{first})
	return nil
}

// extractSession pulls the session id out of a handshake batch. The
// connection:success envelope must lead the batch.
func extractSession(batch []wireMessage) (string, []wireMessage, error) {
	if len(batch) == 0 || batch[0].Event != "connection:success" {
		return "", nil, errors.New("handshake batch missing connection:success")
	}
	var payload connectionSuccess
	if err := json.Unmarshal(batch[0].Data, &payload); err != nil {
		return "", nil, fmt.Errorf("decoding connection:success: %w", err)
	}
	if payload.ID == "" {
		return "", nil, errors.New("connection:success carried no session id")
	}
	return payload.ID, batch[1:], nil
}

// run serves the established channel and handles reconnection. It
// exits on client disconnect, server disconnect, or a spent retry
// budget.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	for {
		err := c.serve(ctx)

		c.health.set(Snapshot{Connected: false})

		switch {
		case ctx.Err() != nil:
			c.fireDisconnect(ReasonClientDisconnect)
			return
		case errors.Is(err, errServerDisconnect):
			// The server closed the session on purpose; retrying with
			// the dead sid would only produce 410s.
			c.fireDisconnect(ReasonServerDisconnect)
			return
		default:
			c.fireDisconnect(ReasonTransportClose)
		}

		if !c.reconnect(ctx) {
			return
		}
	}
}

// reconnect runs the bounded retry loop. It reports whether a new
// session was established.
func (c *Channel) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= c.opts.ReconnectionAttempts; attempt++ {
		c.fireReconnectAttempt(attempt)

		select {
		case <-time.After(c.opts.backoff(attempt)):
		case <-ctx.Done():
			c.fireDisconnect(ReasonClientDisconnect)
			return false
		}

		if err := c.handshake(ctx); err != nil {
			c.fireConnectError(err)
			logging.Warn().Err(err).Int("attempt", attempt).Msg("reconnection attempt failed")
			continue
		}

		c.health.set(Snapshot{Connected: true, Transport: c.Transport()})
		c.fireReconnect(attempt)
		c.fireConnect()
		return true
	}

	c.offline.Store(true)
	c.fireReconnectFailed()
	logging.Error().Int("attempts", c.opts.ReconnectionAttempts).Msg("reconnection failed, channel offline")
	return false
}

// serve pumps events on the current transport until the connection
// breaks. A polling channel first tries the websocket upgrade when the
// options offer it.
func (c *Channel) serve(ctx context.Context) error {
	if c.Transport() == TransportPolling && c.wantsWebsocket() {
		c.tryUpgrade(ctx)
	}

	if c.Transport() == TransportWebsocket {
		return c.serveWebsocket(ctx)
	}
	return c.servePolling(ctx)
}

func (c *Channel) wantsWebsocket() bool {
	for _, t := range c.opts.Transports {
		if t == TransportWebsocket {
			return true
		}
	}
	return false
}

// tryUpgrade attempts the one-shot polling-to-websocket upgrade. An
// upgrade failure is not an error; the channel stays on polling.
func (c *Channel) tryUpgrade(ctx context.Context) {
	ws, err := c.dialWebsocket(ctx, c.Session())
	if err != nil {
		logging.Debug().Err(err).Msg("websocket upgrade declined, staying on polling")
		return
	}

	c.mu.Lock()
	c.transport = TransportWebsocket
	c.ws = ws
	c.mu.Unlock()

	c.health.set(Snapshot{Connected: true, Transport: TransportWebsocket})
	c.fireUpgrade(TransportWebsocket)
}

func (c *Channel) serveWebsocket(ctx context.Context) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return errors.New("client: websocket transport without connection")
	}
	defer func() {
		_ = ws.Close()
		c.mu.Lock()
		c.ws = nil
		c.mu.Unlock()
	}()

	// Unblock the read loop when the caller disconnects.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-stop:
		}
	}()

	for {
		var msg wireMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.ClosePolicyViolation) {
				return errServerDisconnect
			}
			return err
		}
		c.dispatch([]wireMessage{msg})
	}
}

func (c *Channel) servePolling(ctx context.Context) error {
	for {
		batch, status, err := c.pollOnce(ctx, c.Session())
		if err != nil {
			return err
		}
		switch status {
		case http.StatusOK:
			c.dispatch(batch)
		case http.StatusGone:
			return errServerDisconnect
		default:
			return fmt.Errorf("poll status %d", status)
		}
	}
}

// pollOnce issues a single long-poll request. An empty sid performs
// the handshake.
func (c *Channel) pollOnce(ctx context.Context, sid string) ([]wireMessage, int, error) {
	url := c.opts.BaseURL + "/api/v1/rt/poll"
	if sid != "" {
		url += "?sid=" + sid
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	var batch []wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding poll batch: %w", err)
	}
	return batch, resp.StatusCode, nil
}

func (c *Channel) dialWebsocket(ctx context.Context, sid string) (*websocket.Conn, error) {
	url := websocketURL(c.opts.BaseURL) + "/api/v1/rt/ws"
	if sid != "" {
		url += "?sid=" + sid
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return ws, err
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

func (c *Channel) dispatch(batch []wireMessage) {
	for _, msg := range batch {
		c.emitter.emit(msg.Event, msg.Data)
	}
}

// close tears the channel down. Called via Disconnect.
func (c *Channel) close() {
	c.cancel()

	c.mu.Lock()
	if c.ws != nil {
		_ = c.ws.Close()
	}
	c.mu.Unlock()

	<-c.done
	c.health.set(Snapshot{Connected: false})
}
