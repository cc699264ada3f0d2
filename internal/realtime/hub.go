// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown
	// path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, which may mean a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// ErrSessionNotFound is returned when a session id is unknown, either
// because it never existed or because the hub evicted it. Clients must
// re-handshake.
var ErrSessionNotFound = errors.New("realtime: session not found")

// Message is the wire envelope delivered to every session.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub maintains the set of active sessions and fans catalog events out
// to them.
type Hub struct {
	cfg        config.RealtimeConfig
	sessions   map[string]*Session
	broadcast  chan Message
	Register   chan *Session
	Unregister chan *Session
	mu         sync.RWMutex

	// done is closed when the run loop exits, releasing goroutines
	// blocked on a lifecycle channel send during shutdown.
	done chan struct{}
}

// NewHub creates a new Hub sized from the realtime configuration.
func NewHub(cfg config.RealtimeConfig) *Hub {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 256
	}
	return &Hub{
		cfg:        cfg,
		sessions:   make(map[string]*Session),
		broadcast:  make(chan Message, cfg.BroadcastBuffer),
		Register:   make(chan *Session),
		Unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

// RunWithContext starts the hub with context support for graceful
// shutdown. Designed for use under suture supervision: when the
// context is canceled all sessions are closed and ctx.Err() is
// returned so the supervisor does not treat it as a crash.
//
// DETERMINISM: Uses priority-based selection to ensure predictable
// behavior when multiple channels are ready simultaneously:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Session lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages and stale-session eviction
func (h *Hub) RunWithContext(ctx context.Context) error {
	// Fresh done channel per run so a supervised restart does not
	// inherit a closed one.
	h.mu.Lock()
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()
	defer close(done)

	evict := time.NewTicker(h.evictInterval())
	defer evict.Stop()

	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle session lifecycle events (non-blocking)
		select {
		case sess := <-h.Register:
			h.registerSession(sess)
			continue
		case sess := <-h.Unregister:
			h.unregisterSession(sess)
			continue
		default:
		}

		// Priority 3: Broadcast, eviction, or wait for any event
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case sess := <-h.Register:
			h.registerSession(sess)

		case sess := <-h.Unregister:
			h.unregisterSession(sess)

		case message := <-h.broadcast:
			h.broadcastToSessions(message)

		case <-evict.C:
			h.evictStaleSessions()
		}
	}
}

func (h *Hub) evictInterval() time.Duration {
	timeout := h.cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return timeout / 2
}

// OpenSession creates a session on the polling transport, queues the
// connection:success envelope as its first message, and registers it
// with the hub loop. The envelope goes in before registration: until
// the Register send completes the hub cannot see the session, so no
// broadcast can land ahead of the handshake or evict the session while
// it is still being set up.
func (h *Hub) OpenSession() *Session {
	sess := NewSession(uuid.New().String(), h.cfg.SendBuffer)
	sess.enqueue(Message{
		Event: models.EventConnectionSuccess,
		Data: models.ConnectionSuccess{
			ID:        sess.ID(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Message:   "Real-time connection established",
		},
	})

	h.Register <- sess
	return sess
}

// Session looks up a session by id. Unknown ids return
// ErrSessionNotFound; the HTTP layer maps that to 410 Gone.
func (h *Hub) Session(id string) (*Session, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close removes a session from the hub and releases its buffer. When
// the run loop has already stopped, shutdown closed every session, so
// Close must not block on the dead Unregister channel.
func (h *Hub) Close(sess *Session) {
	h.mu.RLock()
	done := h.done
	h.mu.RUnlock()

	select {
	case h.Unregister <- sess:
	case <-done:
	}
}

func (h *Hub) registerSession(sess *Session) {
	h.mu.Lock()
	h.sessions[sess.ID()] = sess
	total := len(h.sessions)
	h.mu.Unlock()

	metrics.RecordSessionOpened(string(sess.Transport()))
	logging.Info().
		Str("session_id", sess.ID()).
		Int("total_sessions", total).
		Msg("realtime session opened")
}

func (h *Hub) unregisterSession(sess *Session) {
	h.mu.Lock()
	_, ok := h.sessions[sess.ID()]
	if ok {
		delete(h.sessions, sess.ID())
	}
	total := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}
	sess.close()
	metrics.RecordSessionClosed(string(sess.Transport()))
	logging.Info().
		Str("session_id", sess.ID()).
		Int("total_sessions", total).
		Msg("realtime session closed")
}

// broadcastToSessions delivers a message to every session in a
// deterministic order.
// DETERMINISM: Sessions are sorted by id so delivery order, and
// therefore eviction order when buffers overflow, is reproducible.
func (h *Hub) broadcastToSessions(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var toRemove []*Session
	for _, id := range ids {
		sess := h.sessions[id]
		if !sess.enqueue(message) {
			// Buffer full: the client stopped draining.
			toRemove = append(toRemove, sess)
		}
	}

	for _, sess := range toRemove {
		delete(h.sessions, sess.ID())
		sess.close()
		metrics.RecordSessionClosed(string(sess.Transport()))
		metrics.RealtimeDroppedSessions.Inc()
		logging.Warn().
			Str("session_id", sess.ID()).
			Str("event", message.Event).
			Msg("session send buffer full, evicting")
	}

	metrics.RecordBroadcast(message.Event, len(ids))
}

// evictStaleSessions drops polling sessions that have not polled within
// the session timeout. Websocket sessions are excluded; their liveness
// is tracked by the ping/pong cycle in the write pump.
func (h *Hub) evictStaleSessions() {
	deadline := time.Now().Add(-h.cfg.SessionTimeout)

	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sess := h.sessions[id]
		if !sess.StaleSince(deadline) {
			continue
		}
		delete(h.sessions, id)
		sess.close()
		metrics.RecordSessionClosed(string(sess.Transport()))
		logging.Info().
			Str("session_id", id).
			Dur("timeout", h.cfg.SessionTimeout).
			Msg("evicted stale polling session")
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	count := h.SessionCount()
	h.closeAllSessions()

	logging.Info().
		Str("component", "realtime-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("sessions_closed", count).
		Msg("realtime hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllSessions closes every session in id order during shutdown.
func (h *Hub) closeAllSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sess := h.sessions[id]
		delete(h.sessions, id)
		sess.close()
		metrics.RecordSessionClosed(string(sess.Transport()))
	}
}

// BroadcastEvent queues a catalog change event for fan-out. The
// payload shape matches the wire contract: full book for
// created/updated, tombstone for deleted.
func (h *Hub) BroadcastEvent(event *models.ChangeEvent) {
	if h == nil {
		logging.Warn().Str("event", event.EventName()).Msg("realtime hub not initialized, dropping catalog event")
		return
	}

	var data interface{}
	switch event.Kind {
	case models.ChangeDeleted:
		data = event.Tombstone
	default:
		data = event.Book
	}

	message := Message{Event: event.EventName(), Data: data}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("event", message.Event).Msg("broadcast channel full, dropping catalog event")
	}
}

// BroadcastBookCreated announces a newly created book.
func (h *Hub) BroadcastBookCreated(book *models.Book) {
	h.BroadcastEvent(models.NewBookCreated(book))
}

// BroadcastBookUpdated announces an updated book.
func (h *Hub) BroadcastBookUpdated(book *models.Book) {
	h.BroadcastEvent(models.NewBookUpdated(book))
}

// BroadcastBookDeleted announces a deleted book by tombstone.
func (h *Hub) BroadcastBookDeleted(id, title, author string) {
	h.BroadcastEvent(models.NewBookDeleted(id, title, author))
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
