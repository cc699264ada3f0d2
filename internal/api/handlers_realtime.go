// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/realtime"
)

// Poll is the long-polling transport endpoint.
//
// Without a sid it performs the handshake: a new session is opened and
// the response is the session's first batch, whose head is the
// connection:success envelope carrying the session id. With a sid the
// request drains the session buffer, holding the connection open up to
// the poll window for the first event. The response body is always a
// bare JSON array of {event,data} envelopes; an empty array means the
// window elapsed quietly and the client should poll again.
//
// Unknown or evicted sids get 410 Gone. That is the server telling the
// client its session is dead and a fresh handshake is required.
//
// @Summary Long-poll for catalog events
// @Description Without a sid, opens a session and returns its first batch headed by connection:success. With a sid, drains the session buffer, waiting up to the poll window. The body is a bare JSON array of event envelopes.
// @Tags Realtime
// @Produce json
// @Param sid query string false "Session ID from the connection:success handshake"
// @Success 200 {array} realtime.Message "Event batch, possibly empty"
// @Failure 410 {object} APIResponse "Session expired or unknown"
// @Router /rt/poll [get]
func (h *Handlers) Poll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sid := r.URL.Query().Get("sid")
	if sid == "" {
		sess := h.hub.OpenSession()
		h.writeBatch(w, r, sess.WaitBatch(r.Context(), h.cfg.Realtime.PollWindow))
		return
	}

	sess, err := h.hub.Session(sid)
	if err != nil {
		if errors.Is(err, realtime.ErrSessionNotFound) {
			rw.Gone("Session expired or unknown, reconnect required")
			return
		}
		rw.InternalError("Failed to resolve session")
		return
	}

	h.writeBatch(w, r, sess.WaitBatch(r.Context(), h.cfg.Realtime.PollWindow))
}

// writeBatch writes a poll batch as a bare JSON array, bypassing the
// APIResponse envelope. The transport contract predates the envelope
// and clients parse the array directly.
func (h *Handlers) writeBatch(w http.ResponseWriter, r *http.Request, batch []realtime.Message) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(batch); err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to encode poll batch")
	}
}

// WebSocket upgrades a session to the websocket transport. A sid binds
// the socket to an existing polling session, carrying over any events
// still buffered there; without a sid a websocket-native session is
// opened and connection:success arrives as the first frame. A session
// upgrades at most once.
//
// @Summary Upgrade the realtime channel to websocket
// @Description Opens a websocket carrying the same event envelopes as the poll transport. A sid binds the socket to an existing polling session, carrying over buffered events.
// @Tags Realtime
// @Param sid query string false "Polling session ID to take over"
// @Success 101 {string} string "Switching Protocols"
// @Failure 410 {object} APIResponse "Session expired or unknown"
// @Router /rt/ws [get]
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var sess *realtime.Session
	if sid := r.URL.Query().Get("sid"); sid != "" {
		found, err := h.hub.Session(sid)
		if err != nil {
			rw.Gone("Session expired or unknown, reconnect required")
			return
		}
		sess = found
	} else {
		sess = h.hub.OpenSession()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWSOrigin,
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.CtxErr(r.Context(), err).Msg("websocket upgrade failed")
		return
	}

	conn, ok := realtime.Attach(h.hub, sess, ws)
	if !ok {
		// Second upgrade attempt on the same session.
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session already upgraded"),
			time.Now().Add(10*time.Second))
		_ = ws.Close()
		return
	}
	conn.Start()
}

// checkWSOrigin mirrors the CORS allowlist for websocket upgrades.
// Requests without an Origin header (non-browser clients, the SDK) are
// allowed through.
func (h *Handlers) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
