// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// Conn binds a websocket connection to a session. The session keeps
// its id and queued events across the transport upgrade, so a client
// that upgrades mid-stream misses nothing.
type Conn struct {
	hub  *Hub
	sess *Session
	ws   *websocket.Conn
}

// Attach upgrades a session to the websocket transport and returns the
// bound connection. The upgrade is one-shot; a second attempt on the
// same session reports false and the caller must close the socket.
func Attach(hub *Hub, sess *Session, ws *websocket.Conn) (*Conn, bool) {
	if !sess.Upgrade() {
		return nil, false
	}
	metrics.RecordUpgrade(string(TransportPolling), string(TransportWebsocket))
	logging.Info().Str("session_id", sess.ID()).Msg("session upgraded to websocket")
	return &Conn{hub: hub, sess: sess, ws: ws}, true
}

// Start begins the read and write pumps. The caller's handler may
// return immediately; the pumps own the socket from here.
func (c *Conn) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames. Catalog sync is server-to-client;
// incoming frames only matter for close detection and pong handling.
func (c *Conn) readPump() {
	defer func() {
		c.hub.Close(c.sess)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Str("session_id", c.sess.ID()).Msg("unexpected websocket close error")
			}
			return
		}
	}
}

// writePump forwards queued session messages to the socket and keeps
// the connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.sess.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the session.
				if err := c.ws.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.ws.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
