// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package realtime

import (
	"context"
	"sync"
	"time"
)

// Transport identifies how a session receives events.
type Transport string

// Supported transports. Every session starts on long-polling and may
// upgrade to websocket exactly once.
const (
	TransportPolling   Transport = "polling"
	TransportWebsocket Transport = "websocket"
)

// Session is one client's subscription to the catalog event stream.
// A session is created by the handshake poll and keeps its identity
// across an upgrade from polling to websocket.
type Session struct {
	id   string
	send chan Message

	mu        sync.Mutex
	transport Transport
	upgraded  bool
	lastPoll  time.Time
	closed    bool
}

// NewSession creates a session on the polling transport with a send
// buffer of the given capacity.
func NewSession(id string, buffer int) *Session {
	if buffer <= 0 {
		buffer = 256
	}
	return &Session{
		id:        id,
		send:      make(chan Message, buffer),
		transport: TransportPolling,
		lastPoll:  time.Now(),
	}
}

// ID returns the session identifier handed to the client.
func (s *Session) ID() string {
	return s.id
}

// Transport returns the session's current transport.
func (s *Session) Transport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

// Touch records poll activity, deferring stale-session eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastPoll = time.Now()
	s.mu.Unlock()
}

// StaleSince reports whether the session is still on polling and has
// not polled since the given deadline. Websocket sessions are kept
// alive by the ping/pong cycle instead.
func (s *Session) StaleSince(deadline time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport == TransportPolling && s.lastPoll.Before(deadline)
}

// Upgrade switches the session to the websocket transport. The upgrade
// is one-shot: the second and later calls report false and the caller
// must reject the attempt.
func (s *Session) Upgrade() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upgraded || s.closed {
		return false
	}
	s.upgraded = true
	s.transport = TransportWebsocket
	return true
}

// enqueue offers a message without blocking. A full buffer means the
// client stopped draining; the hub evicts such sessions.
func (s *Session) enqueue(msg Message) bool {
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// drain empties the send buffer without waiting.
func (s *Session) drain() []Message {
	var batch []Message
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return batch
			}
			batch = append(batch, msg)
		default:
			return batch
		}
	}
}

// WaitBatch returns the queued messages, waiting up to window for the
// first one. It returns an empty (non-nil) batch when the window
// elapses with nothing to deliver, so polling clients always receive a
// JSON array.
func (s *Session) WaitBatch(ctx context.Context, window time.Duration) []Message {
	s.Touch()

	if batch := s.drain(); len(batch) > 0 {
		return batch
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case msg, ok := <-s.send:
		if !ok {
			return []Message{}
		}
		batch := append([]Message{msg}, s.drain()...)
		return batch
	case <-timer.C:
		return []Message{}
	case <-ctx.Done():
		return []Message{}
	}
}

// close marks the session closed and releases its buffer. Safe to call
// more than once; only the hub loop calls it.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
