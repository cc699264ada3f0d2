// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package client is the Go SDK for the BookHub realtime channel. It
// speaks the same transport contract as the browser storefront: a
// long-polling handshake, an optional one-shot websocket upgrade, and
// {event,data} envelopes carrying catalog change events.
package client

import (
	"time"
)

// Transport identifies how the channel talks to the server.
type Transport string

// Supported transports, tried in the order listed in Options.
const (
	TransportPolling   Transport = "polling"
	TransportWebsocket Transport = "websocket"
)

// Options configures a channel. The zero value is not usable; BaseURL
// is required and everything else defaults via withDefaults.
type Options struct {
	// BaseURL is the server root, e.g. "http://localhost:5000".
	BaseURL string

	// Transports are tried in order for the initial handshake; when
	// the list contains websocket after polling, the channel upgrades
	// in place once connected.
	Transports []Transport

	// ReconnectionAttempts bounds the retry budget after a lost
	// connection. Once spent, the channel goes terminally offline.
	ReconnectionAttempts int

	// ReconnectionDelay is the first backoff step; each further
	// attempt doubles it up to ReconnectionDelayMax.
	ReconnectionDelay    time.Duration
	ReconnectionDelayMax time.Duration

	// DialTimeout bounds the handshake and the websocket dial.
	DialTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if len(o.Transports) == 0 {
		o.Transports = []Transport{TransportPolling, TransportWebsocket}
	}
	if o.ReconnectionAttempts == 0 {
		o.ReconnectionAttempts = 5
	}
	if o.ReconnectionDelay == 0 {
		o.ReconnectionDelay = time.Second
	}
	if o.ReconnectionDelayMax == 0 {
		o.ReconnectionDelayMax = 5 * time.Second
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 10 * time.Second
	}
	return o
}

// backoff returns the delay before reconnection attempt n (1-based).
func (o Options) backoff(attempt int) time.Duration {
	delay := o.ReconnectionDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= o.ReconnectionDelayMax {
			return o.ReconnectionDelayMax
		}
	}
	if delay > o.ReconnectionDelayMax {
		return o.ReconnectionDelayMax
	}
	return delay
}
