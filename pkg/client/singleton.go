// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"sync"
)

var (
	singletonMu sync.Mutex
	singleton   *Channel
)

// Connect acquires the process-wide channel, establishing it on first
// call. Later calls return the same channel regardless of the options
// they pass; one process holds one session, exactly as the storefront
// holds one socket. A channel that went offline is not revived
// implicitly; Connect returns ErrOffline until Disconnect clears it.
func Connect(opts Options) (*Channel, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		if singleton.Offline() {
			return nil, ErrOffline
		}
		return singleton, nil
	}

	ch, err := newChannel(opts)
	if err != nil {
		return nil, err
	}
	singleton = ch
	return ch, nil
}

// Disconnect closes the process-wide channel and clears the
// singleton. Safe to call when nothing is connected.
func Disconnect() {
	singletonMu.Lock()
	ch := singleton
	singleton = nil
	singletonMu.Unlock()

	if ch != nil {
		ch.close()
	}
}

// IsConnected reports whether the process-wide channel is live.
func IsConnected() bool {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return singleton != nil && singleton.Connected()
}
