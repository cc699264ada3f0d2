// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"sync"
)

// Snapshot is the channel's connection state at a point in time.
type Snapshot struct {
	Connected bool
	Transport Transport
}

// Health tracks connection state and fans out changes to subscribers.
// A new subscriber immediately receives the current snapshot, so late
// subscribers never render a stale "connecting" indicator.
type Health struct {
	mu   sync.Mutex
	snap Snapshot
	subs map[int]chan Snapshot
	next int
}

func newHealth() *Health {
	return &Health{subs: make(map[int]chan Snapshot)}
}

// Current returns the latest snapshot.
func (h *Health) Current() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Subscribe returns a channel of snapshots and a cancel function. The
// current snapshot is delivered first. Slow subscribers drop
// intermediate snapshots rather than blocking the channel.
func (h *Health) Subscribe() (<-chan Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Snapshot, 8)
	ch <- h.snap
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (h *Health) set(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap == snap {
		return
	}
	h.snap = snap
	for _, sub := range h.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}
