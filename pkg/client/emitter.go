// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"sync"

	json "github.com/goccy/go-json"
)

// Handler receives the raw payload of a server event.
type Handler func(data json.RawMessage)

// emitter is a simple per-event handler registry. Handlers run on the
// channel's dispatch goroutine, so they must not block.
type emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[string][]Handler)}
}

func (e *emitter) on(event string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], h)
}

func (e *emitter) emit(event string, data json.RawMessage) {
	e.mu.RLock()
	handlers := e.handlers[event]
	e.mu.RUnlock()
	for _, h := range handlers {
		h(data)
	}
}
