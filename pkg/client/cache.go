// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"context"
	"sync"

	"github.com/bookhubhq/bookhub/internal/logging"
)

// EntryState describes where a cache entry sits in its refresh cycle.
type EntryState int

// Cache entry states.
const (
	// StateFresh means the cached value reflects the latest known
	// server state.
	StateFresh EntryState = iota
	// StateStale means an invalidation arrived and a refetch has not
	// completed yet.
	StateStale
	// StateRefetching means a fetch is in flight.
	StateRefetching
)

func (s EntryState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateRefetching:
		return "refetching"
	default:
		return "unknown"
	}
}

// FetchFunc loads the authoritative value for a cache entry.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Entry is a cached query with coalesced refetching. Any number of
// invalidations while a fetch is in flight collapse into exactly one
// trailing refetch, so an event burst costs at most two fetches.
type Entry struct {
	key   string
	fetch FetchFunc

	mu    sync.Mutex
	state EntryState
	dirty bool
	data  interface{}
	err   error

	// refetched is closed and replaced after each completed fetch;
	// tests use it to wait for the cycle to settle.
	refetched chan struct{}
}

// NewEntry creates a stale entry; the first Invalidate or Refresh
// populates it.
func NewEntry(key string, fetch FetchFunc) *Entry {
	return &Entry{
		key:       key,
		fetch:     fetch,
		state:     StateStale,
		refetched: make(chan struct{}),
	}
}

// Key returns the entry's registry key.
func (e *Entry) Key() string { return e.key }

// State returns the entry's current refresh state.
func (e *Entry) State() EntryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Data returns the last fetched value and the error of the last fetch.
func (e *Entry) Data() (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data, e.err
}

// Changed returns a channel that is closed after the next completed
// fetch cycle.
func (e *Entry) Changed() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refetched
}

// Invalidate marks the entry stale and triggers a background refetch.
// If a fetch is already running, the entry is flagged dirty instead
// and exactly one follow-up fetch runs when the current one finishes.
func (e *Entry) Invalidate(ctx context.Context) {
	e.mu.Lock()
	if e.state == StateRefetching {
		e.dirty = true
		e.mu.Unlock()
		return
	}
	e.state = StateRefetching
	e.mu.Unlock()

	go e.refetchLoop(ctx)
}

// Refresh fetches synchronously. Used for initial population.
func (e *Entry) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRefetching {
		e.dirty = true
		ch := e.refetched
		e.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err := e.Data()
		return err
	}
	e.state = StateRefetching
	e.mu.Unlock()

	e.refetchLoop(ctx)
	_, err := e.Data()
	return err
}

// refetchLoop runs one fetch, plus a single trailing fetch if the
// entry was dirtied while the first was in flight.
func (e *Entry) refetchLoop(ctx context.Context) {
	for {
		data, err := e.fetch(ctx)

		e.mu.Lock()
		e.data, e.err = data, err
		if err != nil {
			logging.Warn().Err(err).Str("key", e.key).Msg("cache refetch failed")
		}
		if e.dirty && ctx.Err() == nil {
			e.dirty = false
			e.mu.Unlock()
			continue
		}
		if err != nil || ctx.Err() != nil {
			e.state = StateStale
		} else {
			e.state = StateFresh
		}
		done := e.refetched
		e.refetched = make(chan struct{})
		e.mu.Unlock()

		close(done)
		return
	}
}

// CacheRegistry holds named entries, mirroring the storefront's query
// cache keyed by endpoint.
type CacheRegistry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewCacheRegistry creates an empty registry.
func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{entries: make(map[string]*Entry)}
}

// Register adds an entry for key, replacing any previous one.
func (r *CacheRegistry) Register(key string, fetch FetchFunc) *Entry {
	entry := NewEntry(key, fetch)
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return entry
}

// Get looks up an entry by key.
func (r *CacheRegistry) Get(key string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	return entry, ok
}

// Invalidate invalidates one entry by key; unknown keys are ignored.
func (r *CacheRegistry) Invalidate(ctx context.Context, key string) {
	if entry, ok := r.Get(key); ok {
		entry.Invalidate(ctx)
	}
}

// InvalidateAll invalidates every registered entry, as the storefront
// does after a reconnect.
func (r *CacheRegistry) InvalidateAll(ctx context.Context) {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	for _, entry := range entries {
		entry.Invalidate(ctx)
	}
}
