// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package models

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Event names carried over the realtime channel. These are part of the
// wire contract with browser and SDK clients and must not change.
const (
	EventConnectionSuccess = "connection:success"
	EventBookCreated       = "book:created"
	EventBookUpdated       = "book:updated"
	EventBookDeleted       = "book:deleted"
)

// ChangeKind discriminates catalog change events.
type ChangeKind string

// Catalog change kinds.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// BookTombstone is the payload of a book:deleted event. Only identity
// fields survive deletion; title and author are carried when known so
// clients can render a meaningful removal notice.
type BookTombstone struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// ConnectionSuccess is the payload of the connection:success event sent
// to every newly established session.
type ConnectionSuccess struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// ChangeEvent is a committed catalog mutation ready for broadcast.
// Created and updated events carry the full book; deleted events carry
// a tombstone.
type ChangeEvent struct {
	Kind      ChangeKind
	Book      *Book
	Tombstone *BookTombstone
}

// NewBookCreated builds a change event for a newly created book.
func NewBookCreated(b *Book) *ChangeEvent {
	return &ChangeEvent{Kind: ChangeCreated, Book: b}
}

// NewBookUpdated builds a change event for an updated book.
func NewBookUpdated(b *Book) *ChangeEvent {
	return &ChangeEvent{Kind: ChangeUpdated, Book: b}
}

// NewBookDeleted builds a tombstone event for a deleted book.
func NewBookDeleted(id, title, author string) *ChangeEvent {
	return &ChangeEvent{
		Kind:      ChangeDeleted,
		Tombstone: &BookTombstone{ID: id, Title: title, Author: author},
	}
}

// EventName returns the wire event name for this change.
func (e *ChangeEvent) EventName() string {
	switch e.Kind {
	case ChangeCreated:
		return EventBookCreated
	case ChangeUpdated:
		return EventBookUpdated
	case ChangeDeleted:
		return EventBookDeleted
	}
	return ""
}

// MarshalPayload serializes the event payload: the full book for
// created/updated, the tombstone for deleted.
func (e *ChangeEvent) MarshalPayload() ([]byte, error) {
	switch e.Kind {
	case ChangeCreated, ChangeUpdated:
		if e.Book == nil {
			return nil, fmt.Errorf("change event %s missing book", e.Kind)
		}
		return json.Marshal(e.Book)
	case ChangeDeleted:
		if e.Tombstone == nil {
			return nil, fmt.Errorf("change event %s missing tombstone", e.Kind)
		}
		return json.Marshal(e.Tombstone)
	}
	return nil, fmt.Errorf("unknown change kind %q", e.Kind)
}

// DecodeChangeEvent parses a wire event name and payload back into a
// ChangeEvent. Unknown event names return an error; callers should skip
// them rather than fail the stream.
func DecodeChangeEvent(event string, payload []byte) (*ChangeEvent, error) {
	switch event {
	case EventBookCreated, EventBookUpdated:
		var b Book
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event, err)
		}
		kind := ChangeCreated
		if event == EventBookUpdated {
			kind = ChangeUpdated
		}
		return &ChangeEvent{Kind: kind, Book: &b}, nil
	case EventBookDeleted:
		var t BookTombstone
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event, err)
		}
		return &ChangeEvent{Kind: ChangeDeleted, Tombstone: &t}, nil
	}
	return nil, fmt.Errorf("unknown event %q", event)
}
