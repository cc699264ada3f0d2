// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package client

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/bookhubhq/bookhub/internal/logging"
)

// Notifier receives human-readable notices about catalog changes; the
// storefront renders these as toasts. Implementations must tolerate
// being called from the channel's dispatch goroutine.
type Notifier interface {
	Notify(title, description string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, description string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(title, description string) { f(title, description) }

// bookPayload is the subset of the book event payloads the reconciler
// reads. book:deleted tombstones carry the same fields.
type bookPayload struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Reconciler keeps a cache entry in sync with the catalog event
// stream: each book event and each reconnect invalidates the entry,
// and the notifier hears about the change. Invalidation always runs,
// whether or not a notifier is attached.
type Reconciler struct {
	channel  *Channel
	entry    *Entry
	notifier Notifier
}

// NewReconciler wires a reconciler. notifier may be nil.
func NewReconciler(channel *Channel, entry *Entry, notifier Notifier) *Reconciler {
	return &Reconciler{channel: channel, entry: entry, notifier: notifier}
}

// Bind registers the event handlers. ctx scopes the refetches the
// reconciler triggers.
func (r *Reconciler) Bind(ctx context.Context) {
	r.channel.On("book:created", func(data json.RawMessage) {
		r.entry.Invalidate(ctx)
		if book, ok := decodeBookPayload(data); ok {
			r.notify("Catalog Updated",
				fmt.Sprintf("%q by %s has been added to the catalog", book.Title, book.Author))
		}
	})

	r.channel.On("book:updated", func(data json.RawMessage) {
		r.entry.Invalidate(ctx)
		if book, ok := decodeBookPayload(data); ok {
			r.notify("Book Information Updated",
				fmt.Sprintf("%q by %s", book.Title, book.Author))
		}
	})

	r.channel.On("book:deleted", func(data json.RawMessage) {
		r.entry.Invalidate(ctx)
		book, ok := decodeBookPayload(data)
		if !ok {
			return
		}
		bookInfo := "A book"
		if book.Title != "" && book.Author != "" {
			bookInfo = fmt.Sprintf("%q by %s", book.Title, book.Author)
		}
		r.notify("Book Removed",
			fmt.Sprintf("%s is no longer available in the catalog", bookInfo))
	})

	// Events broadcast while the channel was down are gone for good;
	// a successful reconnect refetches instead.
	r.channel.OnReconnect(func(int) {
		r.entry.Invalidate(ctx)
	})
}

func decodeBookPayload(data json.RawMessage) (bookPayload, bool) {
	var book bookPayload
	if err := json.Unmarshal(data, &book); err != nil {
		logging.Warn().Err(err).Msg("undecodable book event payload")
		return bookPayload{}, false
	}
	return book, true
}

func (r *Reconciler) notify(title, description string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(title, description)
}
