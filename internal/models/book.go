// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package models defines the core domain entities of BookHub: books,
// users, orders, store settings, and the catalog change events that
// flow over the realtime channel.
package models

import "time"

// Book is a catalog entry. Prices are stored in the smallest currency
// unit (cents).
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre"`
	Year        int       `json:"year"`
	Price       int       `json:"price"`
	ISBN        string    `json:"isbn,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Description string    `json:"description,omitempty"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BookPatch is a partial update to a book. Nil fields are left
// untouched.
type BookPatch struct {
	Title       *string `json:"title,omitempty"`
	Author      *string `json:"author,omitempty"`
	Genre       *string `json:"genre,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Price       *int    `json:"price,omitempty"`
	ISBN        *string `json:"isbn,omitempty"`
	CoverURL    *string `json:"coverUrl,omitempty"`
	Description *string `json:"description,omitempty"`
	Stock       *int    `json:"stock,omitempty"`
}

// Apply merges the patch into the book and reports whether any content
// field actually changed value. Callers advance UpdatedAt only when it
// returns true, so a no-op patch does not disturb recency ordering.
func (p *BookPatch) Apply(b *Book) bool {
	changed := false

	applyStr := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	applyInt := func(dst *int, src *int) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}

	applyStr(&b.Title, p.Title)
	applyStr(&b.Author, p.Author)
	applyStr(&b.Genre, p.Genre)
	applyInt(&b.Year, p.Year)
	applyInt(&b.Price, p.Price)
	applyStr(&b.ISBN, p.ISBN)
	applyStr(&b.CoverURL, p.CoverURL)
	applyStr(&b.Description, p.Description)
	applyInt(&b.Stock, p.Stock)

	return changed
}
