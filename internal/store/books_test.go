// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/models"
)

// newTestStore opens an in-memory store without seed data.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(config.StoreConfig{InMemory: true, Seed: false})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newBook() *models.Book {
	return &models.Book{
		Title:  "Dune",
		Author: "Frank Herbert",
		Genre:  "Science Fiction",
		Year:   1965,
		Price:  899,
		Stock:  10,
	}
}

func TestCreateBookAssignsIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBook(ctx, newBook())
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Errorf("expected CreatedAt == UpdatedAt, got %s / %s", created.CreatedAt, created.UpdatedAt)
	}

	got, err := s.GetBook(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if got.Title != "Dune" {
		t.Errorf("unexpected book: %+v", got)
	}
}

func TestGetBookNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetBook(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBookAdvancesUpdatedAtOnContentChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBook(ctx, newBook())
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	updated, err := s.UpdateBook(ctx, created.ID, &models.BookPatch{Price: intPtr(999)})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if updated.Price != 999 {
		t.Errorf("price = %d, want 999", updated.Price)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("expected UpdatedAt to advance: %s -> %s", created.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt must never change on update")
	}
}

func TestUpdateBookNoopKeepsUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBook(ctx, newBook())
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	// Patch restating the stored values must not advance recency.
	updated, err := s.UpdateBook(ctx, created.ID, &models.BookPatch{
		Title: strPtr(created.Title),
		Price: intPtr(created.Price),
	})
	if err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	if !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("no-op update advanced UpdatedAt: %s -> %s", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdateBookNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateBook(context.Background(), "missing", &models.BookPatch{Price: intPtr(1)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateBook(ctx, newBook())
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	if err := s.DeleteBook(ctx, created.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if _, err := s.GetBook(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected book gone, got %v", err)
	}

	// Second delete reports not found so callers never broadcast a
	// tombstone twice.
	if err := s.DeleteBook(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestListBooksNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateBook(ctx, newBook())
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	second := newBook()
	second.Title = "Dune Messiah"
	if _, err := s.CreateBook(ctx, second); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	books, err := s.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if books[len(books)-1].ID != first.ID && books[0].CreatedAt.Before(books[1].CreatedAt) {
		t.Errorf("expected newest first ordering")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	s, err := Open(config.StoreConfig{InMemory: true, Seed: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	books, err := s.ListBooks(context.Background())
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 5 {
		t.Errorf("expected 5 seeded books, got %d", len(books))
	}

	// Seeding is idempotent: a second check must not duplicate.
	seeded, err := s.seedIfEmpty()
	if err != nil {
		t.Fatalf("seedIfEmpty: %v", err)
	}
	if seeded {
		t.Error("expected no reseed of a populated store")
	}
}
