// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bookhubhq/bookhub/internal/metrics"
	"github.com/bookhubhq/bookhub/internal/models"
)

// CreateBook persists a new book. ID and timestamps are assigned here;
// CreatedAt and UpdatedAt start equal.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) (*models.Book, error) {
	start := time.Now()

	now := time.Now().UTC()
	b.ID = uuid.New().String()
	b.CreatedAt = now
	b.UpdatedAt = now

	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal book: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bookKeyPrefix+b.ID), data)
	})
	metrics.RecordStoreOperation("create", "book", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("store book: %w", err)
	}

	return b, nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*models.Book, error) {
	start := time.Now()

	var book models.Book
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bookKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &book)
		})
	})
	metrics.RecordStoreOperation("get", "book", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// ListBooks returns the whole catalog ordered by creation time, newest
// first. Ties fall back to ID so the ordering is stable.
func (s *Store) ListBooks(ctx context.Context) ([]*models.Book, error) {
	start := time.Now()

	books := []*models.Book{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var b models.Book
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &b)
			}); err != nil {
				return fmt.Errorf("unmarshal book: %w", err)
			}
			books = append(books, &b)
		}
		return nil
	})
	metrics.RecordStoreOperation("list", "book", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sort.Slice(books, func(i, j int) bool {
		if !books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].CreatedAt.After(books[j].CreatedAt)
		}
		return books[i].ID < books[j].ID
	})

	return books, nil
}

// UpdateBook applies a partial update. UpdatedAt advances only when a
// content field actually changed, so a patch that restates current
// values leaves recency untouched. Returns the stored book either way.
func (s *Store) UpdateBook(ctx context.Context, id string, patch *models.BookPatch) (*models.Book, error) {
	start := time.Now()

	var book models.Book
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bookKeyPrefix + id)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &book)
		}); err != nil {
			return fmt.Errorf("unmarshal book: %w", err)
		}

		if patch.Apply(&book) {
			book.UpdatedAt = time.Now().UTC()
		}

		data, err := json.Marshal(&book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOperation("update", "book", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// DeleteBook removes a book. Deleting an absent book returns
// ErrNotFound so callers never broadcast a tombstone for something that
// was not there.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	start := time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(bookKeyPrefix + id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("get book: %w", err)
		}
		return txn.Delete(key)
	})
	metrics.RecordStoreOperation("delete", "book", time.Since(start), err)

	return err
}
