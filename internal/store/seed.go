// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package store

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/bookhubhq/bookhub/internal/models"
)

// sampleBooks is the starter catalog for a fresh deployment. Staggered
// creation ages exercise the storefront's "new arrival" badges.
func sampleBooks() []*models.Book {
	now := time.Now().UTC()
	daysAgo := func(d int) time.Time { return now.AddDate(0, 0, -d) }

	books := []*models.Book{
		{
			Title:       "To Kill a Mockingbird",
			Author:      "Harper Lee",
			Genre:       "Fiction",
			Year:        1960,
			Price:       499,
			ISBN:        "978-0061120084",
			Stock:       45,
			Description: "A classic novel of modern American literature",
			CreatedAt:   daysAgo(1),
		},
		{
			Title:       "1984",
			Author:      "George Orwell",
			Genre:       "Science Fiction",
			Year:        1949,
			Price:       399,
			ISBN:        "978-0451524935",
			Stock:       62,
			Description: "A dystopian social science fiction novel",
			CreatedAt:   daysAgo(5),
		},
		{
			Title:       "The Great Gatsby",
			Author:      "F. Scott Fitzgerald",
			Genre:       "Fiction",
			Year:        1925,
			Price:       349,
			ISBN:        "978-0743273565",
			Stock:       38,
			Description: "A tragic love story on Long Island",
			CreatedAt:   daysAgo(15),
		},
		{
			Title:       "Pride and Prejudice",
			Author:      "Jane Austen",
			Genre:       "Romance",
			Year:        1813,
			Price:       299,
			ISBN:        "978-0141439518",
			Stock:       52,
			Description: "A romantic novel of manners",
			CreatedAt:   daysAgo(25),
		},
		{
			Title:       "Harry Potter and the Philosopher's Stone",
			Author:      "J.K. Rowling",
			Genre:       "Fantasy",
			Year:        1997,
			Price:       599,
			ISBN:        "978-0439708180",
			Stock:       78,
			Description: "The first book in the Harry Potter series",
			CreatedAt:   daysAgo(45),
		},
	}

	for i, b := range books {
		b.ID = uuid.New().String()
		b.UpdatedAt = b.CreatedAt
		// One recently revised title so "recently updated" has data too.
		if i == 1 {
			b.UpdatedAt = daysAgo(2)
		}
	}

	return books
}

// seedIfEmpty writes the sample catalog when no books exist yet.
// Returns true when seeding happened.
func (s *Store) seedIfEmpty() (bool, error) {
	empty := true
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check catalog: %w", err)
	}
	if !empty {
		return false, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, b := range sampleBooks() {
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("marshal seed book: %w", err)
			}
			if err := txn.Set([]byte(bookKeyPrefix+b.ID), data); err != nil {
				return fmt.Errorf("set seed book: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return true, nil
}
