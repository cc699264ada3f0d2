// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

// Package store persists the BookHub catalog, accounts, orders, and
// settings in BadgerDB. Entities are stored as JSON values under
// typed key prefixes; email lookups for users go through a secondary
// index key.
//
// All mutations run inside Badger transactions, so a successful return
// means the write is committed. Catalog broadcast happens strictly
// after these calls return.
package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/bookhubhq/bookhub/internal/config"
	"github.com/bookhubhq/bookhub/internal/logging"
)

// Key prefixes for stored entities.
const (
	bookKeyPrefix      = "book:"
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user_email:"
	orderKeyPrefix     = "order:"
	settingsKey        = "settings:default"
)

// Sentinel errors returned by store operations.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrDuplicateOrder = errors.New("order number already exists")
)

// Store is the BadgerDB-backed persistence layer.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path. With
// InMemory set, data lives only for the process lifetime; tests use
// this mode.
func Open(cfg config.StoreConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{db: db}

	if cfg.Seed {
		seeded, err := s.seedIfEmpty()
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed store: %w", err)
		}
		if seeded {
			logging.Info().Str("path", cfg.Path).Msg("Seeded store with sample catalog")
		}
	}

	return s, nil
}

// Close closes the underlying BadgerDB.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying BadgerDB for components that share the
// database file, such as token revocation.
func (s *Store) DB() *badger.DB {
	return s.db
}
