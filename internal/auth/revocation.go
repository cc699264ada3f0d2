// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// revokedKeyPrefix namespaces revocation entries in the shared Badger
// database.
const revokedKeyPrefix = "revoked_token:"

// RevocationStore tracks revoked token ids (jti) until they would have
// expired anyway. Entries carry a Badger TTL, so the store cleans
// itself up and never grows past the set of live sessions.
type RevocationStore struct {
	db *badger.DB
}

// NewRevocationStore creates a revocation store on the shared catalog
// database.
func NewRevocationStore(db *badger.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

// Revoke marks a token id revoked until its expiry time. Tokens
// already past expiry are ignored.
func (s *RevocationStore) Revoke(jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(revokedKeyPrefix+jti), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token id has been revoked.
func (s *RevocationStore) IsRevoked(jti string) (bool, error) {
	var revoked bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(revokedKeyPrefix + jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return revoked, nil
}
